package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
github:
  token: yaml-token
  template_owner: acme
  template_repo: golden
  timeout: 10s
sonarqube:
  url: https://sonar.example.com
  token: sq-yaml
certificates:
  github: /etc/ssl/github.pem
server:
  addr: ":9090"
  rate_limit: 2.5
journal:
  backend: bolt
  bolt_path: /var/lib/provisioner/journal.db
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLayers(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)
	envFile := writeFile(t, ".env", "SONARQUBE_TOKEN=sq-dotenv\nPROVISIONER_LOG_FORMAT=json\n")
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("PROVISIONER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("PROVISIONER_CONCURRENCY", "8")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Unsetenv("SONARQUBE_TOKEN")
		os.Unsetenv("PROVISIONER_LOG_FORMAT")
	})

	assert.Equal(t, "env-token", cfg.GitHub.Token)
	assert.Equal(t, "acme", cfg.GitHub.TemplateOwner)
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, "sq-dotenv", cfg.SonarQube.Token)
	assert.Equal(t, 30*time.Second, cfg.SonarQube.Timeout)
	assert.Equal(t, "/etc/ssl/github.pem", cfg.Certificates.GitHub)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "bolt", cfg.Journal.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFiles(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "Acer-Sandbox", cfg.GitHub.TemplateOwner)
	assert.Equal(t, "repo-template", cfg.GitHub.TemplateRepo)
	assert.Equal(t, "memory", cfg.Journal.Backend)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)
	t.Setenv("GITHUB_TOKEN", "  ")
	t.Setenv("GITHUB_APP_ID", "42")
	t.Setenv("SONARQUBE_TIMEOUT", "45s")
	t.Setenv("PROVISIONER_METRICS", "false")
	t.Setenv("PROVISIONER_RATE_LIMIT", "0.5")
	t.Setenv("PROVISIONER_TRACE_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("PROVISIONER_TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "yaml-token", cfg.GitHub.Token, "blank variable keeps the file value")
	assert.Equal(t, int64(42), cfg.GitHub.AppID)
	assert.Equal(t, 45*time.Second, cfg.SonarQube.Timeout)
	assert.False(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, 0.5, cfg.Server.RateLimit)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("GITHUB_APP_ID", "not-a-number")
	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_APP_ID")
}

func TestValidate(t *testing.T) {
	base := Default()
	base.SonarQube.URL = "https://sonar.example.com"
	base.SonarQube.Token = "sq"

	t.Run("requires github credentials", func(t *testing.T) {
		cfg := base
		assert.True(t, errors.Is(cfg.Validate(), ErrNoGitHubCredentials))

		cfg.GitHub.AppID = 1
		cfg.GitHub.InstallationID = 2
		cfg.GitHub.PrivateKeyPath = "/tmp/app.pem"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects unknown journal backend", func(t *testing.T) {
		cfg := base
		cfg.GitHub.Token = "t"
		cfg.Journal.Backend = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("otlp tracing needs an endpoint", func(t *testing.T) {
		cfg := base
		cfg.GitHub.Token = "t"
		cfg.Tracing.Exporter = "otlp"
		assert.Error(t, cfg.Validate())
		cfg.Tracing.Endpoint = "collector:4317"
		assert.NoError(t, cfg.Validate())
		cfg.Tracing.SampleRatio = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("datastore needs a project", func(t *testing.T) {
		cfg := base
		cfg.GitHub.Token = "t"
		cfg.Journal.Backend = "datastore"
		assert.Error(t, cfg.Validate())
		cfg.Journal.DatastoreProject = "my-project"
		assert.NoError(t, cfg.Validate())
	})
}
