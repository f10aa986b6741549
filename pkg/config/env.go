package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kong"
)

// environment lists the variables that override the file. kong decodes each
// one into its field; a nil field means the variable is unset.
type environment struct {
	GitHubToken          *string        `env:"GITHUB_TOKEN"`
	GitHubAPIURL         *string        `env:"GITHUB_API_URL"`
	GitHubTemplateOwner  *string        `env:"GITHUB_TEMPLATE_OWNER"`
	GitHubTemplateRepo   *string        `env:"GITHUB_TEMPLATE_REPO"`
	GitHubCACertPath     *string        `env:"GITHUB_CA_CERT_PATH"`
	GitHubAppID          *int64         `env:"GITHUB_APP_ID"`
	GitHubInstallationID *int64         `env:"GITHUB_APP_INSTALLATION_ID"`
	GitHubPrivateKeyPath *string        `env:"GITHUB_APP_PRIVATE_KEY_PATH"`
	GitHubTimeout        *time.Duration `env:"GITHUB_TIMEOUT"`

	SonarQubeURL     *string        `env:"SONARQUBE_URL"`
	SonarQubeToken   *string        `env:"SONARQUBE_TOKEN"`
	SonarQubeCACert  *string        `env:"SONAR_CA_CERT_PATH"`
	SonarQubeTimeout *time.Duration `env:"SONARQUBE_TIMEOUT"`

	Addr           *string  `env:"PROVISIONER_ADDR"`
	APIToken       *string  `env:"PROVISIONER_API_TOKEN"`
	AllowedOrigins []string `env:"PROVISIONER_ALLOWED_ORIGINS"`
	RateLimit      *float64 `env:"PROVISIONER_RATE_LIMIT"`
	RateBurst      *int     `env:"PROVISIONER_RATE_BURST"`
	MetricsEnabled *bool    `env:"PROVISIONER_METRICS"`

	JournalBackend    *string `env:"PROVISIONER_JOURNAL"`
	BoltPath          *string `env:"PROVISIONER_BOLT_PATH"`
	DatastoreProject  *string `env:"PROVISIONER_DATASTORE_PROJECT"`
	DatastoreDatabase *string `env:"PROVISIONER_DATASTORE_DATABASE"`
	DatastoreEndpoint *string `env:"DATASTORE_EMULATOR_HOST"`

	LogLevel  *string `env:"PROVISIONER_LOG_LEVEL"`
	LogFormat *string `env:"PROVISIONER_LOG_FORMAT"`

	TraceExporter    *string  `env:"PROVISIONER_TRACE_EXPORTER"`
	TraceEndpoint    *string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceInsecure    *bool    `env:"PROVISIONER_TRACE_INSECURE"`
	TraceSampleRatio *float64 `env:"PROVISIONER_TRACE_SAMPLE_RATIO"`

	Concurrency *int `env:"PROVISIONER_CONCURRENCY"`
}

// readEnvironment runs kong over an empty command line so that only the env
// tags feed the fields.
func readEnvironment() (environment, error) {
	var env environment
	parser, err := kong.New(&env, kong.Name("provisioner"))
	if err != nil {
		return env, err
	}
	if _, err := parser.Parse(nil); err != nil {
		return env, fmt.Errorf("environment: %w", err)
	}
	return env, nil
}

func (e environment) apply(c *Config) {
	setString(&c.GitHub.Token, e.GitHubToken)
	setString(&c.GitHub.APIURL, e.GitHubAPIURL)
	setString(&c.GitHub.TemplateOwner, e.GitHubTemplateOwner)
	setString(&c.GitHub.TemplateRepo, e.GitHubTemplateRepo)
	setString(&c.Certificates.GitHub, e.GitHubCACertPath)
	set(&c.GitHub.AppID, e.GitHubAppID)
	set(&c.GitHub.InstallationID, e.GitHubInstallationID)
	setString(&c.GitHub.PrivateKeyPath, e.GitHubPrivateKeyPath)
	set(&c.GitHub.Timeout, e.GitHubTimeout)

	setString(&c.SonarQube.URL, e.SonarQubeURL)
	setString(&c.SonarQube.Token, e.SonarQubeToken)
	setString(&c.Certificates.SonarQube, e.SonarQubeCACert)
	set(&c.SonarQube.Timeout, e.SonarQubeTimeout)

	setString(&c.Server.Addr, e.Addr)
	setString(&c.Server.APIToken, e.APIToken)
	if origins := trimmed(e.AllowedOrigins); len(origins) > 0 {
		c.Server.AllowedOrigins = origins
	}
	set(&c.Server.RateLimit, e.RateLimit)
	set(&c.Server.RateBurst, e.RateBurst)
	set(&c.Server.MetricsEnabled, e.MetricsEnabled)

	setString(&c.Journal.Backend, e.JournalBackend)
	setString(&c.Journal.BoltPath, e.BoltPath)
	setString(&c.Journal.DatastoreProject, e.DatastoreProject)
	setString(&c.Journal.DatastoreDatabase, e.DatastoreDatabase)
	setString(&c.Journal.DatastoreEndpoint, e.DatastoreEndpoint)

	setString(&c.Log.Level, e.LogLevel)
	setString(&c.Log.Format, e.LogFormat)

	setString(&c.Tracing.Exporter, e.TraceExporter)
	setString(&c.Tracing.Endpoint, e.TraceEndpoint)
	set(&c.Tracing.Insecure, e.TraceInsecure)
	set(&c.Tracing.SampleRatio, e.TraceSampleRatio)

	set(&c.Concurrency, e.Concurrency)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// setString ignores blank values so an exported-but-empty variable keeps the
// file's value.
func setString(dst *string, v *string) {
	if v == nil {
		return
	}
	if s := strings.TrimSpace(*v); s != "" {
		*dst = s
	}
}

func trimmed(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
