// Package config loads the service configuration. Values are layered: built-in
// defaults, then an optional YAML file, then a .env file, then the process
// environment. The result is checked with Validate before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. It is built once at startup and
// passed to the constructors that need it.
type Config struct {
	GitHub       GitHub       `yaml:"github"`
	SonarQube    SonarQube    `yaml:"sonarqube"`
	Certificates Certificates `yaml:"certificates"`
	Server       Server       `yaml:"server"`
	Journal      Journal      `yaml:"journal"`
	Log          Log          `yaml:"log"`
	Tracing      Tracing      `yaml:"tracing"`
	// Concurrency caps in-flight remote calls per stage. Zero means no cap.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`
}

type GitHub struct {
	Token          string        `yaml:"token"`
	APIURL         string        `yaml:"api_url" validate:"omitempty,url"`
	TemplateOwner  string        `yaml:"template_owner" validate:"required"`
	TemplateRepo   string        `yaml:"template_repo" validate:"required"`
	AppID          int64         `yaml:"app_id"`
	InstallationID int64         `yaml:"installation_id"`
	PrivateKeyPath string        `yaml:"private_key_path"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
}

// UsesApp reports whether GitHub App credentials are configured.
func (g GitHub) UsesApp() bool {
	return g.AppID != 0 && g.InstallationID != 0 && g.PrivateKeyPath != ""
}

type SonarQube struct {
	URL     string        `yaml:"url" validate:"required,url"`
	Token   string        `yaml:"token" validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Certificates holds paths to PEM CA bundles pinned for each remote service.
type Certificates struct {
	GitHub    string `yaml:"github"`
	SonarQube string `yaml:"sonarqube"`
}

type Server struct {
	Addr           string        `yaml:"addr" validate:"required"`
	APIToken       string        `yaml:"api_token"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      float64       `yaml:"rate_limit" validate:"gte=0"`
	RateBurst      int           `yaml:"rate_burst" validate:"gte=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

type Journal struct {
	Backend          string `yaml:"backend" validate:"oneof=memory bolt datastore"`
	BoltPath         string `yaml:"bolt_path" validate:"required_if=Backend bolt"`
	DatastoreProject string `yaml:"datastore_project" validate:"required_if=Backend datastore"`
	// DatastoreDatabase selects a named database. Empty means the default one.
	DatastoreDatabase string `yaml:"datastore_database"`
	// DatastoreEndpoint points the client at an emulator.
	DatastoreEndpoint string `yaml:"datastore_endpoint"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Tracing selects where fan-out spans are exported. With exporter "none" spans
// are still sampled and recorded but never leave the process.
type Tracing struct {
	Exporter    string  `yaml:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Exporter otlp"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// ErrNoGitHubCredentials is returned by Validate when neither a token nor app
// credentials are set.
var ErrNoGitHubCredentials = errors.New("github token or app credentials are required")

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		GitHub: GitHub{
			TemplateOwner: "Acer-Sandbox",
			TemplateRepo:  "repo-template",
			Timeout:       30 * time.Second,
		},
		SonarQube: SonarQube{Timeout: 30 * time.Second},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			RateLimit:      10,
			RateBurst:      20,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   5 * time.Minute,
			MetricsEnabled: true,
		},
		Journal: Journal{Backend: "memory", BoltPath: "provisioner.db"},
		Log:     Log{Level: "info", Format: "text"},
		Tracing: Tracing{Exporter: "none", SampleRatio: 1},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path is
// empty), the dotenv file at envFile (skipped when missing) and the environment.
// It does not validate.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	env, err := readEnvironment()
	if err != nil {
		return cfg, err
	}
	env.apply(&cfg)
	return cfg, nil
}

// Validate checks field constraints and that GitHub credentials are present.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.GitHub.Token == "" && !c.GitHub.UsesApp() {
		return ErrNoGitHubCredentials
	}
	return nil
}
