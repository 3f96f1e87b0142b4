// Package config loads the shell configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-authgate"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

const (
	ProviderMemory = "memory"
	ProviderHTTP   = "http"
	ProviderOIDC   = "oidc"
)

var _ authgate.Config = (*Config)(nil)

// Config is the shell configuration.
type Config struct {
	Shell     Shell     `yaml:"shell"`
	Endpoints Endpoints `yaml:"endpoints"`
	Provider  Provider  `yaml:"provider"`
	Storage   Storage   `yaml:"storage"`
	Metrics   Metrics   `yaml:"metrics"`
	Attempts  Attempts  `yaml:"attempts"`
}

// Shell locates the bundled web client.
type Shell struct {
	BundledRoot string `yaml:"bundled_root"`
	IndexFile   string `yaml:"index_file"`
	Debug       bool   `yaml:"debug"`
}

// Endpoints are handed to the web client in its launch address.
type Endpoints struct {
	API   string `yaml:"api"`
	Tiles string `yaml:"tiles"`
}

// Provider selects and configures the identity provider.
type Provider struct {
	Kind               string   `yaml:"kind"`
	BaseURL            string   `yaml:"base_url"`
	TimeoutExpression  string   `yaml:"timeout"`
	Issuer             string   `yaml:"issuer"`
	ClientID           string   `yaml:"client_id"`
	ClientSecret       string   `yaml:"client_secret"`
	Scopes             []string `yaml:"scopes"`
	SigningKey         string   `yaml:"signing_key"`
	TokenTTLExpression string   `yaml:"token_ttl"`
}

// Storage configures the local session database. An empty DSN keeps the
// session in memory only.
type Storage struct {
	DSN  string `yaml:"dsn"`
	Slot string `yaml:"slot"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Attempts throttles credential submits: Burst submits, then one per Window.
// A zero Burst disables throttling.
type Attempts struct {
	Burst            int    `yaml:"burst"`
	WindowExpression string `yaml:"window"`
}

// Defaults returns the development configuration.
func Defaults() *Config {
	return &Config{
		Shell: Shell{
			BundledRoot: authgate.DefaultBundledRoot,
			IndexFile:   authgate.DefaultIndexFile,
		},
		Endpoints: Endpoints{
			API:   authgate.DefaultAPIEndpoint,
			Tiles: authgate.DefaultTilesEndpoint,
		},
		Provider: Provider{
			Kind:               ProviderMemory,
			BaseURL:            authgate.DefaultAPIEndpoint,
			TimeoutExpression:  "15s",
			TokenTTLExpression: "24h",
		},
		Storage: Storage{
			Slot: "current",
		},
		Metrics: Metrics{
			Address: ":9090",
		},
		Attempts: Attempts{
			Burst:            3,
			WindowExpression: "30s",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies the
// AUTHGATE_* environment overrides and validates the result. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "config: unable to read file").
				WithMetadata(map[string]any{"path": path})
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "config: invalid yaml").
				WithMetadata(map[string]any{"path": path})
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "config: invalid configuration")
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Shell.BundledRoot, "AUTHGATE_BUNDLED_ROOT")
	set(&c.Shell.IndexFile, "AUTHGATE_INDEX_FILE")
	set(&c.Endpoints.API, "AUTHGATE_API_ENDPOINT")
	set(&c.Endpoints.Tiles, "AUTHGATE_TILES_ENDPOINT")
	set(&c.Provider.Kind, "AUTHGATE_PROVIDER")
	set(&c.Provider.BaseURL, "AUTHGATE_PROVIDER_BASE_URL")
	set(&c.Provider.Issuer, "AUTHGATE_OIDC_ISSUER")
	set(&c.Provider.ClientID, "AUTHGATE_OIDC_CLIENT_ID")
	set(&c.Provider.ClientSecret, "AUTHGATE_OIDC_CLIENT_SECRET")
	set(&c.Provider.SigningKey, "AUTHGATE_SIGNING_KEY")
	set(&c.Storage.DSN, "AUTHGATE_STORAGE_DSN")
	set(&c.Metrics.Address, "AUTHGATE_METRICS_ADDRESS")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoints),
		validation.Field(&c.Provider),
		validation.Field(&c.Attempts),
	)
}

// Validate checks both endpoints are absolute URLs.
func (e Endpoints) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.API, validation.Required, is.URL),
		validation.Field(&e.Tiles, validation.Required, is.URL),
	)
}

// Validate checks the fields the selected provider needs.
func (p Provider) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Kind, validation.Required, validation.In(ProviderMemory, ProviderHTTP, ProviderOIDC)),
		validation.Field(&p.BaseURL, validation.By(requiredFor(p.Kind, ProviderHTTP)), is.URL),
		validation.Field(&p.Issuer, validation.By(requiredFor(p.Kind, ProviderOIDC)), is.URL),
		validation.Field(&p.ClientID, validation.By(requiredFor(p.Kind, ProviderOIDC))),
		validation.Field(&p.TimeoutExpression, validation.By(duration)),
		validation.Field(&p.TokenTTLExpression, validation.By(duration)),
	)
}

// Validate checks the attempt window parses.
func (a Attempts) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Burst, validation.Min(0)),
		validation.Field(&a.WindowExpression, validation.By(duration)),
	)
}

// GetTimeout returns the provider request timeout.
func (p Provider) GetTimeout() time.Duration {
	return parseDuration(p.TimeoutExpression, 15*time.Second)
}

// GetTokenTTL returns the lifetime of sessions minted by the memory provider.
func (p Provider) GetTokenTTL() time.Duration {
	return parseDuration(p.TokenTTLExpression, 24*time.Hour)
}

// GetWindow returns the interval between submits once the burst is spent.
func (a Attempts) GetWindow() time.Duration {
	return parseDuration(a.WindowExpression, 30*time.Second)
}

func (c *Config) GetBundledRoot() string {
	return c.Shell.BundledRoot
}

func (c *Config) GetIndexFile() string {
	return c.Shell.IndexFile
}

func (c *Config) GetAPIEndpoint() string {
	return c.Endpoints.API
}

func (c *Config) GetTilesEndpoint() string {
	return c.Endpoints.Tiles
}

func requiredFor(kind, want string) validation.RuleFunc {
	return func(value any) error {
		if kind != want {
			return nil
		}
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New("required for the " + want + " provider")
		}
		return nil
	}
}

func duration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("must be a duration such as 15s or 5m")
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func parseDuration(expr string, fallback time.Duration) time.Duration {
	if expr == "" {
		return fallback
	}
	d, err := time.ParseDuration(expr)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
