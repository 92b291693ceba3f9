package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Save quiet period bounds.
const (
	MinQuietPeriod = 300 * time.Millisecond
	MaxQuietPeriod = 1000 * time.Millisecond
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Remote  RemoteConfig  `yaml:"remote"`
	Save    SaveConfig    `yaml:"save"`
	Summary SummaryConfig `yaml:"summary"`
	Draft   DraftConfig   `yaml:"draft"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Export  ExportConfig  `yaml:"export"`
}

// RemoteConfig contains remote attribute store client settings.
type RemoteConfig struct {
	URL           string   `yaml:"url"`
	APIKey        string   `yaml:"-"` // env-only, never in YAML
	Timeout       Duration `yaml:"timeout"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	Burst         int      `yaml:"burst"`
	QueryLimit    int      `yaml:"query_limit"`
}

// SaveConfig contains save coordinator timing.
type SaveConfig struct {
	QuietPeriod    Duration `yaml:"quiet_period"`
	// PollInterval is how often watched files are re-read in case a
	// filesystem event was missed.
	PollInterval   Duration `yaml:"poll_interval"`
	VerifyDelay    Duration `yaml:"verify_delay"`
	VerifyAttempts int      `yaml:"verify_attempts"`
}

// SummaryConfig contains past-summary completion settings.
type SummaryConfig struct {
	APIKey      string  `yaml:"-"` // env-only, never in YAML
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DraftConfig contains the local draft mirror settings.
type DraftConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig contains reference store server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	DBPath          string   `yaml:"db_path"`
	APIKey          string   `yaml:"-"` // env-only, never in YAML
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExportConfig contains S3-compatible storage settings for novel exports.
// An empty bucket disables uploads.
type ExportConfig struct {
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	UseSSL    *bool    `yaml:"use_ssl"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	URLExpiry Duration `yaml:"url_expiry"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("CODEX_CONFIG_PATH", "config/codex.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	useSSL := true
	return &Config{
		Remote: RemoteConfig{
			Timeout:       Duration(10 * time.Second),
			RatePerSecond: 5,
			Burst:         10,
			QueryLimit:    100,
		},
		Save: SaveConfig{
			QuietPeriod:    Duration(500 * time.Millisecond),
			PollInterval:   Duration(500 * time.Millisecond),
			VerifyDelay:    Duration(1 * time.Second),
			VerifyAttempts: 3,
		},
		Summary: SummaryConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   1200,
			Temperature: 0.7,
		},
		Draft: DraftConfig{
			Path: "data/draft.db",
		},
		Server: ServerConfig{
			Port:            8080,
			DBPath:          "data/codex.db",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Export: ExportConfig{
			UseSSL:    &useSSL,
			URLExpiry: Duration(15 * time.Minute),
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty, parseable env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Remote
	envString("CODEX_REMOTE_URL", &cfg.Remote.URL)
	envString("CODEX_REMOTE_API_KEY", &cfg.Remote.APIKey)
	envDuration("CODEX_REMOTE_TIMEOUT", &cfg.Remote.Timeout)
	if v := os.Getenv("CODEX_REMOTE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Remote.RatePerSecond = f
		}
	}
	envInt("CODEX_REMOTE_BURST", &cfg.Remote.Burst)
	envInt("CODEX_QUERY_LIMIT", &cfg.Remote.QueryLimit)

	// Save
	envDuration("CODEX_QUIET_PERIOD", &cfg.Save.QuietPeriod)
	envDuration("CODEX_POLL_INTERVAL", &cfg.Save.PollInterval)
	envDuration("CODEX_VERIFY_DELAY", &cfg.Save.VerifyDelay)
	envInt("CODEX_VERIFY_ATTEMPTS", &cfg.Save.VerifyAttempts)

	// Summary (OPENAI_API_KEY is industry convention)
	envString("OPENAI_API_KEY", &cfg.Summary.APIKey)
	envString("CODEX_SUMMARY_MODEL", &cfg.Summary.Model)
	envString("CODEX_SUMMARY_BASE_URL", &cfg.Summary.BaseURL)
	if v := os.Getenv("CODEX_SUMMARY_MAX_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Summary.MaxTokens = n
		}
	}
	if v := os.Getenv("CODEX_SUMMARY_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Summary.Temperature = f
		}
	}

	// Draft
	envString("CODEX_DRAFT_PATH", &cfg.Draft.Path)

	// Server
	envInt("CODEX_PORT", &cfg.Server.Port)
	envString("CODEX_DB_PATH", &cfg.Server.DBPath)
	envString("CODEX_API_KEY", &cfg.Server.APIKey)
	envDuration("CODEX_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("CODEX_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("CODEX_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Log
	envString("CODEX_LOG_LEVEL", &cfg.Log.Level)
	envString("CODEX_LOG_FORMAT", &cfg.Log.Format)

	// Export
	envString("CODEX_EXPORT_BUCKET", &cfg.Export.Bucket)
	envString("CODEX_S3_ENDPOINT", &cfg.Export.Endpoint)
	envString("CODEX_S3_REGION", &cfg.Export.Region)
	envString("CODEX_S3_ACCESS_KEY", &cfg.Export.AccessKey)
	envString("CODEX_S3_SECRET_KEY", &cfg.Export.SecretKey)
	if v := os.Getenv("CODEX_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Export.UseSSL = &useSSL
	}
	envDuration("CODEX_S3_URL_EXPIRY", &cfg.Export.URLExpiry)
}

// validate checks value ranges. API keys are optional: an empty remote URL
// selects offline mode and an empty summary key disables recaps.
func (c *Config) validate() error {
	var errs []error

	quiet := time.Duration(c.Save.QuietPeriod)
	if quiet < MinQuietPeriod || quiet > MaxQuietPeriod {
		errs = append(errs, fmt.Errorf("save.quiet_period must be between %s and %s, got %s", MinQuietPeriod, MaxQuietPeriod, quiet))
	}
	if c.Save.PollInterval <= 0 {
		errs = append(errs, errors.New("save.poll_interval must be positive"))
	}
	if c.Save.VerifyAttempts < 1 {
		errs = append(errs, errors.New("save.verify_attempts must be at least 1"))
	}
	if c.Remote.QueryLimit < 1 || c.Remote.QueryLimit > 1000 {
		errs = append(errs, fmt.Errorf("remote.query_limit must be between 1 and 1000, got %d", c.Remote.QueryLimit))
	}
	if c.Remote.RatePerSecond < 0 {
		errs = append(errs, errors.New("remote.rate_per_second must not be negative"))
	}
	if c.Summary.Temperature < 0 || c.Summary.Temperature > 2 {
		errs = append(errs, fmt.Errorf("summary.temperature must be between 0 and 2, got %g", c.Summary.Temperature))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
