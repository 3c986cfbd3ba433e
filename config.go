package welcome

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything needed to open a Session.
type Config struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Scope        string        `yaml:"scope"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Log          LogConfig     `yaml:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults and no credentials.
func DefaultConfig() Config {
	return Config{
		Scope:   DefaultScope,
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configuration from a YAML file at path, then overlays
// environment variables. A missing file is not an error; if path is empty
// only defaults and env vars are used.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays WELCOME_* environment variables on top of the config.
// Env vars take precedence over YAML values.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("WELCOME_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("WELCOME_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("WELCOME_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("WELCOME_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("WELCOME_SCOPE"); v != "" {
		cfg.Scope = v
	}
	if v := os.Getenv("WELCOME_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("WELCOME_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: WELCOME_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("WELCOME_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("WELCOME_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// Validate reports whether the credentials needed for a password grant are set.
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" || c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (c Config) scope() string {
	if c.Scope == "" {
		return DefaultScope
	}
	return c.Scope
}

// options converts the transport settings of the config into client options.
// They come first so explicit options passed by the caller win.
func (c Config) options() []Option {
	var opts []Option
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	return opts
}
