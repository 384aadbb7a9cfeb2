package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvPort        = "PORT"
	EnvExecutorURL = "DQC_EXECUTOR_URL"
	EnvExecutorKey = "DQC_EXECUTOR_API_KEY"
	EnvLogLevel    = "DQC_LOG_LEVEL"
	EnvConfigPath  = "DQC_CONFIG"
)

// Config is the service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Executor ExecutorConfig `yaml:"executor"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ExecutorConfig points at an external circuit executor. An empty BaseURL
// disables execution.
type ExecutorConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Shots        int           `yaml:"shots"`
}

// CacheConfig sizes the compile result cache
type CacheConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the log level and encoding
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Executor: ExecutorConfig{
			Timeout:      5 * time.Minute,
			PollInterval: 2 * time.Second,
			Shots:        1024,
		},
		Cache: CacheConfig{Size: 128},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, errors.Wrapf(err, "config: read %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "config: parse %s", path)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPort); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup(EnvExecutorURL); ok {
		c.Executor.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvExecutorKey); ok {
		c.Executor.APIKey = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if c.Cache.Size <= 0 {
		return errors.Errorf("cache size must be positive, got %d", c.Cache.Size)
	}
	if c.Executor.Shots <= 0 {
		return errors.Errorf("executor shots must be positive, got %d", c.Executor.Shots)
	}
	if c.Executor.BaseURL != "" && c.Executor.Timeout <= 0 {
		return errors.New("executor timeout must be positive")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	return nil
}

// ExecutorEnabled reports whether an executor endpoint is configured
func (c *Config) ExecutorEnabled() bool {
	return c.Executor.BaseURL != ""
}

// NewLogger builds a zap logger at the configured level
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", l.Level)
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
