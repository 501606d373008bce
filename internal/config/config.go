// Package config loads crontab settings from config.yaml, CRONTAB_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Marker backends
const (
	MarkerSQLite = "sqlite"
	MarkerNATS   = "nats"
	MarkerMemory = "memory"
)

const minSleepSeconds = 3

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds all crontab settings
type Config struct {
	Crontab  CrontabConfig  `mapstructure:"crontab"`
	Database DatabaseConfig `mapstructure:"database"`
	Marker   MarkerConfig   `mapstructure:"marker"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
}

// CrontabConfig configures the poll loop
type CrontabConfig struct {
	// Sleep is the idle time in seconds when nothing is due
	Sleep int `mapstructure:"sleep"`
	// Memory is the resident memory limit in MB
	Memory     float64       `mapstructure:"memory"`
	Table      string        `mapstructure:"table"`
	Backoff    int           `mapstructure:"backoff"`
	Namespace  string        `mapstructure:"namespace"`
	RestartKey string        `mapstructure:"restart_key"`
	RestartTTL time.Duration `mapstructure:"restart_ttl"`
}

// SleepDuration returns Sleep as a duration
func (c CrontabConfig) SleepDuration() time.Duration {
	return time.Duration(c.Sleep) * time.Second
}

// BackoffDuration returns Backoff as a duration
func (c CrontabConfig) BackoffDuration() time.Duration {
	return time.Duration(c.Backoff) * time.Second
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type MarkerConfig struct {
	Backend string `mapstructure:"backend"`
}

// NATSConfig configures the optional NATS connection. An empty URL
// disables NATS.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	Name           string        `mapstructure:"name"`
	Bucket         string        `mapstructure:"bucket"`
	ErrorSubject   string        `mapstructure:"error_subject"`
	ResultSubject  string        `mapstructure:"result_subject"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Enabled reports whether a NATS URL is configured
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("crontab.sleep", 60)
	v.SetDefault("crontab.memory", 32)
	v.SetDefault("crontab.table", "crontab")
	v.SetDefault("crontab.backoff", 3)
	v.SetDefault("crontab.namespace", "app")
	v.SetDefault("crontab.restart_key", "crontab:restart")
	v.SetDefault("crontab.restart_ttl", time.Hour)

	v.SetDefault("database.path", "crontab.db")

	v.SetDefault("marker.backend", MarkerSQLite)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.name", "crontab")
	v.SetDefault("nats.bucket", "crontab")
	v.SetDefault("nats.error_subject", "crontab.error")
	v.SetDefault("nats.result_subject", "crontab.result")
	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.connect_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// New creates a viper instance with defaults, environment binding and an
// optional config file. With an empty path config.yaml is searched in
// ./config and the working directory; a missing file is not an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix("CRONTAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	if c.Crontab.Sleep < minSleepSeconds {
		return fmt.Errorf("crontab.sleep must be at least %d seconds, got %d", minSleepSeconds, c.Crontab.Sleep)
	}
	if c.Crontab.Memory <= 0 {
		return fmt.Errorf("crontab.memory must be positive, got %v", c.Crontab.Memory)
	}
	if c.Crontab.Backoff <= 0 {
		return fmt.Errorf("crontab.backoff must be positive, got %d", c.Crontab.Backoff)
	}
	if !identifierPattern.MatchString(c.Crontab.Table) {
		return fmt.Errorf("crontab.table %q is not a valid table name", c.Crontab.Table)
	}
	if c.Crontab.RestartKey == "" {
		return fmt.Errorf("crontab.restart_key is required")
	}
	if c.Crontab.RestartTTL <= 0 {
		return fmt.Errorf("crontab.restart_ttl must be positive, got %s", c.Crontab.RestartTTL)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Marker.Backend {
	case MarkerSQLite, MarkerMemory:
	case MarkerNATS:
		if !c.NATS.Enabled() {
			return fmt.Errorf("marker.backend %q requires nats.url", MarkerNATS)
		}
	default:
		return fmt.Errorf("unknown marker.backend %q", c.Marker.Backend)
	}

	return nil
}
