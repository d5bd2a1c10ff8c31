package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"path/filepath"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "UPMON"

// Config represents the complete configuration schema for upmon.
//
// Configuration sources (in order of precedence):
//  1. Defaults
//  2. Configuration file (optional)
//  3. Environment variables
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Probes    ProbesConfig    `mapstructure:"probes" yaml:"probes"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type StorageConfig struct {
	Path            string        `mapstructure:"path" yaml:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

type SchedulerConfig struct {
	// WorkerCount bounds both the latest-status lookups and the concurrent checks of a pass
	WorkerCount int `mapstructure:"worker_count" yaml:"worker_count"`

	// TickInterval is the period between passes in serve mode
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`

	// LeaseTTL is how long an in-flight check blocks another check of the same monitor
	LeaseTTL time.Duration `mapstructure:"lease_ttl" yaml:"lease_ttl"`
}

type ProbesConfig struct {
	Ping    PingProbeConfig    `mapstructure:"ping" yaml:"ping"`
	Website WebsiteProbeConfig `mapstructure:"website" yaml:"website"`
}

type PingProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type WebsiteProbeConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	VerifyTLS    bool          `mapstructure:"verify_tls" yaml:"verify_tls"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type HistoryConfig struct {
	DefaultPageSize   int `mapstructure:"default_page_size" yaml:"default_page_size"`
	MaxPageSize       int `mapstructure:"max_page_size" yaml:"max_page_size"`
	GraphDefaultLimit int `mapstructure:"graph_default_limit" yaml:"graph_default_limit"`
	GraphMaxLimit     int `mapstructure:"graph_max_limit" yaml:"graph_max_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error, fatal, panic
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"` // human-readable console output
}

// Load loads configuration from defaults, configuration file,
// and environment variables, then validates the result.
//
// When configFile is empty, config.yaml is looked up in the working
// directory and the user config directory; a missing file is not an error.
// An explicit configFile must exist.
//
// The function fails fast on:
//   - Invalid configuration file
//   - Invalid or missing required configuration values
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(false)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if configDir := getConfigDir(); configDir != "" {
			v.AddConfigPath(configDir)
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file error: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalizeConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// getConfigDir returns the appropriate config directory for the current OS
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "upmon")
		}
		return ""
	}

	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".upmon")
	}
	return ""
}
