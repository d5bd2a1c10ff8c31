package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Defaults returns the built-in configuration, ignoring files and environment.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	normalizeConfig(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
//
// Every key the application reads needs a default here, otherwise viper's
// AutomaticEnv cannot map an environment override onto it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{})

	// Storage defaults
	v.SetDefault("storage.path", "upmon.db")
	v.SetDefault("storage.max_open_conns", 16)
	v.SetDefault("storage.max_idle_conns", 4)
	v.SetDefault("storage.conn_max_lifetime", "1h")

	// Scheduler defaults
	v.SetDefault("scheduler.worker_count", 8)
	v.SetDefault("scheduler.tick_interval", "5s")
	v.SetDefault("scheduler.lease_ttl", "30s")

	// Probe defaults
	v.SetDefault("probes.ping.timeout", "5s")
	v.SetDefault("probes.website.timeout", "10s")
	v.SetDefault("probes.website.verify_tls", false)
	v.SetDefault("probes.website.max_redirects", 10)
	v.SetDefault("probes.website.max_body_bytes", 5<<20)
	v.SetDefault("probes.website.user_agent", "upmon/1.0")

	// History defaults
	v.SetDefault("history.default_page_size", 50)
	v.SetDefault("history.max_page_size", 500)
	v.SetDefault("history.graph_default_limit", 100)
	v.SetDefault("history.graph_max_limit", 10000)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
