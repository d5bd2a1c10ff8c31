package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal", "panic"}
)

// validateConfig validates the configuration and returns an error if invalid.
func validateConfig(c *Config) error {
	for _, validate := range []func() error{
		func() error { return validateServerConfig(c.Server) },
		func() error { return validateStorageConfig(c.Storage) },
		func() error { return validateSchedulerConfig(c.Scheduler) },
		func() error { return validateProbesConfig(c.Probes) },
		func() error { return validateHistoryConfig(c.History) },
		func() error { return validateLogConfig(c.Log) },
		func() error { return validateLeaseCoversProbes(c.Scheduler, c.Probes) },
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateServerConfig validates server configuration.
func validateServerConfig(s ServerConfig) error {
	if s.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("server.addr invalid format: %w", err)
	}

	if portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("server.addr invalid port: %w", err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("server.addr port out of range (1-65535)")
		}
	}

	if host != "" && host != "0.0.0.0" && host != "localhost" && net.ParseIP(host) == nil {
		return fmt.Errorf("server.addr invalid host: %s", host)
	}

	if s.ReadTimeout < time.Second || s.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("server.read_timeout must be between 1s and 5m")
	}
	if s.WriteTimeout < time.Second || s.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("server.write_timeout must be between 1s and 5m")
	}
	if s.IdleTimeout <= 0 {
		return fmt.Errorf("server.idle_timeout must be greater than 0")
	}
	if s.IdleTimeout > 30*time.Minute {
		return fmt.Errorf("server.idle_timeout too large (max 30m)")
	}

	return nil
}

// validateStorageConfig validates storage configuration.
func validateStorageConfig(s StorageConfig) error {
	if s.Path == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}

	if strings.Contains(s.Path, "..") {
		return fmt.Errorf("storage.path cannot contain '..' for security")
	}

	if s.MaxOpenConns <= 0 {
		return fmt.Errorf("storage.max_open_conns must be greater than 0")
	}
	if s.MaxOpenConns > 1000 {
		return fmt.Errorf("storage.max_open_conns too large (max 1000)")
	}
	if s.MaxIdleConns < 0 {
		return fmt.Errorf("storage.max_idle_conns cannot be negative")
	}
	if s.MaxIdleConns > s.MaxOpenConns {
		return fmt.Errorf("storage.max_idle_conns cannot be greater than max_open_conns")
	}

	if s.ConnMaxLifetime < time.Minute {
		return fmt.Errorf("storage.conn_max_lifetime too small (min 1m)")
	}
	if s.ConnMaxLifetime > 24*time.Hour {
		return fmt.Errorf("storage.conn_max_lifetime too large (max 24h)")
	}

	return nil
}

// validateSchedulerConfig validates scheduler configuration.
func validateSchedulerConfig(s SchedulerConfig) error {
	if s.WorkerCount <= 0 {
		return fmt.Errorf("scheduler.worker_count must be greater than 0")
	}
	if s.WorkerCount > 1000 {
		return fmt.Errorf("scheduler.worker_count too large (max 1000)")
	}

	if s.TickInterval < time.Second {
		return fmt.Errorf("scheduler.tick_interval too small (min 1s)")
	}
	if s.TickInterval > time.Hour {
		return fmt.Errorf("scheduler.tick_interval too large (max 1h)")
	}

	if s.LeaseTTL < time.Second {
		return fmt.Errorf("scheduler.lease_ttl too small (min 1s)")
	}
	if s.LeaseTTL > 10*time.Minute {
		return fmt.Errorf("scheduler.lease_ttl too large (max 10m)")
	}

	return nil
}

// validateLeaseCoversProbes requires an in-flight lease to outlive the
// slowest probe, otherwise a second check can start while one is running.
func validateLeaseCoversProbes(s SchedulerConfig, p ProbesConfig) error {
	longest := max(p.Ping.Timeout, p.Website.Timeout)
	if s.LeaseTTL < longest {
		return fmt.Errorf("scheduler.lease_ttl (%s) must be at least the longest probe timeout (%s)", s.LeaseTTL, longest)
	}
	return nil
}

// validateProbesConfig validates probe configuration.
func validateProbesConfig(p ProbesConfig) error {
	if p.Ping.Timeout <= 0 {
		return fmt.Errorf("probes.ping.timeout must be greater than 0")
	}
	if p.Ping.Timeout > time.Minute {
		return fmt.Errorf("probes.ping.timeout too large (max 1m)")
	}

	w := p.Website
	if w.Timeout <= 0 {
		return fmt.Errorf("probes.website.timeout must be greater than 0")
	}
	if w.Timeout > 2*time.Minute {
		return fmt.Errorf("probes.website.timeout too large (max 2m)")
	}
	if w.MaxRedirects < 1 || w.MaxRedirects > 50 {
		return fmt.Errorf("probes.website.max_redirects must be between 1 and 50")
	}
	if w.MaxBodyBytes <= 0 {
		return fmt.Errorf("probes.website.max_body_bytes must be greater than 0")
	}
	if w.MaxBodyBytes > 100<<20 {
		return fmt.Errorf("probes.website.max_body_bytes too large (max 100MiB)")
	}

	return nil
}

// validateHistoryConfig validates history configuration.
func validateHistoryConfig(h HistoryConfig) error {
	if h.DefaultPageSize <= 0 {
		return fmt.Errorf("history.default_page_size must be greater than 0")
	}
	if h.MaxPageSize < h.DefaultPageSize {
		return fmt.Errorf("history.max_page_size cannot be smaller than default_page_size")
	}
	if h.GraphDefaultLimit <= 0 {
		return fmt.Errorf("history.graph_default_limit must be greater than 0")
	}
	if h.GraphMaxLimit < h.GraphDefaultLimit {
		return fmt.Errorf("history.graph_max_limit cannot be smaller than graph_default_limit")
	}
	return nil
}

// validateLogConfig validates log configuration.
func validateLogConfig(l LogConfig) error {
	if !slices.Contains(validLogLevels, strings.ToLower(l.Level)) {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error, fatal, panic")
	}
	return nil
}
