// Package config provides YAML configuration loading with validation and
// environment variable substitution for the sports-data service.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server" json:"server"`
	Metrics   MetricsConfig    `yaml:"metrics" json:"metrics"`
	Logging   LoggingConfig    `yaml:"logging" json:"logging"`
	RateLimit RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Cache     CacheConfig      `yaml:"cache" json:"cache"`
	Admin     AdminConfig      `yaml:"admin" json:"admin"`
	Providers []ProviderConfig `yaml:"providers" json:"providers"`

	// Warnings holds non-fatal config issues detected during loading.
	// Stored on the Config itself (not a package-level var) so it is
	// safe to call Load concurrently from the hot-reload goroutine.
	Warnings []string `yaml:"-" json:"-"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
// Enabled defaults to true; set to false to disable metrics.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// IsEnabled returns whether metrics are enabled (defaults to true).
func (m MetricsConfig) IsEnabled() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	TrustedProxies  []string      `yaml:"trusted_proxies" json:"trusted_proxies"`
	GlobalTimeoutMs int           `yaml:"global_timeout_ms" json:"global_timeout_ms"`
}

// GlobalTimeout returns the global request deadline as a time.Duration.
// Returns 0 (disabled) when GlobalTimeoutMs is not set.
func (s ServerConfig) GlobalTimeout() time.Duration {
	if s.GlobalTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(s.GlobalTimeoutMs) * time.Millisecond
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Output     string `yaml:"output" json:"output"`           // "stdout", "stderr", or file path; default: "stdout"
	Level      string `yaml:"level" json:"level"`             // "debug", "info", "warn", "error"; default: "info"
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"` // max log file size before rotation; default: 100
	MaxBackups int    `yaml:"max_backups" json:"max_backups"` // number of rotated files to keep; default: 3
}

// RateLimitConfig bounds requests per identifier within a sliding window.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
}

// CacheConfig holds the shared in-memory cache settings.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// AdminConfig holds admin API settings.
type AdminConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`           // default: false
	IPAllowlist []string `yaml:"ip_allowlist" json:"ip_allowlist"` // CIDR notation
}

// ProviderConfig describes one upstream sports-data provider.
type ProviderConfig struct {
	Name       string `yaml:"name" json:"name"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	AuthHeader string `yaml:"auth_header" json:"auth_header"` // e.g. "X-RapidAPI-Key"
	AuthKey    string `yaml:"auth_key" json:"auth_key"`       // supports ${ENV} substitution
	TimeoutMs  int    `yaml:"timeout_ms" json:"timeout_ms"`

	// Outbound pacing against the provider's quota.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`

	Circuit CircuitConfig `yaml:"circuit" json:"circuit"`
	Retry   RetryConfig   `yaml:"retry" json:"retry"`

	// CacheTTL controls how long fetched data stays fresh. Zero disables
	// caching for this provider; nil picks the default. Live scores want
	// seconds, predictions minutes, reference data hours.
	CacheTTL *time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// TTL returns the effective cache TTL for the provider.
func (p ProviderConfig) TTL() time.Duration {
	if p.CacheTTL == nil {
		return 5 * time.Minute
	}
	return *p.CacheTTL
}

// Timeout returns the per-attempt transport timeout.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// CircuitConfig holds one provider's circuit breaker settings.
type CircuitConfig struct {
	FailureThreshold  int           `yaml:"failure_threshold" json:"failure_threshold"`
	RecoveryTimeout   time.Duration `yaml:"recovery_timeout" json:"recovery_timeout"`
	SlowCallThreshold time.Duration `yaml:"slow_call_threshold" json:"slow_call_threshold"`
	MaxConcurrent     int           `yaml:"max_concurrent" json:"max_concurrent"`
}

// RetryConfig holds one provider's retry policy settings.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns in s with the corresponding
// environment variable value.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

// Load reads and parses a YAML configuration file, applies environment
// variable substitution, sets defaults, and validates the result.
// Warnings are stored on cfg.Warnings (goroutine-safe, no package-level state).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes. Useful for testing.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.Warnings = collectWarnings(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}

	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 100
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 4096
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.TimeoutMs == 0 {
			p.TimeoutMs = 10000
		}
		if p.RequestsPerSecond == 0 {
			p.RequestsPerSecond = 5
		}
		if p.Burst == 0 {
			p.Burst = 5
		}
		if p.Circuit.FailureThreshold == 0 {
			p.Circuit.FailureThreshold = 5
		}
		if p.Circuit.RecoveryTimeout == 0 {
			p.Circuit.RecoveryTimeout = 30 * time.Second
		}
		if p.Retry.MaxAttempts == 0 {
			p.Retry.MaxAttempts = 3
		}
		if p.Retry.BaseDelay == 0 {
			p.Retry.BaseDelay = 500 * time.Millisecond
		}
		if p.Retry.MaxDelay == 0 {
			p.Retry.MaxDelay = 10 * time.Second
		}
	}
}

// ValidLogLevels are the accepted logging.level strings.
var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.GlobalTimeoutMs < 0 {
		return fmt.Errorf("server.global_timeout_ms must be non-negative")
	}

	if !ValidLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.Output != "stderr" {
		if cfg.Logging.MaxSizeMB < 1 {
			return fmt.Errorf("logging.max_size_mb must be positive when output is a file path")
		}
	}

	if cfg.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("rate_limit.max_requests must be positive")
	}
	if cfg.RateLimit.Window < time.Second {
		return fmt.Errorf("rate_limit.window must be at least 1s")
	}

	if cfg.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be positive")
	}

	if cfg.Admin.Enabled {
		if len(cfg.Admin.IPAllowlist) == 0 {
			return fmt.Errorf("admin.ip_allowlist is required when admin is enabled")
		}
		for i, cidr := range cfg.Admin.IPAllowlist {
			if _, _, err := net.ParseCIDR(cidr); err != nil {
				return fmt.Errorf("admin.ip_allowlist[%d]: invalid CIDR %q: %w", i, cidr, err)
			}
		}
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]bool)
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name: %s", p.Name)
		}
		seen[p.Name] = true

		if p.BaseURL == "" {
			return fmt.Errorf("providers[%d].base_url is required", i)
		}
		u, err := url.Parse(p.BaseURL)
		if err != nil {
			return fmt.Errorf("providers[%d].base_url: invalid URL: %w", i, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("providers[%d].base_url: scheme must be http or https, got %q", i, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("providers[%d].base_url: host is required", i)
		}

		if p.RequestsPerSecond <= 0 {
			return fmt.Errorf("providers[%d].requests_per_second must be positive", i)
		}
		if p.Burst < 1 {
			return fmt.Errorf("providers[%d].burst must be positive", i)
		}

		if p.Circuit.FailureThreshold < 1 {
			return fmt.Errorf("providers[%d].circuit.failure_threshold must be at least 1", i)
		}
		if p.Circuit.RecoveryTimeout < time.Second {
			return fmt.Errorf("providers[%d].circuit.recovery_timeout must be at least 1s", i)
		}
		if p.Circuit.SlowCallThreshold < 0 {
			return fmt.Errorf("providers[%d].circuit.slow_call_threshold must be non-negative", i)
		}
		if p.Circuit.MaxConcurrent < 0 {
			return fmt.Errorf("providers[%d].circuit.max_concurrent must be non-negative", i)
		}

		if p.Retry.MaxAttempts < 1 {
			return fmt.Errorf("providers[%d].retry.max_attempts must be at least 1", i)
		}
		if p.Retry.BaseDelay <= 0 {
			return fmt.Errorf("providers[%d].retry.base_delay must be positive", i)
		}
		if p.Retry.MaxDelay < p.Retry.BaseDelay {
			return fmt.Errorf("providers[%d].retry.max_delay must be >= base_delay", i)
		}

		if p.CacheTTL != nil && *p.CacheTTL < 0 {
			return fmt.Errorf("providers[%d].cache_ttl must be non-negative (0 disables caching)", i)
		}
	}

	return nil
}

func collectWarnings(cfg *Config) []string {
	var warnings []string
	for _, p := range cfg.Providers {
		if p.AuthHeader != "" && strings.Contains(p.AuthKey, "${") {
			warnings = append(warnings, fmt.Sprintf("providers.%s.auth_key contains unresolved environment variable", p.Name))
		}
		if p.CacheTTL != nil && *p.CacheTTL == 0 {
			warnings = append(warnings, fmt.Sprintf("providers.%s: caching disabled, every request will reach the provider", p.Name))
		}
	}
	return warnings
}

// Provider returns the configuration for the named provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
