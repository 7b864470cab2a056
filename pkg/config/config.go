// Package config provides the unified configuration system for QueryGate.
// It defines a single Config structure covering the gateway's sections:
//
//   - Server: instance identity and listen settings
//   - Backend: database engine selection and connection details
//   - Pool: connection pool sizing and lifecycle
//   - Security: validation policy for incoming queries
//   - Observability: metrics, tracing, logging
//
// Configuration is loaded from YAML with ${ENV_VAR} substitution, so
// credentials never need to live in the file itself.
//
// Example usage:
//
//	cfg := config.New("gateway-1", "postgres")
//	cfg.Pool.MaxSize = 20
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"

	"github.com/querygate/querygate/pkg/pool"
	"github.com/querygate/querygate/pkg/security"
)

// Config is the top-level configuration for a QueryGate instance.
type Config struct {
	// Server holds instance identity and serving settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Backend selects and configures the database engine
	Backend BackendConfig `yaml:"backend" json:"backend"`

	// Pool controls connection pool sizing and lifecycle
	Pool pool.Config `yaml:"pool" json:"pool"`

	// Security defines the validation policy applied to every query
	Security SecurityConfig `yaml:"security" json:"security"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig identifies the gateway instance.
type ServerConfig struct {
	// Name identifies this gateway instance in logs and audit records
	Name string `yaml:"name" json:"name"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// RequestTimeout bounds one query execution end to end (0 = unbounded)
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// BackendConfig selects the database engine and its connection details.
// Credentials should be supplied through ${ENV_VAR} references rather than
// literal values.
type BackendConfig struct {
	// Type selects the engine (postgres, mysql, sqlite, snowflake)
	Type string `yaml:"type" json:"type"`
	// DSN is the engine-specific connection string
	DSN string `yaml:"dsn" json:"dsn"`
	// Credentials holds supplementary auth material keyed by name
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// SecurityConfig mirrors the security gate policy in YAML-loadable form.
type SecurityConfig struct {
	// ReadOnly rejects any statement that is not a plain read
	ReadOnly bool `yaml:"read_only" json:"read_only"`
	// BlockedKeywords rejects queries containing any listed token
	BlockedKeywords []string `yaml:"blocked_keywords" json:"blocked_keywords"`
	// BlockedResources rejects queries referencing any listed table or schema
	BlockedResources []string `yaml:"blocked_resources" json:"blocked_resources"`
	// SensitiveFields are masked in every result row
	SensitiveFields []string `yaml:"sensitive_fields" json:"sensitive_fields"`
	// MaxQueryLength rejects queries longer than this many characters
	MaxQueryLength int `yaml:"max_query_length" json:"max_query_length"`
	// MaxRows truncates result sets beyond this many rows
	MaxRows int `yaml:"max_rows" json:"max_rows"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates distributed tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// MetricsAddr is the listen address for the metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// AuditLogPath writes audit records as JSON lines when set
	AuditLogPath string `yaml:"audit_log_path" json:"audit_log_path"`
}

// New creates a Config with production-ready defaults: a conservative pool,
// the default read-only security policy, and metrics enabled.
func New(name, backendType string) *Config {
	policy := security.DefaultPolicy()
	return &Config{
		Server: ServerConfig{
			Name:           name,
			LogLevel:       "info",
			RequestTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Type:        backendType,
			Credentials: make(map[string]string),
		},
		Pool: pool.DefaultConfig(),
		Security: SecurityConfig{
			ReadOnly:         policy.ReadOnly,
			BlockedKeywords:  policy.BlockedKeywords,
			BlockedResources: policy.BlockedResources,
			SensitiveFields:  policy.SensitiveFields,
			MaxQueryLength:   policy.MaxQueryLength,
			MaxRows:          policy.MaxRows,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
			MetricsAddr:   ":9090",
		},
	}
}

// Policy converts the YAML-loaded security section into the gate's policy.
func (sc *SecurityConfig) Policy() security.Policy {
	return security.Policy{
		ReadOnly:         sc.ReadOnly,
		BlockedKeywords:  sc.BlockedKeywords,
		BlockedResources: sc.BlockedResources,
		SensitiveFields:  sc.SensitiveFields,
		MaxQueryLength:   sc.MaxQueryLength,
		MaxRows:          sc.MaxRows,
	}
}

// Validate checks required fields and value ranges. Call after loading to
// catch configuration errors before the gateway starts.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.DSN == "" {
		return fmt.Errorf("backend.dsn is required")
	}
	if err := c.Pool.Validate(); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if c.Security.MaxQueryLength <= 0 {
		return fmt.Errorf("security.max_query_length must be positive")
	}
	if c.Security.MaxRows <= 0 {
		return fmt.Errorf("security.max_rows must be positive")
	}
	return nil
}
