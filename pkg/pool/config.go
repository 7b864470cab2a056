package pool

import (
	"time"

	"github.com/querygate/querygate/pkg/errors"
)

// MaxSizeCeiling is the hard upper bound on pool capacity.
const MaxSizeCeiling = 50

// Config holds the immutable sizing and lifecycle parameters of a pool.
type Config struct {
	// MinSize is the number of resources created eagerly at initialization
	MinSize int `yaml:"min_size" json:"min_size"`
	// MaxSize bounds the number of live resources, overflow included
	MaxSize int `yaml:"max_size" json:"max_size"`
	// AcquireTimeout bounds how long Acquire waits for a resource
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
	// HealthCheckInterval is the period of the background idle audit
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
	// RecycleAge is the maximum lifetime before a resource is proactively replaced
	RecycleAge time.Duration `yaml:"recycle_age" json:"recycle_age"`
}

// DefaultConfig returns production defaults sized for a handful of
// concurrent callers against one backend.
func DefaultConfig() Config {
	return Config{
		MinSize:             2,
		MaxSize:             10,
		AcquireTimeout:      30 * time.Second,
		HealthCheckInterval: 60 * time.Second,
		RecycleAge:          time.Hour,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.MinSize < 1 {
		return errors.New(errors.ErrorTypeConfig, "min_size must be at least 1")
	}
	if c.MaxSize < c.MinSize {
		return errors.New(errors.ErrorTypeConfig, "max_size must be >= min_size").
			WithDetail("min_size", c.MinSize).
			WithDetail("max_size", c.MaxSize)
	}
	if c.MaxSize > MaxSizeCeiling {
		return errors.New(errors.ErrorTypeConfig, "max_size exceeds ceiling").
			WithDetail("max_size", c.MaxSize).
			WithDetail("ceiling", MaxSizeCeiling)
	}
	if c.AcquireTimeout <= 0 {
		return errors.New(errors.ErrorTypeConfig, "acquire_timeout must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return errors.New(errors.ErrorTypeConfig, "health_check_interval must be positive")
	}
	if c.RecycleAge <= 0 {
		return errors.New(errors.ErrorTypeConfig, "recycle_age must be positive")
	}
	return nil
}
