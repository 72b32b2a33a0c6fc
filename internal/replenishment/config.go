package replenishment

import (
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
)

// Config holds the knobs of a replenishment run.
type Config struct {
	BatchSize       int
	MinADSThreshold float64
	ErrorRecovery   bool
	MaxRetries      int
	RetryDelay      time.Duration
	Workers         int // concurrent items inside a batch
	Debug           bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       100,
		MinADSThreshold: 0.1,
		ErrorRecovery:   true,
		MaxRetries:      3,
		RetryDelay:      100 * time.Millisecond,
		Workers:         1,
	}
}

// ConfigFrom maps the application config onto the engine config.
func ConfigFrom(cfg config.ReplenishmentConfig) Config {
	return Config{
		BatchSize:       cfg.BatchSize,
		MinADSThreshold: cfg.MinADSThreshold,
		ErrorRecovery:   cfg.ErrorRecovery,
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay,
		Workers:         cfg.Workers,
		Debug:           cfg.Debug,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MinADSThreshold < 0 {
		c.MinADSThreshold = def.MinADSThreshold
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	return c
}
