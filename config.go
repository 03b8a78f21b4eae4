package kafkaflow

import (
	"fmt"
	"time"
)

// Config is the configuration for the Balancer.
//
// All fields are fixed for the lifetime of the balancer; there is no runtime
// reconfiguration. All duration fields accept standard Go duration strings
// like "30s", "5m", "1h" when unmarshalled from YAML.
type Config struct {
	// ConsumerName identifies the logical consumer owning the worker pool.
	// Carried into every evaluation context, log event, and sink call.
	ConsumerName string `yaml:"consumerName"`

	// GroupID is the Kafka consumer group the instance participates in.
	// Committed offsets are fetched for this group.
	GroupID string `yaml:"groupId"`

	// TotalWorkers is the target aggregate worker count across ALL instances
	// of the consumer group. Each instance receives a share proportional to
	// the fraction of group-wide lag its assigned partitions carry.
	// Must be positive.
	TotalWorkers int `yaml:"totalWorkers"`

	// MinInstanceWorkers is the lower clamp for this instance's computed
	// worker count. May be zero. Note that the fixed fallback count of one
	// worker (empty assignment or evaluation failure) bypasses this clamp.
	MinInstanceWorkers int `yaml:"minInstanceWorkers"`

	// MaxInstanceWorkers is the upper clamp for this instance's computed
	// worker count. Must be >= MinInstanceWorkers.
	// Bounds the blast radius of one instance absorbing all backlog.
	MaxInstanceWorkers int `yaml:"maxInstanceWorkers"`

	// EvaluationInterval is how often the balancer re-evaluates the worker
	// count. Evaluations never overlap: a tick still running when the next
	// interval elapses defers the next tick instead of racing it.
	// Recommended: 30 seconds to a few minutes.
	EvaluationInterval time.Duration `yaml:"evaluationInterval"`

	// WatermarkTimeout bounds each per-partition high-watermark query so a
	// single slow partition cannot stall an evaluation indefinitely.
	// Recommended: 30 seconds.
	WatermarkTimeout time.Duration `yaml:"watermarkTimeout"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// ConsumerName and GroupID have no defaults and must be set by the caller.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		TotalWorkers:       50,
		MinInstanceWorkers: 1,
		MaxInstanceWorkers: 50,
		EvaluationInterval: time.Minute,
		WatermarkTimeout:   30 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// MinInstanceWorkers is left untouched: zero is a valid explicit minimum.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.TotalWorkers == 0 {
		cfg.TotalWorkers = defaults.TotalWorkers
	}
	if cfg.MaxInstanceWorkers == 0 {
		cfg.MaxInstanceWorkers = defaults.MaxInstanceWorkers
	}
	if cfg.EvaluationInterval == 0 {
		cfg.EvaluationInterval = defaults.EvaluationInterval
	}
	if cfg.WatermarkTimeout == 0 {
		cfg.WatermarkTimeout = defaults.WatermarkTimeout
	}
}

// Validate checks configuration constraints and returns an error for invalid values.
//
// Hard Validation Rules:
//   - ConsumerName non-empty
//   - GroupID non-empty
//   - TotalWorkers > 0
//   - MinInstanceWorkers >= 0
//   - MaxInstanceWorkers >= MinInstanceWorkers
//   - EvaluationInterval > 0
//   - WatermarkTimeout > 0
//
// Validation is eager: NewBalancer rejects an invalid configuration so a
// subscription never starts with a broken balancer.
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.ConsumerName == "" {
		return fmt.Errorf("ConsumerName must not be empty")
	}

	if cfg.GroupID == "" {
		return fmt.Errorf("GroupID must not be empty")
	}

	if cfg.TotalWorkers <= 0 {
		return fmt.Errorf("TotalWorkers must be > 0, got %d", cfg.TotalWorkers)
	}

	if cfg.MinInstanceWorkers < 0 {
		return fmt.Errorf("MinInstanceWorkers must be >= 0, got %d", cfg.MinInstanceWorkers)
	}

	if cfg.MaxInstanceWorkers < cfg.MinInstanceWorkers {
		return fmt.Errorf(
			"MaxInstanceWorkers (%d) must be >= MinInstanceWorkers (%d)",
			cfg.MaxInstanceWorkers, cfg.MinInstanceWorkers,
		)
	}

	if cfg.EvaluationInterval <= 0 {
		return fmt.Errorf("EvaluationInterval must be > 0, got %v", cfg.EvaluationInterval)
	}

	if cfg.WatermarkTimeout <= 0 {
		return fmt.Errorf("WatermarkTimeout must be > 0, got %v", cfg.WatermarkTimeout)
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for non-recommended values.
//
// This is called after Validate() in NewBalancer() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	// Warn if the evaluation interval is very short relative to the watermark
	// timeout; a degraded cluster then pins the loop in back-to-back ticks.
	if cfg.EvaluationInterval < cfg.WatermarkTimeout {
		logger.Warn(
			"EvaluationInterval is shorter than WatermarkTimeout, slow partitions will defer ticks",
			"evaluationInterval", cfg.EvaluationInterval,
			"watermarkTimeout", cfg.WatermarkTimeout,
		)
	}

	// Warn if one instance is allowed to absorb the entire target.
	if cfg.MaxInstanceWorkers > cfg.TotalWorkers {
		logger.Warn(
			"MaxInstanceWorkers exceeds TotalWorkers, a single instance can overshoot the aggregate target",
			"maxInstanceWorkers", cfg.MaxInstanceWorkers,
			"totalWorkers", cfg.TotalWorkers,
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-100x faster than production defaults to enable
// rapid iteration without sacrificing test coverage. Use DefaultConfig()
// for production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.ConsumerName = "test-consumer"
	cfg.GroupID = "test-group"

	// Fast timings for test execution
	cfg.EvaluationInterval = 50 * time.Millisecond // 1200x faster
	cfg.WatermarkTimeout = 2 * time.Second         // 15x faster

	return cfg
}
