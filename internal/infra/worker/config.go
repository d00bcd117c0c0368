package worker

import (
	"fmt"
	"log/slog"
	"time"

	"jobradar/internal/pkg/config"
)

// WorkerConfig holds the operational settings of the scheduler daemon.
// The job schedules themselves (fetch interval, digest send time) come
// from the application config file; this struct only covers the knobs
// that belong to the process, loaded from environment variables.
type WorkerConfig struct {
	// Timezone is the IANA timezone name used for cron scheduling.
	// The digest send time in the config file is interpreted in this zone.
	Timezone string

	// RunTimeout bounds a single scheduled run (fetch or digest).
	// Range: 1 minute to 4 hours.
	RunTimeout time.Duration

	// HealthPort is the port for the liveness/readiness HTTP server.
	// Range: 1024-65535.
	HealthPort int
}

// DefaultConfig returns production defaults: UTC scheduling, a 30 minute
// run timeout, and the conventional exporter port for health checks.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Timezone:   "UTC",
		RunTimeout: 30 * time.Minute,
		HealthPort: 9091,
	}
}

// Validate checks every field and aggregates the failures.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDurationRange(c.RunTimeout, 1*time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with a fail-open strategy: invalid values fall back to the default, emit
// a warning, and increment the fallback metrics. The returned config is
// always valid and the error is always nil.
//
// Environment variables:
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - WORKER_RUN_TIMEOUT: Duration string, e.g. "30m" (default: 30 minutes)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("WORKER_RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDurationRange(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.RunTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("run_timeout")
		metrics.RecordFallback("run_timeout")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "RunTimeout"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	// フェイルオープン: 常に有効な設定を返す
	return &cfg, nil
}
