package alert

import (
	"fmt"
	"sync"

	"github.com/stayflow/opsdash/internal/model"
)

// ThresholdStore holds the current threshold configuration. Updates swap the
// whole record atomically; evaluation cycles snapshot it once at cycle start,
// so an in-flight cycle never sees a half-applied update.
type ThresholdStore struct {
	mu      sync.RWMutex
	current model.Thresholds
}

// NewThresholdStore creates a store seeded with the given configuration.
func NewThresholdStore(initial model.Thresholds) *ThresholdStore {
	return &ThresholdStore{current: initial}
}

// Get returns a copy of the current configuration.
func (s *ThresholdStore) Get() model.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and installs a new configuration. On validation failure
// the prior configuration remains in effect.
func (s *ThresholdStore) Update(cfg model.Thresholds) (model.Thresholds, error) {
	if err := validateThresholds(cfg); err != nil {
		return s.Get(), err
	}

	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return cfg, nil
}

func validateThresholds(cfg model.Thresholds) error {
	if cfg.SlowAPIThresholdMs <= 0 {
		return fmt.Errorf("slow_api_threshold_ms must be positive, got %d", cfg.SlowAPIThresholdMs)
	}
	if cfg.SlowRequestCount <= 0 {
		return fmt.Errorf("slow_request_count must be positive, got %d", cfg.SlowRequestCount)
	}
	if cfg.MinUptimePercent <= 0 || cfg.MinUptimePercent > 100 {
		return fmt.Errorf("min_uptime_percent must be in (0, 100], got %g", cfg.MinUptimePercent)
	}
	if cfg.StuckBookingCount <= 0 {
		return fmt.Errorf("stuck_booking_count must be positive, got %d", cfg.StuckBookingCount)
	}
	if cfg.ErrorsPerHour <= 0 {
		return fmt.Errorf("errors_per_hour must be positive, got %d", cfg.ErrorsPerHour)
	}
	if cfg.MaxCPUPercent <= 0 || cfg.MaxCPUPercent > 100 {
		return fmt.Errorf("max_cpu_percent must be in (0, 100], got %g", cfg.MaxCPUPercent)
	}
	if cfg.MaxMemoryPercent <= 0 || cfg.MaxMemoryPercent > 100 {
		return fmt.Errorf("max_memory_percent must be in (0, 100], got %g", cfg.MaxMemoryPercent)
	}
	switch model.AlertSeverity(cfg.NotifyMinSeverity) {
	case model.AlertSeverityInfo, model.AlertSeverityWarning, model.AlertSeverityCritical:
	default:
		return fmt.Errorf("notify_min_severity must be one of info, warning, critical, got %q", cfg.NotifyMinSeverity)
	}
	if cfg.SnoozeDefaultMinutes <= 0 {
		return fmt.Errorf("snooze_default_minutes must be positive, got %d", cfg.SnoozeDefaultMinutes)
	}
	return nil
}
