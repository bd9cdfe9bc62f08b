package model

import "time"

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Rank returns the ordering weight of a severity, higher is more severe.
// Unknown severities rank below info.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeverityInfo:
		return 1
	case AlertSeverityWarning:
		return 2
	case AlertSeverityCritical:
		return 3
	default:
		return 0
	}
}

// AlertCategory groups alerts by the subsystem they concern
type AlertCategory string

const (
	AlertCategoryConnectivity AlertCategory = "connectivity"
	AlertCategoryPerformance  AlertCategory = "performance"
	AlertCategoryBusiness     AlertCategory = "business"
	AlertCategoryResource     AlertCategory = "resource"
)

// Alert represents a single evaluated alert condition.
//
// The ID is stable per rule (and per target, for per-target rules), not per
// firing: the same condition firing across cycles produces the same ID, which
// is what makes acknowledgement and snoozing meaningful. Acknowledged/snoozed
// flags are joined in from the lifecycle ledger at evaluation time; they are
// not carried on the instance between cycles.
type Alert struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Severity       AlertSeverity `json:"severity"`
	Category       AlertCategory `json:"category"`
	Timestamp      time.Time     `json:"timestamp"`
	IsAcknowledged bool          `json:"is_acknowledged"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	IsSnoozed      bool          `json:"is_snoozed"`
	SnoozedUntil   *time.Time    `json:"snoozed_until,omitempty"`
}

// Thresholds holds the runtime-editable numeric thresholds that parameterize
// alert rule evaluation. The whole record is swapped atomically on update;
// in-flight evaluation cycles keep the snapshot captured at cycle start.
type Thresholds struct {
	SlowAPIThresholdMs   int     `json:"slow_api_threshold_ms" mapstructure:"slow_api_threshold_ms"`
	SlowRequestCount     int     `json:"slow_request_count" mapstructure:"slow_request_count"`
	MinUptimePercent     float64 `json:"min_uptime_percent" mapstructure:"min_uptime_percent"`
	StuckBookingCount    int     `json:"stuck_booking_count" mapstructure:"stuck_booking_count"`
	ErrorsPerHour        int     `json:"errors_per_hour" mapstructure:"errors_per_hour"`
	MaxCPUPercent        float64 `json:"max_cpu_percent" mapstructure:"max_cpu_percent"`
	MaxMemoryPercent     float64 `json:"max_memory_percent" mapstructure:"max_memory_percent"`
	NotifyMinSeverity    string  `json:"notify_min_severity" mapstructure:"notify_min_severity"`
	SnoozeDefaultMinutes int     `json:"snooze_default_minutes" mapstructure:"snooze_default_minutes"`
}

// DefaultThresholds returns the configuration used when none is supplied.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowAPIThresholdMs:   5000,
		SlowRequestCount:     5,
		MinUptimePercent:     99.0,
		StuckBookingCount:    10,
		ErrorsPerHour:        25,
		MaxCPUPercent:        90.0,
		MaxMemoryPercent:     90.0,
		NotifyMinSeverity:    string(AlertSeverityWarning),
		SnoozeDefaultMinutes: 60,
	}
}
