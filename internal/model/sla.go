package model

import "time"

// IncidentKind classifies a recorded incident
type IncidentKind string

const (
	IncidentKindDowntime IncidentKind = "downtime"
)

// Incident is a closed interval of downtime for one target. It is created
// exactly once per continuous downtime window, at the moment of recovery.
type Incident struct {
	ID              string       `json:"id"`
	Target          string       `json:"target"`
	Kind            IncidentKind `json:"kind"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationMinutes float64      `json:"duration_minutes"`
}

// TargetSLA is the read-side summary of one target's health state
type TargetSLA struct {
	Name                   string     `json:"name"`
	IsUp                   bool       `json:"is_up"`
	TotalChecks            int64      `json:"total_checks"`
	SuccessfulChecks       int64      `json:"successful_checks"`
	FailedChecks           int64      `json:"failed_checks"`
	UptimePercent          float64    `json:"uptime_percent"`
	LastCheckedAt          time.Time  `json:"last_checked_at"`
	DownSince              *time.Time `json:"down_since,omitempty"`
	CurrentDowntimeMinutes float64    `json:"current_downtime_minutes"`
	MTTRMinutes            float64    `json:"mttr_minutes"`
	MTTDMinutes            float64    `json:"mttd_minutes"`
	ResponseTimeP50Ms      float64    `json:"response_time_p50_ms"`
	ResponseTimeP95Ms      float64    `json:"response_time_p95_ms"`
	ResponseTimeP99Ms      float64    `json:"response_time_p99_ms"`
}

// SLAReport aggregates all targets plus the recent incident log
type SLAReport struct {
	GeneratedAt        time.Time   `json:"generated_at"`
	OverallUptime      float64     `json:"overall_uptime"`
	OverallMTTRMinutes float64     `json:"overall_mttr_minutes"`
	OverallMTTDMinutes float64     `json:"overall_mttd_minutes"`
	Targets            []TargetSLA `json:"targets"`
	RecentIncidents    []Incident  `json:"recent_incidents"`
}
