package model

import "time"

// TargetKind distinguishes how a monitored target is probed
type TargetKind string

const (
	TargetKindHTTP      TargetKind = "http"
	TargetKindContainer TargetKind = "container"
)

// Target describes one monitored endpoint or backing service. Container is
// the container name or id probed for container targets.
type Target struct {
	Name      string        `json:"name" mapstructure:"name"`
	Kind      TargetKind    `json:"kind" mapstructure:"kind"`
	URL       string        `json:"url,omitempty" mapstructure:"url"`
	Container string        `json:"container,omitempty" mapstructure:"container"`
	Timeout   time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
}

// ProbeResult is the outcome of a single health check against one target.
// CheckedAt is the instant the check completed; the SLA tracker uses it as
// the transition time, which keeps the state machine deterministic.
type ProbeResult struct {
	Target         string    `json:"target"`
	Success        bool      `json:"success"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	StatusCode     int       `json:"status_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}
