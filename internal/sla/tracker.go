// Package sla maintains per-target uptime state derived from periodic health
// probes: up/down transitions, check counters, response-time history,
// recovery/detection durations, and a bounded incident log.
package sla

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
	"github.com/stayflow/opsdash/internal/timeseries"
)

const (
	// DefaultSampleCapacity covers 24h of history at one-minute cadence.
	DefaultSampleCapacity = 1440

	defaultMaxIncidents = 200
	defaultMaxDurations = 100
)

// TrackerConfig bounds the tracker's in-memory state
type TrackerConfig struct {
	SampleCapacity int
	MaxIncidents   int
	MaxDurations   int
}

// Tracker is the SLA state machine over all monitored targets. All mutation
// and all reads go through one mutex guarding the full target map; every
// operation under the lock is O(1) or O(bounded-n), so the coarse lock is
// cheap at probe cadence.
type Tracker struct {
	logger *zap.Logger
	cfg    TrackerConfig

	mu        sync.Mutex
	targets   map[string]*targetState
	order     []string
	incidents []model.Incident

	// onIncident, when set, is invoked after the lock is released for every
	// incident closed during RecordResult. Used for best-effort persistence.
	onIncident func(model.Incident)
}

type targetState struct {
	name               string
	isUp               bool
	totalChecks        int64
	successfulChecks   int64
	failedChecks       int64
	lastCheckedAt      time.Time
	downSince          *time.Time
	responseTimes      *timeseries.RingBuffer
	recoveryDurations  []float64
	detectionDurations []float64
}

// NewTracker creates a tracker with the given bounds. Zero config fields
// fall back to defaults.
func NewTracker(logger *zap.Logger, cfg TrackerConfig) *Tracker {
	if cfg.SampleCapacity <= 0 {
		cfg.SampleCapacity = DefaultSampleCapacity
	}
	if cfg.MaxIncidents <= 0 {
		cfg.MaxIncidents = defaultMaxIncidents
	}
	if cfg.MaxDurations <= 0 {
		cfg.MaxDurations = defaultMaxDurations
	}
	return &Tracker{
		logger:  logger.Named("sla-tracker"),
		cfg:     cfg,
		targets: make(map[string]*targetState),
	}
}

// OnIncident registers a callback invoked for every closed incident. Must be
// called before the tracker starts receiving results.
func (t *Tracker) OnIncident(fn func(model.Incident)) {
	t.onIncident = fn
}

// RecordResult feeds one probe result into the state machine. Targets are
// registered on first sight, starting in the Up state. The result's CheckedAt
// timestamp is the transition time.
func (t *Tracker) RecordResult(res model.ProbeResult) {
	now := res.CheckedAt
	if now.IsZero() {
		now = time.Now()
	}

	var closed *model.Incident

	t.mu.Lock()
	st, ok := t.targets[res.Target]
	if !ok {
		st = &targetState{
			name:          res.Target,
			isUp:          true,
			responseTimes: timeseries.NewRingBuffer(t.cfg.SampleCapacity),
		}
		t.targets[res.Target] = st
		t.order = append(t.order, res.Target)
	}

	st.totalChecks++
	st.lastCheckedAt = now

	if res.Success {
		st.successfulChecks++
		st.responseTimes.Append(timeseries.Sample{
			Timestamp: now,
			Value:     float64(res.ResponseTimeMs),
			Success:   true,
		})
		if !st.isUp {
			// recovery: close the downtime window
			duration := now.Sub(*st.downSince).Minutes()
			st.recoveryDurations = appendBounded(st.recoveryDurations, duration, t.cfg.MaxDurations)
			inc := model.Incident{
				ID:              uuid.New().String(),
				Target:          st.name,
				Kind:            model.IncidentKindDowntime,
				StartTime:       *st.downSince,
				EndTime:         now,
				DurationMinutes: duration,
			}
			t.incidents = append(t.incidents, inc)
			if len(t.incidents) > t.cfg.MaxIncidents {
				t.incidents = t.incidents[len(t.incidents)-t.cfg.MaxIncidents:]
			}
			st.isUp = true
			st.downSince = nil
			closed = &inc
		}
	} else {
		st.failedChecks++
		if st.isUp {
			st.isUp = false
			downAt := now
			st.downSince = &downAt
			// detection is instantaneous relative to the polling cadence
			st.detectionDurations = appendBounded(st.detectionDurations, 0, t.cfg.MaxDurations)
			t.logger.Warn("Target went down",
				zap.String("target", st.name),
				zap.Int("status_code", res.StatusCode),
				zap.String("error", res.Error))
		}
	}
	t.mu.Unlock()

	if closed != nil {
		t.logger.Info("Target recovered",
			zap.String("target", closed.Target),
			zap.Float64("downtime_minutes", closed.DurationMinutes))
		if t.onIncident != nil {
			t.onIncident(*closed)
		}
	}
}

// TargetSLA returns the summary for one target, or false if it is unknown.
func (t *Tracker) TargetSLA(name string) (model.TargetSLA, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.targets[name]
	if !ok {
		return model.TargetSLA{}, false
	}
	return t.summarize(st, time.Now()), true
}

// Report returns the full SLA report: per-target summaries in registration
// order, overall aggregates, and the recent incident log (most recent last).
func (t *Tracker) Report() model.SLAReport {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	report := model.SLAReport{
		GeneratedAt:     now,
		Targets:         make([]model.TargetSLA, 0, len(t.order)),
		RecentIncidents: append([]model.Incident(nil), t.incidents...),
	}

	var totalChecks, successfulChecks int64
	var mttrSum, mttdSum float64
	var mttrCount, mttdCount int

	for _, name := range t.order {
		st := t.targets[name]
		summary := t.summarize(st, now)
		report.Targets = append(report.Targets, summary)

		totalChecks += st.totalChecks
		successfulChecks += st.successfulChecks
		if len(st.recoveryDurations) > 0 {
			mttrSum += average(st.recoveryDurations)
			mttrCount++
		}
		if len(st.detectionDurations) > 0 {
			mttdSum += average(st.detectionDurations)
			mttdCount++
		}
	}

	report.OverallUptime = 100.0
	if totalChecks > 0 {
		report.OverallUptime = float64(successfulChecks) / float64(totalChecks) * 100
	}
	if mttrCount > 0 {
		report.OverallMTTRMinutes = mttrSum / float64(mttrCount)
	}
	if mttdCount > 0 {
		report.OverallMTTDMinutes = mttdSum / float64(mttdCount)
	}
	return report
}

// Incidents returns a copy of the retained incident log, oldest first.
func (t *Tracker) Incidents() []model.Incident {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Incident(nil), t.incidents...)
}

// IsUp reports the current up/down state of a target. Unknown targets are
// considered up, matching the initial state.
func (t *Tracker) IsUp(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.targets[name]; ok {
		return st.isUp
	}
	return true
}

// ResponseTimes returns the retained response-time samples for a target.
func (t *Tracker) ResponseTimes(name string) []timeseries.Sample {
	t.mu.Lock()
	st, ok := t.targets[name]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return st.responseTimes.ReadAll()
}

// summarize must be called with the lock held.
func (t *Tracker) summarize(st *targetState, now time.Time) model.TargetSLA {
	summary := model.TargetSLA{
		Name:             st.name,
		IsUp:             st.isUp,
		TotalChecks:      st.totalChecks,
		SuccessfulChecks: st.successfulChecks,
		FailedChecks:     st.failedChecks,
		UptimePercent:    100.0,
		LastCheckedAt:    st.lastCheckedAt,
		MTTRMinutes:      average(st.recoveryDurations),
		MTTDMinutes:      average(st.detectionDurations),
	}
	if st.totalChecks > 0 {
		summary.UptimePercent = float64(st.successfulChecks) / float64(st.totalChecks) * 100
	}
	if st.downSince != nil {
		downAt := *st.downSince
		summary.DownSince = &downAt
		summary.CurrentDowntimeMinutes = now.Sub(downAt).Minutes()
	}
	summary.ResponseTimeP50Ms = st.responseTimes.Percentile(50)
	summary.ResponseTimeP95Ms = st.responseTimes.Percentile(95)
	summary.ResponseTimeP99Ms = st.responseTimes.Percentile(99)
	return summary
}

func appendBounded(values []float64, v float64, max int) []float64 {
	values = append(values, v)
	if len(values) > max {
		values = values[len(values)-max:]
	}
	return values
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
