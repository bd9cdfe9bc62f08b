// Package alert turns probe results, SLA state, and business readings into
// deduplicated, acknowledgeable alerts. Rules are stateless and re-derived
// every cycle; acknowledgement and snooze state lives in the lifecycle
// ledger and is joined onto instances by id at evaluation time.
package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
	"github.com/stayflow/opsdash/internal/sla"
)

// BusinessMetrics supplies read-only business counters consumed by specific
// rules. Failures are treated as "value unavailable, rule does not fire".
type BusinessMetrics interface {
	StuckBookings(ctx context.Context) (int, error)
	ErrorsLastHour(ctx context.Context) (int, error)
}

// SystemMetrics supplies host resource readings for the resource rules.
type SystemMetrics interface {
	Usage(ctx context.Context) (cpuPercent, memPercent float64, err error)
}

// Notifier delivers qualifying alerts to external channels. Best effort:
// errors never reach alert state.
type Notifier interface {
	Send(ctx context.Context, a model.Alert) error
}

// input is the per-cycle snapshot a rule evaluates against.
type input struct {
	now        time.Time
	results    []model.ProbeResult
	thresholds model.Thresholds
}

type rule struct {
	name string
	eval func(ctx context.Context, in input) ([]model.Alert, error)
}

// Evaluator runs the fixed rule list each cycle, annotates the results from
// the ledger, records history, and triggers notification for alerts that are
// new, unacknowledged, unsnoozed, and at or above the configured minimum
// severity.
type Evaluator struct {
	logger     *zap.Logger
	tracker    *sla.Tracker
	thresholds *ThresholdStore
	ledger     *Ledger
	business   BusinessMetrics
	system     SystemMetrics
	notifier   Notifier
	rules      []rule

	mu         sync.Mutex
	prevFiring map[string]bool
	lastAlerts []model.Alert
}

// NewEvaluator wires the evaluator. business, system, and notifier may be
// nil; the rules depending on them simply never fire.
func NewEvaluator(logger *zap.Logger, tracker *sla.Tracker, thresholds *ThresholdStore, ledger *Ledger, business BusinessMetrics, system SystemMetrics, notifier Notifier) *Evaluator {
	e := &Evaluator{
		logger:     logger.Named("alert-evaluator"),
		tracker:    tracker,
		thresholds: thresholds,
		ledger:     ledger,
		business:   business,
		system:     system,
		notifier:   notifier,
		prevFiring: make(map[string]bool),
	}
	e.rules = []rule{
		{name: "connectivity", eval: e.checkConnectivity},
		{name: "low_uptime", eval: e.checkUptime},
		{name: "slow_responses", eval: e.checkSlowResponses},
		{name: "stuck_bookings", eval: e.checkStuckBookings},
		{name: "error_rate", eval: e.checkErrorRate},
		{name: "host_resources", eval: e.checkHostResources},
	}
	return e
}

// RunCycle evaluates all rules against the given probe results and returns
// the raw annotated alert list. Suppressed (acknowledged or snoozed) alerts
// stay in the list; filtering them out is the presentation layer's job.
func (e *Evaluator) RunCycle(ctx context.Context, results []model.ProbeResult) []model.Alert {
	in := input{
		now:        time.Now(),
		results:    results,
		thresholds: e.thresholds.Get(),
	}

	var alerts []model.Alert
	for _, r := range e.rules {
		fired, err := r.eval(ctx, in)
		if err != nil {
			// a failing sub-check never aborts the remaining rules
			e.logger.Warn("Alert rule skipped",
				zap.String("rule", r.name),
				zap.Error(err))
			continue
		}
		alerts = append(alerts, fired...)
	}

	e.ledger.AnnotateAll(alerts)
	e.ledger.AppendHistory(alerts)

	minSeverity := model.AlertSeverity(in.thresholds.NotifyMinSeverity)

	e.mu.Lock()
	firing := make(map[string]bool, len(alerts))
	var toNotify []model.Alert
	for _, a := range alerts {
		firing[a.ID] = true
		if e.prevFiring[a.ID] {
			continue
		}
		if a.IsAcknowledged || a.IsSnoozed {
			continue
		}
		if a.Severity.Rank() < minSeverity.Rank() {
			continue
		}
		toNotify = append(toNotify, a)
	}
	e.prevFiring = firing
	e.lastAlerts = append([]model.Alert(nil), alerts...)
	e.mu.Unlock()

	if e.notifier != nil && len(toNotify) > 0 {
		// fire-and-forget: a slow or failing channel must not delay the cycle
		go e.dispatch(toNotify)
	}

	return alerts
}

// CurrentAlerts returns the most recent cycle's alerts with freshly joined
// ledger state, so acknowledgements made between cycles are visible
// immediately.
func (e *Evaluator) CurrentAlerts() []model.Alert {
	e.mu.Lock()
	alerts := append([]model.Alert(nil), e.lastAlerts...)
	e.mu.Unlock()

	e.ledger.AnnotateAll(alerts)
	return alerts
}

func (e *Evaluator) dispatch(alerts []model.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, a := range alerts {
		if err := e.notifier.Send(ctx, a); err != nil {
			e.logger.Error("Notification dispatch failed",
				zap.String("alert_id", a.ID),
				zap.Error(err))
			continue
		}
		e.logger.Info("Notification dispatched",
			zap.String("alert_id", a.ID),
			zap.String("severity", string(a.Severity)))
	}
}
