package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/stayflow/opsdash/internal/model"
)

// alertID builds a stable identifier from rule name parts. Stable ids are
// what tie repeated firings of one condition to a single acknowledgeable
// identity across cycles. Configured target names may contain spaces or
// punctuation; anything outside [A-Z0-9] maps to an underscore.
func alertID(parts ...string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.ToUpper(strings.Join(parts, "_")))
}

// checkConnectivity fires one critical alert per target whose probe failed
// this cycle.
func (e *Evaluator) checkConnectivity(_ context.Context, in input) ([]model.Alert, error) {
	var alerts []model.Alert
	for _, res := range in.results {
		if res.Success {
			continue
		}
		detail := res.Error
		if detail == "" && res.StatusCode > 0 {
			detail = fmt.Sprintf("status %d", res.StatusCode)
		}
		alerts = append(alerts, model.Alert{
			ID:        alertID("TARGET_DOWN", res.Target),
			Title:     fmt.Sprintf("%s is unreachable", res.Target),
			Message:   fmt.Sprintf("Health check for %s failed: %s", res.Target, detail),
			Severity:  model.AlertSeverityCritical,
			Category:  model.AlertCategoryConnectivity,
			Timestamp: in.now,
		})
	}
	return alerts, nil
}

// checkUptime fires when a target's uptime ratio drops below the configured
// minimum. Targets with no checks yet report 100% and never fire.
func (e *Evaluator) checkUptime(_ context.Context, in input) ([]model.Alert, error) {
	var alerts []model.Alert
	for _, summary := range e.tracker.Report().Targets {
		if summary.TotalChecks == 0 || summary.UptimePercent >= in.thresholds.MinUptimePercent {
			continue
		}
		alerts = append(alerts, model.Alert{
			ID:        alertID("LOW_UPTIME", summary.Name),
			Title:     fmt.Sprintf("%s uptime below SLA", summary.Name),
			Message:   fmt.Sprintf("%s uptime is %.2f%%, below the %.2f%% threshold", summary.Name, summary.UptimePercent, in.thresholds.MinUptimePercent),
			Severity:  model.AlertSeverityWarning,
			Category:  model.AlertCategoryConnectivity,
			Timestamp: in.now,
		})
	}
	return alerts, nil
}

// checkSlowResponses fires when a target has accumulated too many responses
// slower than the configured threshold in its retained history.
func (e *Evaluator) checkSlowResponses(_ context.Context, in input) ([]model.Alert, error) {
	var alerts []model.Alert
	for _, summary := range e.tracker.Report().Targets {
		slow := 0
		for _, s := range e.tracker.ResponseTimes(summary.Name) {
			if s.Value > float64(in.thresholds.SlowAPIThresholdMs) {
				slow++
			}
		}
		if slow < in.thresholds.SlowRequestCount {
			continue
		}
		alerts = append(alerts, model.Alert{
			ID:        alertID("SLOW_API", summary.Name),
			Title:     fmt.Sprintf("%s is responding slowly", summary.Name),
			Message:   fmt.Sprintf("%d responses from %s exceeded %dms (p95 %.0fms)", slow, summary.Name, in.thresholds.SlowAPIThresholdMs, summary.ResponseTimeP95Ms),
			Severity:  model.AlertSeverityWarning,
			Category:  model.AlertCategoryPerformance,
			Timestamp: in.now,
		})
	}
	return alerts, nil
}

// checkStuckBookings fires when the booking pipeline has too many bookings
// stuck in a non-terminal state.
func (e *Evaluator) checkStuckBookings(ctx context.Context, in input) ([]model.Alert, error) {
	if e.business == nil {
		return nil, nil
	}
	stuck, err := e.business.StuckBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("stuck bookings unavailable: %w", err)
	}
	if stuck < in.thresholds.StuckBookingCount {
		return nil, nil
	}
	return []model.Alert{{
		ID:        "STUCK_BOOKINGS",
		Title:     "Bookings stuck in processing",
		Message:   fmt.Sprintf("%d bookings have been stuck longer than expected (threshold %d)", stuck, in.thresholds.StuckBookingCount),
		Severity:  model.AlertSeverityWarning,
		Category:  model.AlertCategoryBusiness,
		Timestamp: in.now,
	}}, nil
}

// checkErrorRate fires when the platform logged too many errors in the last
// hour.
func (e *Evaluator) checkErrorRate(ctx context.Context, in input) ([]model.Alert, error) {
	if e.business == nil {
		return nil, nil
	}
	errs, err := e.business.ErrorsLastHour(ctx)
	if err != nil {
		return nil, fmt.Errorf("error count unavailable: %w", err)
	}
	if errs < in.thresholds.ErrorsPerHour {
		return nil, nil
	}
	severity := model.AlertSeverityWarning
	if errs >= in.thresholds.ErrorsPerHour*2 {
		severity = model.AlertSeverityCritical
	}
	return []model.Alert{{
		ID:        "HIGH_ERROR_RATE",
		Title:     "Elevated platform error rate",
		Message:   fmt.Sprintf("%d errors in the last hour (threshold %d)", errs, in.thresholds.ErrorsPerHour),
		Severity:  severity,
		Category:  model.AlertCategoryBusiness,
		Timestamp: in.now,
	}}, nil
}

// checkHostResources fires on high CPU or memory usage of the dashboard host.
func (e *Evaluator) checkHostResources(ctx context.Context, in input) ([]model.Alert, error) {
	if e.system == nil {
		return nil, nil
	}
	cpuPercent, memPercent, err := e.system.Usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("host usage unavailable: %w", err)
	}

	var alerts []model.Alert
	if cpuPercent > in.thresholds.MaxCPUPercent {
		alerts = append(alerts, model.Alert{
			ID:        "HIGH_CPU",
			Title:     "Host CPU usage high",
			Message:   fmt.Sprintf("CPU usage at %.1f%% (threshold %.1f%%)", cpuPercent, in.thresholds.MaxCPUPercent),
			Severity:  model.AlertSeverityWarning,
			Category:  model.AlertCategoryResource,
			Timestamp: in.now,
		})
	}
	if memPercent > in.thresholds.MaxMemoryPercent {
		alerts = append(alerts, model.Alert{
			ID:        "HIGH_MEMORY",
			Title:     "Host memory usage high",
			Message:   fmt.Sprintf("Memory usage at %.1f%% (threshold %.1f%%)", memPercent, in.thresholds.MaxMemoryPercent),
			Severity:  model.AlertSeverityWarning,
			Category:  model.AlertCategoryResource,
			Timestamp: in.now,
		})
	}
	return alerts, nil
}
