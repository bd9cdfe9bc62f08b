package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/alert"
	"github.com/stayflow/opsdash/internal/model"
	"github.com/stayflow/opsdash/internal/probe"
	"github.com/stayflow/opsdash/internal/sla"
)

// scriptedProber returns canned outcomes per target, advancing through the
// script on each check.
type scriptedProber struct {
	mu      sync.Mutex
	script  map[string][]bool
	delay   time.Duration
	checked int
}

func (p *scriptedProber) Check(_ context.Context, target model.Target) model.ProbeResult {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.checked++

	outcomes := p.script[target.Name]
	success := true
	if len(outcomes) > 0 {
		success = outcomes[0]
		p.script[target.Name] = outcomes[1:]
	}

	res := model.ProbeResult{
		Target:         target.Name,
		Success:        success,
		ResponseTimeMs: 50,
		CheckedAt:      time.Now(),
	}
	if !success {
		res.Error = "scripted failure"
	}
	return res
}

func newTestMonitor(t *testing.T, prober probe.Prober, targets ...model.Target) (*Monitor, *sla.Tracker, *alert.Evaluator, *alert.Ledger) {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	tracker := sla.NewTracker(logger, sla.TrackerConfig{})
	thresholds := alert.NewThresholdStore(model.DefaultThresholds())
	ledger := alert.NewLedger(100)
	evaluator := alert.NewEvaluator(logger, tracker, thresholds, ledger, nil, nil, nil)

	probers := map[model.TargetKind]probe.Prober{
		model.TargetKindHTTP: prober,
	}
	m := New(logger, Config{
		Interval: 50 * time.Millisecond,
		Targets:  targets,
	}, probers, tracker, evaluator, ledger, nil)
	return m, tracker, evaluator, ledger
}

func TestMonitor_CycleFeedsTrackerAndEvaluator(t *testing.T) {
	prober := &scriptedProber{script: map[string][]bool{
		"api": {false},
		"web": {true},
	}}
	m, tracker, evaluator, _ := newTestMonitor(t, prober,
		model.Target{Name: "api", Kind: model.TargetKindHTTP},
		model.Target{Name: "web", Kind: model.TargetKindHTTP},
	)

	m.RunCycle(context.Background())

	require.False(t, tracker.IsUp("api"))
	require.True(t, tracker.IsUp("web"))

	current := evaluator.CurrentAlerts()
	var downIDs []string
	for _, a := range current {
		downIDs = append(downIDs, a.ID)
	}
	require.Contains(t, downIDs, "TARGET_DOWN_API")
	require.NotContains(t, downIDs, "TARGET_DOWN_WEB")
}

func TestMonitor_ProbesRunConcurrently(t *testing.T) {
	prober := &scriptedProber{
		script: map[string][]bool{},
		delay:  100 * time.Millisecond,
	}
	targets := []model.Target{
		{Name: "a", Kind: model.TargetKindHTTP},
		{Name: "b", Kind: model.TargetKindHTTP},
		{Name: "c", Kind: model.TargetKindHTTP},
		{Name: "d", Kind: model.TargetKindHTTP},
	}
	m, _, _, _ := newTestMonitor(t, prober, targets...)

	start := time.Now()
	m.RunCycle(context.Background())
	elapsed := time.Since(start)

	// four 100ms probes in parallel, not in sequence
	require.Less(t, elapsed, 350*time.Millisecond)
}

func TestMonitor_UnknownTargetKindCountsAsFailure(t *testing.T) {
	prober := &scriptedProber{script: map[string][]bool{}}
	m, tracker, _, _ := newTestMonitor(t, prober,
		model.Target{Name: "legacy", Kind: model.TargetKind("ftp")},
	)

	m.RunCycle(context.Background())
	require.False(t, tracker.IsUp("legacy"))
}

func TestMonitor_StartStop(t *testing.T) {
	prober := &scriptedProber{script: map[string][]bool{}}
	m, tracker, _, _ := newTestMonitor(t, prober,
		model.Target{Name: "api", Kind: model.TargetKindHTTP},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.Start(ctx))

	// at least the immediate first cycle plus one tick
	require.Eventually(t, func() bool {
		summary, ok := tracker.TargetSLA("api")
		return ok && summary.TotalChecks >= 2
	}, 2*time.Second, 10*time.Millisecond)

	m.Stop()

	summary, _ := tracker.TargetSLA("api")
	after := summary.TotalChecks
	time.Sleep(150 * time.Millisecond)
	summary, _ = tracker.TargetSLA("api")
	require.Equal(t, after, summary.TotalChecks, "no cycles after Stop")
}
