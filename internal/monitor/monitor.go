// Package monitor drives the evaluation cycle: it fans probes out to all
// targets, feeds the results into the SLA tracker, runs the alert rules, and
// archives what came out. One cycle runs at a time; notification dispatch is
// the only part that outlives a cycle.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/alert"
	"github.com/stayflow/opsdash/internal/model"
	"github.com/stayflow/opsdash/internal/probe"
	"github.com/stayflow/opsdash/internal/sla"
	"github.com/stayflow/opsdash/internal/storage"
)

const (
	// DefaultInterval is the probe cadence when none is configured.
	DefaultInterval = 60 * time.Second

	defaultRetention = 30 * 24 * time.Hour
)

// Config parameterizes the monitor loop
type Config struct {
	Interval  time.Duration
	Retention time.Duration
	Targets   []model.Target
}

// Monitor owns the periodic evaluation loop and the daily maintenance job.
type Monitor struct {
	logger    *zap.Logger
	cfg       Config
	probers   map[model.TargetKind]probe.Prober
	tracker   *sla.Tracker
	evaluator *alert.Evaluator
	ledger    *alert.Ledger
	archive   storage.ArchiveStorage
	cron      *cron.Cron
	stop      chan struct{}
	done      chan struct{}
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// New wires the monitor. archive may be nil; persistence is then skipped.
func New(logger *zap.Logger, cfg Config, probers map[model.TargetKind]probe.Prober, tracker *sla.Tracker, evaluator *alert.Evaluator, ledger *alert.Ledger, archive storage.ArchiveStorage) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}

	m := &Monitor{
		logger:    logger.Named("monitor"),
		cfg:       cfg,
		probers:   probers,
		tracker:   tracker,
		evaluator: evaluator,
		ledger:    ledger,
		archive:   archive,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	if archive != nil {
		tracker.OnIncident(func(inc model.Incident) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := archive.StoreIncident(ctx, inc); err != nil {
				m.logger.Error("Failed to archive incident",
					zap.String("incident_id", inc.ID),
					zap.Error(err))
			}
		})
	}

	m.cron = cron.New(cron.WithChain(cron.Recover(&cronLogger{logger: m.logger.Named("cron")})))
	return m
}

// Start launches the evaluation loop and the daily maintenance schedule.
func (m *Monitor) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc("@daily", m.maintain); err != nil {
		return err
	}
	m.cron.Start()

	go m.loop(ctx)

	m.logger.Info("Monitor started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Int("targets", len(m.cfg.Targets)))
	return nil
}

// Stop signals the loop to exit and waits for the in-flight cycle to finish.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
	cronCtx := m.cron.Stop()
	<-cronCtx.Done()
	m.logger.Info("Monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// first cycle runs immediately so the dashboard has data at startup
	m.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full evaluation cycle: concurrent probe fan-out, SLA
// update, alert evaluation, best-effort archiving. Probes run before any
// state lock is taken, so a hung probe never blocks readers.
func (m *Monitor) RunCycle(ctx context.Context) {
	started := time.Now()
	results := m.probeAll(ctx)

	for _, res := range results {
		m.tracker.RecordResult(res)
	}

	alerts := m.evaluator.RunCycle(ctx, results)

	if m.archive != nil && len(alerts) > 0 {
		if err := m.archive.StoreAlerts(ctx, alerts); err != nil {
			m.logger.Error("Failed to archive alerts", zap.Error(err))
		}
	}

	m.logger.Debug("Cycle completed",
		zap.Int("targets", len(results)),
		zap.Int("alerts", len(alerts)),
		zap.Duration("elapsed", time.Since(started)))
}

// probeAll fans out one check per target and waits for all of them.
func (m *Monitor) probeAll(ctx context.Context) []model.ProbeResult {
	results := make([]model.ProbeResult, len(m.cfg.Targets))

	var wg sync.WaitGroup
	for i, target := range m.cfg.Targets {
		prober, ok := m.probers[target.Kind]
		if !ok {
			results[i] = model.ProbeResult{
				Target:    target.Name,
				Error:     "no prober for target kind " + string(target.Kind),
				CheckedAt: time.Now(),
			}
			m.logger.Warn("No prober registered",
				zap.String("target", target.Name),
				zap.String("kind", string(target.Kind)))
			continue
		}

		wg.Add(1)
		go func(i int, target model.Target, prober probe.Prober) {
			defer wg.Done()
			results[i] = prober.Check(ctx, target)
		}(i, target, prober)
	}
	wg.Wait()

	return results
}

// maintain prunes the persistent archive and the lifecycle ledger.
func (m *Monitor) maintain() {
	cutoff := time.Now().Add(-m.cfg.Retention)

	if m.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := m.archive.DeleteBefore(ctx, cutoff); err != nil {
			m.logger.Error("Archive maintenance failed", zap.Error(err))
		}
	}

	removed := m.ledger.Prune(m.cfg.Retention)
	m.logger.Info("Maintenance completed",
		zap.Time("cutoff", cutoff),
		zap.Int("ledger_entries_removed", removed))
}
