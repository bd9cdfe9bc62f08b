package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stayflow/opsdash/internal/model"
)

func TestLedger_AcknowledgeIdempotent(t *testing.T) {
	ledger := NewLedger(10)

	ledger.Acknowledge("SLOW_API_API")
	a := model.Alert{ID: "SLOW_API_API"}
	ledger.Annotate(&a)
	require.True(t, a.IsAcknowledged)
	require.NotNil(t, a.AcknowledgedAt)
	first := *a.AcknowledgedAt

	// re-acknowledging keeps the original timestamp
	ledger.Acknowledge("SLOW_API_API")
	ledger.Annotate(&a)
	require.Equal(t, first, *a.AcknowledgedAt)
}

func TestLedger_UnacknowledgeClearsBoth(t *testing.T) {
	ledger := NewLedger(10)

	ledger.Acknowledge("X")
	ledger.Snooze("X", time.Hour)

	ledger.Unacknowledge("X")

	a := model.Alert{ID: "X"}
	ledger.Annotate(&a)
	require.False(t, a.IsAcknowledged)
	require.Nil(t, a.AcknowledgedAt)
	require.False(t, a.IsSnoozed)
	require.Nil(t, a.SnoozedUntil)
}

func TestLedger_SnoozeExpiryIsLazy(t *testing.T) {
	ledger := NewLedger(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	ledger.now = func() time.Time { return now }

	ledger.Snooze("X", time.Minute)

	a := model.Alert{ID: "X"}
	ledger.Annotate(&a)
	require.True(t, a.IsSnoozed)
	require.Equal(t, base.Add(time.Minute), *a.SnoozedUntil)

	// two minutes later the snooze no longer suppresses, with no cleanup
	now = base.Add(2 * time.Minute)
	ledger.Annotate(&a)
	require.False(t, a.IsSnoozed)
	require.Nil(t, a.SnoozedUntil)
}

func TestLedger_SnoozeOverwritesPrior(t *testing.T) {
	ledger := NewLedger(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return base }

	ledger.Snooze("X", time.Hour)
	ledger.Snooze("X", 10*time.Minute)

	a := model.Alert{ID: "X"}
	ledger.Annotate(&a)
	require.Equal(t, base.Add(10*time.Minute), *a.SnoozedUntil)
}

func TestLedger_HistoryBoundedMostRecentFirst(t *testing.T) {
	ledger := NewLedger(3)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ledger.AppendHistory([]model.Alert{{
			ID:        "HIGH_ERROR_RATE",
			Severity:  model.AlertSeverityWarning,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}})
	}

	history := ledger.History(0, "")
	require.Len(t, history, 3)
	require.Equal(t, base.Add(4*time.Minute), history[0].Timestamp)
	require.Equal(t, base.Add(2*time.Minute), history[2].Timestamp)
}

func TestLedger_HistoryLimitAndSeverityFilter(t *testing.T) {
	ledger := NewLedger(10)

	ledger.AppendHistory([]model.Alert{
		{ID: "A", Severity: model.AlertSeverityInfo},
		{ID: "B", Severity: model.AlertSeverityCritical},
		{ID: "C", Severity: model.AlertSeverityWarning},
		{ID: "D", Severity: model.AlertSeverityCritical},
	})

	critical := ledger.History(0, model.AlertSeverityCritical)
	require.Len(t, critical, 2)
	require.Equal(t, "D", critical[0].ID)
	require.Equal(t, "B", critical[1].ID)

	limited := ledger.History(1, model.AlertSeverityCritical)
	require.Len(t, limited, 1)
	require.Equal(t, "D", limited[0].ID)
}

func TestLedger_Prune(t *testing.T) {
	ledger := NewLedger(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	ledger.now = func() time.Time { return now }

	ledger.Acknowledge("OLD")
	ledger.Snooze("EXPIRED", time.Minute)

	now = base.Add(48 * time.Hour)
	ledger.Acknowledge("FRESH")

	removed := ledger.Prune(24 * time.Hour)
	require.Equal(t, 2, removed)

	fresh := model.Alert{ID: "FRESH"}
	ledger.Annotate(&fresh)
	require.True(t, fresh.IsAcknowledged)

	old := model.Alert{ID: "OLD"}
	ledger.Annotate(&old)
	require.False(t, old.IsAcknowledged)
}
