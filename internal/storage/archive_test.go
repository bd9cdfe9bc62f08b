package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
)

func newTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	archive, err := NewSQLiteArchive(logger, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func TestSQLiteArchive_Incidents(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, archive.StoreIncident(ctx, model.Incident{
			ID:              string(rune('a' + i)),
			Target:          "api",
			Kind:            model.IncidentKindDowntime,
			StartTime:       start.Add(time.Duration(i) * time.Hour),
			EndTime:         start.Add(time.Duration(i)*time.Hour + 5*time.Minute),
			DurationMinutes: 5,
		}))
	}

	incidents, err := archive.ListIncidents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	// most recent first
	require.Equal(t, "c", incidents[0].ID)
	require.Equal(t, "b", incidents[1].ID)
	require.Equal(t, "api", incidents[0].Target)
	require.Equal(t, 5.0, incidents[0].DurationMinutes)
}

func TestSQLiteArchive_Alerts(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	alerts := []model.Alert{
		{
			ID:        "TARGET_DOWN_API",
			Title:     "api is unreachable",
			Severity:  model.AlertSeverityCritical,
			Category:  model.AlertCategoryConnectivity,
			Timestamp: time.Now(),
		},
		{
			ID:             "STUCK_BOOKINGS",
			Title:          "Bookings stuck in processing",
			Severity:       model.AlertSeverityWarning,
			Category:       model.AlertCategoryBusiness,
			Timestamp:      time.Now(),
			IsAcknowledged: true,
		},
	}
	require.NoError(t, archive.StoreAlerts(ctx, alerts))
	require.NoError(t, archive.StoreAlerts(ctx, nil))
}

func TestSQLiteArchive_DeleteBefore(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, archive.StoreIncident(ctx, model.Incident{
		ID:        "old",
		Target:    "api",
		Kind:      model.IncidentKindDowntime,
		StartTime: now.Add(-48 * time.Hour),
		EndTime:   now.Add(-47 * time.Hour),
	}))
	require.NoError(t, archive.StoreIncident(ctx, model.Incident{
		ID:        "fresh",
		Target:    "api",
		Kind:      model.IncidentKindDowntime,
		StartTime: now.Add(-time.Hour),
		EndTime:   now,
	}))

	require.NoError(t, archive.DeleteBefore(ctx, now.Add(-24*time.Hour)))

	incidents, err := archive.ListIncidents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	require.Equal(t, "fresh", incidents[0].ID)
}

func TestSQLiteArchive_SurvivesReopen(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()

	first, err := NewSQLiteArchive(logger, path)
	require.NoError(t, err)
	require.NoError(t, first.StoreIncident(ctx, model.Incident{
		ID:        "persisted",
		Target:    "db",
		Kind:      model.IncidentKindDowntime,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now(),
	}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteArchive(logger, path)
	require.NoError(t, err)
	defer second.Close()

	incidents, err := second.ListIncidents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	require.Equal(t, "persisted", incidents[0].ID)
}
