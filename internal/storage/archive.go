// Package storage persists closed incidents and evaluated alerts to SQLite.
// Writes are best effort: a failure is logged by the caller and never fails
// an evaluation cycle. The in-memory state in sla and alert remains the
// source of truth; this archive only survives restarts for reporting.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
)

// ArchiveStorage defines the persistence interface for incidents and alerts.
type ArchiveStorage interface {
	// StoreIncident records one closed downtime incident
	StoreIncident(ctx context.Context, inc model.Incident) error

	// ListIncidents returns up to limit incidents, most recent first
	ListIncidents(ctx context.Context, limit int) ([]model.Incident, error)

	// StoreAlerts records evaluated alerts from one cycle
	StoreAlerts(ctx context.Context, alerts []model.Alert) error

	// DeleteBefore drops incidents and alerts older than the given time
	DeleteBefore(ctx context.Context, before time.Time) error
}

// SQLiteArchive implements ArchiveStorage using SQLite.
type SQLiteArchive struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteArchive opens (or creates) the archive database at dbPath.
func NewSQLiteArchive(logger *zap.Logger, dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	archive := &SQLiteArchive{
		logger: logger.Named("archive"),
		db:     db,
	}

	if err := archive.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return archive, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteArchive) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			kind TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			duration_minutes REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_incidents_target ON incidents(target);
		CREATE INDEX IF NOT EXISTS idx_incidents_start_time ON incidents(start_time);

		CREATE TABLE IF NOT EXISTS alert_history (
			rowid_pk INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			fired_at DATETIME NOT NULL,
			acknowledged INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_alert_history_alert_id ON alert_history(alert_id);
		CREATE INDEX IF NOT EXISTS idx_alert_history_fired_at ON alert_history(fired_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// StoreIncident implements ArchiveStorage.StoreIncident
func (s *SQLiteArchive) StoreIncident(ctx context.Context, inc model.Incident) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (
			id, target, kind, start_time, end_time, duration_minutes
		) VALUES (?, ?, ?, ?, ?, ?)`,
		inc.ID,
		inc.Target,
		inc.Kind,
		inc.StartTime,
		inc.EndTime,
		inc.DurationMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to store incident: %w", err)
	}
	return nil
}

// ListIncidents implements ArchiveStorage.ListIncidents
func (s *SQLiteArchive) ListIncidents(ctx context.Context, limit int) ([]model.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, kind, start_time, end_time, duration_minutes
		FROM incidents
		ORDER BY start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		var inc model.Incident
		if err := rows.Scan(
			&inc.ID,
			&inc.Target,
			&inc.Kind,
			&inc.StartTime,
			&inc.EndTime,
			&inc.DurationMinutes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return incidents, nil
}

// StoreAlerts implements ArchiveStorage.StoreAlerts
func (s *SQLiteArchive) StoreAlerts(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alert_history (
			alert_id, title, message, severity, category, fired_at, acknowledged
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		acknowledged := 0
		if a.IsAcknowledged {
			acknowledged = 1
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID,
			a.Title,
			a.Message,
			a.Severity,
			a.Category,
			a.Timestamp,
			acknowledged,
		); err != nil {
			return fmt.Errorf("failed to store alert %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alerts: %w", err)
	}
	return nil
}

// DeleteBefore implements ArchiveStorage.DeleteBefore
func (s *SQLiteArchive) DeleteBefore(ctx context.Context, before time.Time) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM incidents WHERE start_time < ?", before)
	if err != nil {
		return fmt.Errorf("failed to delete incidents: %w", err)
	}
	incidents, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, "DELETE FROM alert_history WHERE fired_at < ?", before)
	if err != nil {
		return fmt.Errorf("failed to delete alert history: %w", err)
	}
	alerts, _ := res.RowsAffected()

	s.logger.Info("Pruned archive",
		zap.Time("before", before),
		zap.Int64("incidents", incidents),
		zap.Int64("alerts", alerts))
	return nil
}

// Close closes the database connection
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}
