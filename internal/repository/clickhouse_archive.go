package repository

import (
	"context"
	"database/sql"
	"fmt"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
)

// ClickHouseArchive implements EventArchive for ClickHouse. Raw events are
// kept append-only for offline model work; the Postgres rollup stays the
// decisioning source of truth.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates a ClickHouse-backed event archive.
func NewClickHouseArchive(db *sql.DB, table string) repository.EventArchive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Archive(ctx context.Context, ev *models.EmotionEvent) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, user_id, trace_id, event_type, positivity, intensity, stress_level) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.table,
	)
	m := ev.Event.Metrics
	_, err := a.db.ExecContext(ctx, q,
		ev.Timestamp,
		ev.UserID,
		ev.TraceID,
		ev.Event.Type,
		m.Positivity,
		m.Intensity,
		m.StressLevel,
	)
	return err
}

func (a *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}
