package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
	"CrediPulse/pkg/util"
)

const (
	claimEventSQL = `INSERT INTO processed_events (event_id)
    VALUES ($1)
    ON CONFLICT (event_id) DO NOTHING;`

	upsertSummarySQL = `INSERT INTO emotional_events_summary (
        user_id,
        summary_date,
        avg_positivity_score,
        avg_intensity_score,
        avg_stress_level,
        event_count,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,1,NOW()
    )
    ON CONFLICT (user_id, summary_date) DO UPDATE
    SET
        avg_positivity_score = (emotional_events_summary.avg_positivity_score * emotional_events_summary.event_count + EXCLUDED.avg_positivity_score) / (emotional_events_summary.event_count + 1),
        avg_intensity_score  = (emotional_events_summary.avg_intensity_score * emotional_events_summary.event_count + EXCLUDED.avg_intensity_score) / (emotional_events_summary.event_count + 1),
        avg_stress_level     = (emotional_events_summary.avg_stress_level * emotional_events_summary.event_count + EXCLUDED.avg_stress_level) / (emotional_events_summary.event_count + 1),
        event_count          = emotional_events_summary.event_count + 1,
        updated_at           = NOW();`

	windowSummariesSQL = `SELECT
        user_id,
        summary_date,
        avg_positivity_score,
        avg_intensity_score,
        avg_stress_level,
        event_count,
        updated_at
    FROM emotional_events_summary
    WHERE user_id = $1
      AND summary_date >= $2
      AND summary_date < $3
    ORDER BY summary_date;`
)

// PostgresSignalStore implements SignalStore on pgx.
type PostgresSignalStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSignalStore creates the Postgres-backed signal store.
func NewPostgresSignalStore(pool *pgxpool.Pool) repository.SignalStore {
	return &PostgresSignalStore{pool: pool}
}

// IngestEmotion claims the event trace id and recomputes the daily running
// mean in one transaction, so a redelivered event can never double-count
// and concurrent writers for the same (user, day) cannot lose updates.
func (s *PostgresSignalStore) IngestEmotion(ctx context.Context, ev *models.EmotionEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, claimEventSQL, ev.TraceID)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", ev.TraceID, err)
	}
	if tag.RowsAffected() == 0 {
		// Already processed on a previous delivery.
		return tx.Commit(ctx)
	}

	m := ev.Event.Metrics
	day := util.SummaryDate(ev.Timestamp)
	if _, err := tx.Exec(ctx, upsertSummarySQL, ev.UserID, day, m.Positivity, m.Intensity, m.StressLevel); err != nil {
		return fmt.Errorf("upsert summary user=%s day=%s: %w", ev.UserID, day.Format("2006-01-02"), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ingest tx: %w", err)
	}
	return nil
}

func (s *PostgresSignalStore) Window(ctx context.Context, userID string, from, to time.Time) ([]*models.DailySignalSummary, error) {
	rows, err := s.pool.Query(ctx, windowSummariesSQL, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query signal window: %w", err)
	}
	defer rows.Close()

	var out []*models.DailySignalSummary
	for rows.Next() {
		var sm models.DailySignalSummary
		if err := rows.Scan(
			&sm.UserID,
			&sm.SummaryDate,
			&sm.AvgPositivity,
			&sm.AvgIntensity,
			&sm.AvgStress,
			&sm.EventCount,
			&sm.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, &sm)
	}
	return out, rows.Err()
}

func (s *PostgresSignalStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
