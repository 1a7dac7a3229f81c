package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
	pkgkafka "CrediPulse/pkg/kafka"
	"CrediPulse/pkg/util"
)

// fakeSignalStore applies the same claim-then-recompute semantics as the
// Postgres store: duplicate trace ids are no-ops and each average is the
// running mean over event_count observations.
type fakeSignalStore struct {
	processed map[string]bool
	rows      map[string]*models.DailySignalSummary
	ingestErr error
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{
		processed: make(map[string]bool),
		rows:      make(map[string]*models.DailySignalSummary),
	}
}

func (f *fakeSignalStore) IngestEmotion(ctx context.Context, ev *models.EmotionEvent) error {
	if f.ingestErr != nil {
		return f.ingestErr
	}
	if f.processed[ev.TraceID] {
		return nil
	}
	f.processed[ev.TraceID] = true

	day := util.SummaryDate(ev.Timestamp)
	key := ev.UserID + "|" + day.Format("2006-01-02")
	m := ev.Event.Metrics
	row, ok := f.rows[key]
	if !ok {
		f.rows[key] = &models.DailySignalSummary{
			UserID:        ev.UserID,
			SummaryDate:   day,
			AvgPositivity: m.Positivity,
			AvgIntensity:  m.Intensity,
			AvgStress:     m.StressLevel,
			EventCount:    1,
		}
		return nil
	}
	n := float64(row.EventCount)
	row.AvgPositivity = (row.AvgPositivity*n + m.Positivity) / (n + 1)
	row.AvgIntensity = (row.AvgIntensity*n + m.Intensity) / (n + 1)
	row.AvgStress = (row.AvgStress*n + m.StressLevel) / (n + 1)
	row.EventCount++
	return nil
}

func (f *fakeSignalStore) Window(ctx context.Context, userID string, from, to time.Time) ([]*models.DailySignalSummary, error) {
	var out []*models.DailySignalSummary
	for _, row := range f.rows {
		if row.UserID != userID {
			continue
		}
		if row.SummaryDate.Before(from) || !row.SummaryDate.Before(to) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeSignalStore) Health(ctx context.Context) error { return nil }

func emotionPayload(t *testing.T, user, trace string, positivity, intensity, stress float64, ts time.Time) []byte {
	t.Helper()
	ev := models.EmotionEvent{UserID: user, TraceID: trace, Timestamp: ts}
	ev.Event.Type = "journal_entry"
	ev.Event.Metrics = models.EmotionMetrics{Positivity: positivity, Intensity: intensity, StressLevel: stress}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestEmotionHandlerRunningMean(t *testing.T) {
	store := newFakeSignalStore()
	h := NewKafkaEmotionHandler("user.emotions", store, nil, nopMetrics{}, testLogger(t))
	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, p := range []float64{0.2, 0.6, 1.0} {
		payload := emotionPayload(t, "u1", fmt.Sprintf("t%d", i), p, 0.5, 0.0, day)
		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}

	rows, _ := store.Window(context.Background(), "u1", day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].EventCount != 3 {
		t.Fatalf("event_count = %d, want 3", rows[0].EventCount)
	}
	if math.Abs(rows[0].AvgPositivity-0.6) > 1e-9 {
		t.Fatalf("avg_positivity = %v, want 0.6", rows[0].AvgPositivity)
	}
}

func TestEmotionHandlerDuplicateTraceNotDoubleCounted(t *testing.T) {
	store := newFakeSignalStore()
	h := NewKafkaEmotionHandler("user.emotions", store, nil, nopMetrics{}, testLogger(t))
	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	payload := emotionPayload(t, "u1", "same-trace", 0.8, 0.5, 0.1, day)
	for i := 0; i < 3; i++ {
		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	rows, _ := store.Window(context.Background(), "u1", day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	if len(rows) != 1 || rows[0].EventCount != 1 {
		t.Fatalf("duplicate delivery double-counted: %+v", rows)
	}
}

func TestEmotionHandlerOutOfRangeMetricIsPermanent(t *testing.T) {
	store := newFakeSignalStore()
	h := NewKafkaEmotionHandler("user.emotions", store, nil, nopMetrics{}, testLogger(t))

	payload := emotionPayload(t, "u1", "t1", 1.5, 0.5, 0.1, time.Now())
	err := h.Handle(context.Background(), payload)
	if !errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("invalid event reached the store")
	}
}

func TestEmotionHandlerTransientStoreErrorIsRetryable(t *testing.T) {
	store := newFakeSignalStore()
	store.ingestErr = errors.New("connection refused")
	h := NewKafkaEmotionHandler("user.emotions", store, nil, nopMetrics{}, testLogger(t))

	payload := emotionPayload(t, "u1", "t1", 0.5, 0.5, 0.1, time.Now())
	err := h.Handle(context.Background(), payload)
	if err == nil || errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}
