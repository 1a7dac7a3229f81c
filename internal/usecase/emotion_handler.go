package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	pkgkafka "CrediPulse/pkg/kafka"
	applogger "CrediPulse/pkg/logger"
)

// KafkaEmotionHandler consumes emotion events and feeds the daily rollup.
// The archive write is best-effort: the Postgres rollup is the source of
// truth and a raw-sink outage must not stall ingestion.
type KafkaEmotionHandler struct {
	topic   string
	store   domrepo.SignalStore
	archive domrepo.EventArchive
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewKafkaEmotionHandler(topic string, store domrepo.SignalStore, archive domrepo.EventArchive, metrics domrepo.Metrics, logger *applogger.Logger) *KafkaEmotionHandler {
	return &KafkaEmotionHandler{topic: topic, store: store, archive: archive, metrics: metrics, logger: logger}
}

func (h *KafkaEmotionHandler) Topic() string { return h.topic }

func (h *KafkaEmotionHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.EmotionEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("emotion_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("unmarshal emotion event: %w", err))
	}
	if err := validateEmotionEvent(&ev); err != nil {
		h.metrics.RecordError("emotion_validation")
		return pkgkafka.Permanent(err)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	if err := h.store.IngestEmotion(ctx, &ev); err != nil {
		h.metrics.RecordError("emotion_ingest")
		return fmt.Errorf("ingest emotion trace=%s: %w", ev.TraceID, err)
	}
	h.metrics.RecordLatency("summary_upsert_seconds", time.Since(start).Seconds())

	if h.archive != nil {
		if err := h.archive.Archive(ctx, &ev); err != nil {
			h.metrics.RecordError("emotion_archive")
			h.logger.Warn("raw event archive write failed",
				applogger.String("trace_id", ev.TraceID), applogger.Error(err))
		}
	}

	h.metrics.RecordEventProcessed(h.topic)
	return nil
}

func validateEmotionEvent(ev *models.EmotionEvent) error {
	if ev.UserID == "" {
		return fmt.Errorf("emotion event missing userId")
	}
	if ev.TraceID == "" {
		return fmt.Errorf("emotion event missing traceId")
	}
	m := ev.Event.Metrics
	for name, v := range map[string]float64{
		"positivity":   m.Positivity,
		"intensity":    m.Intensity,
		"stress_level": m.StressLevel,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("metric %s out of range: %v", name, v)
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaEmotionHandler)(nil)
