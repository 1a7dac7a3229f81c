package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	pkgkafka "CrediPulse/pkg/kafka"

	"github.com/shopspring/decimal"
)

// KafkaTransactionHandler consumes transaction events into the relational
// store, feeding the 30-day transaction features.
type KafkaTransactionHandler struct {
	topic   string
	store   domrepo.TransactionStore
	metrics domrepo.Metrics
}

func NewKafkaTransactionHandler(topic string, store domrepo.TransactionStore, metrics domrepo.Metrics) *KafkaTransactionHandler {
	return &KafkaTransactionHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTransactionHandler) Topic() string { return h.topic }

func (h *KafkaTransactionHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.TransactionEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("transaction_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("unmarshal transaction event: %w", err))
	}
	if ev.UserID == "" {
		h.metrics.RecordError("transaction_validation")
		return pkgkafka.Permanent(fmt.Errorf("transaction event missing userId"))
	}
	if ev.Amount <= 0 {
		h.metrics.RecordError("transaction_validation")
		return pkgkafka.Permanent(fmt.Errorf("transaction amount must be positive: %v", ev.Amount))
	}

	start := time.Now()
	if err := h.store.Record(ctx, ev.UserID, decimal.NewFromFloat(ev.Amount)); err != nil {
		h.metrics.RecordError("transaction_insert")
		return fmt.Errorf("record transaction user=%s: %w", ev.UserID, err)
	}
	h.metrics.RecordLatency("transaction_insert_seconds", time.Since(start).Seconds())
	h.metrics.RecordEventProcessed(h.topic)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTransactionHandler)(nil)
