package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	pkgkafka "CrediPulse/pkg/kafka"
	applogger "CrediPulse/pkg/logger"
)

// KafkaOfferActivationHandler advances accepted offers from offered to
// active. The transition itself is a conditional UPDATE, so redelivery of
// an already-active offer is a no-op success; only the notification step is
// replayed until it is marked sent.
type KafkaOfferActivationHandler struct {
	topic   string
	offers  domrepo.OfferStore
	bus     domrepo.EventBus
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewKafkaOfferActivationHandler(topic string, offers domrepo.OfferStore, bus domrepo.EventBus, metrics domrepo.Metrics, logger *applogger.Logger) *KafkaOfferActivationHandler {
	return &KafkaOfferActivationHandler{
		topic:   topic,
		offers:  offers,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *KafkaOfferActivationHandler) Topic() string { return h.topic }

func (h *KafkaOfferActivationHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.OfferAcceptedEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("activation_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("unmarshal accepted event: %w", err))
	}
	if ev.OfferID == "" || ev.UserID == "" {
		h.metrics.RecordError("activation_validation")
		return pkgkafka.Permanent(fmt.Errorf("accepted event missing offerId or userId"))
	}

	offer, err := h.offers.Activate(ctx, ev.OfferID, ev.UserID, h.now())
	switch {
	case err == nil:
		h.metrics.RecordOfferTransition("activated")
		h.logger.Info("offer activated",
			applogger.String("offer_id", offer.ID), applogger.String("user_id", offer.UserID))
	case errors.Is(err, domrepo.ErrOfferAlreadyActive):
		// Redelivery after a successful transition. Fall through to the
		// notification step, which may still be outstanding.
		h.logger.Debug("offer already active, redelivery",
			applogger.String("offer_id", ev.OfferID))
	case errors.Is(err, domrepo.ErrOfferNotFound),
		errors.Is(err, domrepo.ErrOfferNotOwned),
		errors.Is(err, domrepo.ErrOfferExpired),
		errors.Is(err, domrepo.ErrOfferNotActivatable):
		h.metrics.RecordOfferTransition("rejected")
		h.logger.Warn("offer activation rejected",
			applogger.String("offer_id", ev.OfferID),
			applogger.String("user_id", ev.UserID),
			applogger.Error(err))
		return pkgkafka.Permanent(err)
	default:
		h.metrics.RecordError("activation_store")
		return fmt.Errorf("activate offer %s: %w", ev.OfferID, err)
	}

	return h.notify(ctx, offer)
}

// notify emits the activation notification once per offer. The notified_at
// claim is taken only after a successful publish, so a publish failure is
// retried on redelivery without touching the state transition again.
func (h *KafkaOfferActivationHandler) notify(ctx context.Context, offer *models.CreditOffer) error {
	if offer.NotifiedAt != nil {
		return nil
	}

	n := &models.Notification{
		UserID: offer.UserID,
		Type:   models.NotificationTypeCreditLimitApplied,
		Title:  "Credit limit applied",
		Message: fmt.Sprintf("Your credit offer is now active: limit %s at %s%% interest.",
			offer.CreditLimit.StringFixed(2), offer.InterestRate.StringFixed(2)),
	}
	if err := h.bus.PublishNotification(ctx, n); err != nil {
		h.metrics.RecordError("notification_publish")
		return fmt.Errorf("publish activation notification %s: %w", offer.ID, err)
	}

	claimed, err := h.offers.MarkNotified(ctx, offer.ID)
	if err != nil {
		h.metrics.RecordError("notification_mark")
		return fmt.Errorf("mark notified %s: %w", offer.ID, err)
	}
	if claimed {
		h.metrics.RecordOfferTransition("notified")
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOfferActivationHandler)(nil)
