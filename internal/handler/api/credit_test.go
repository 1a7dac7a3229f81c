package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	xlogger "CrediPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type stubOfferStore struct {
	offers map[string]*models.CreditOffer
	listed []*models.CreditOffer
}

func (s *stubOfferStore) Create(ctx context.Context, o *models.CreditOffer) error { return nil }
func (s *stubOfferStore) Get(ctx context.Context, id string) (*models.CreditOffer, error) {
	if o, ok := s.offers[id]; ok {
		return o, nil
	}
	return nil, domrepo.ErrOfferNotFound
}
func (s *stubOfferStore) HasOpenOffer(ctx context.Context, userID string, now time.Time) (bool, error) {
	return false, nil
}
func (s *stubOfferStore) Activate(ctx context.Context, offerID, userID string, now time.Time) (*models.CreditOffer, error) {
	return nil, domrepo.ErrOfferNotFound
}
func (s *stubOfferStore) MarkNotified(ctx context.Context, offerID string) (bool, error) {
	return true, nil
}
func (s *stubOfferStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.CreditOffer, int64, error) {
	var out []*models.CreditOffer
	for _, o := range s.listed {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

type stubBus struct {
	accepted []*models.OfferAcceptedEvent
}

func (b *stubBus) PublishAccepted(ctx context.Context, ev *models.OfferAcceptedEvent) error {
	b.accepted = append(b.accepted, ev)
	return nil
}
func (b *stubBus) PublishNotification(ctx context.Context, n *models.Notification) error { return nil }
func (b *stubBus) Close() error                                                          { return nil }

func newTestRouter(t *testing.T, store *stubOfferStore, bus *stubBus) *echo.Echo {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewCreditEchoHandler(log, nil, store, bus, 60)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func offeredOffer(id, userID string) *models.CreditOffer {
	now := time.Now().UTC()
	return &models.CreditOffer{
		ID:           id,
		UserID:       userID,
		Status:       models.OfferStatusOffered,
		CreditLimit:  decimal.RequireFromString("9000"),
		InterestRate: decimal.RequireFromString("6.5"),
		CreditType:   models.CreditTypeShortTermPersonalLoan,
		ExpiresAt:    now.Add(7 * 24 * time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

const testOfferID = "7f9c24e5-2b31-4b43-9f0a-1d2c3b4a5e6f"

func TestAcceptPublishesEvent(t *testing.T) {
	store := &stubOfferStore{offers: map[string]*models.CreditOffer{
		testOfferID: offeredOffer(testOfferID, "user-1"),
	}}
	bus := &stubBus{}
	e := newTestRouter(t, store, bus)

	req := httptest.NewRequest(http.MethodPost, "/v1/credit-offers/"+testOfferID+"/accept",
		strings.NewReader(`{"user_id":"user-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != http.StatusAccepted {
		t.Fatalf("expected inner status 202, got %d", body.Status)
	}
	if len(bus.accepted) != 1 {
		t.Fatalf("expected 1 accepted event, got %d", len(bus.accepted))
	}
	if bus.accepted[0].OfferID != testOfferID || bus.accepted[0].UserID != "user-1" {
		t.Fatalf("unexpected event: %+v", bus.accepted[0])
	}
}

func TestAcceptRejectsWrongOwner(t *testing.T) {
	store := &stubOfferStore{offers: map[string]*models.CreditOffer{
		testOfferID: offeredOffer(testOfferID, "user-1"),
	}}
	bus := &stubBus{}
	e := newTestRouter(t, store, bus)

	req := httptest.NewRequest(http.MethodPost, "/v1/credit-offers/"+testOfferID+"/accept",
		strings.NewReader(`{"user_id":"someone-else"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != http.StatusNotFound {
		t.Fatalf("expected inner status 404, got %d", body.Status)
	}
	if len(bus.accepted) != 0 {
		t.Fatalf("event must not be published for a foreign offer")
	}
}

func TestAcceptConflictsOnNonOffered(t *testing.T) {
	o := offeredOffer(testOfferID, "user-1")
	o.Status = models.OfferStatusActive
	store := &stubOfferStore{offers: map[string]*models.CreditOffer{testOfferID: o}}
	bus := &stubBus{}
	e := newTestRouter(t, store, bus)

	req := httptest.NewRequest(http.MethodPost, "/v1/credit-offers/"+testOfferID+"/accept",
		strings.NewReader(`{"user_id":"user-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != http.StatusConflict {
		t.Fatalf("expected inner status 409, got %d", body.Status)
	}
}

func TestAcceptValidatesOfferID(t *testing.T) {
	e := newTestRouter(t, &stubOfferStore{}, &stubBus{})

	req := httptest.NewRequest(http.MethodPost, "/v1/credit-offers/not-a-uuid/accept",
		strings.NewReader(`{"user_id":"user-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != http.StatusBadRequest {
		t.Fatalf("expected inner status 400, got %d", body.Status)
	}
}

func TestListOffersReturnsRows(t *testing.T) {
	store := &stubOfferStore{listed: []*models.CreditOffer{
		offeredOffer(testOfferID, "user-1"),
		offeredOffer("8a1b24e5-2b31-4b43-9f0a-1d2c3b4a5e6f", "user-2"),
	}}
	e := newTestRouter(t, store, &stubBus{})

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/offers", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Rows  []json.RawMessage `json:"rows"`
			Total int64             `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Total != 1 || len(body.Data.Rows) != 1 {
		t.Fatalf("expected one offer for user-1, got total=%d rows=%d",
			body.Data.Total, len(body.Data.Rows))
	}
}
