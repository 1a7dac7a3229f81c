package api

import (
	"errors"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	"CrediPulse/internal/service/ratelimit"
	"CrediPulse/internal/service/scoring"
	"CrediPulse/internal/usecase"
	xhttp "CrediPulse/pkg/http"
	xlogger "CrediPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreditEchoHandler exposes the synchronous credit API.
type CreditEchoHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.CreditAnalyzer
	offers   domrepo.OfferStore
	bus      domrepo.EventBus
	limiter  *ratelimit.Limiter
	rpm      float64
}

func NewCreditEchoHandler(
	logger *xlogger.Logger,
	analyzer *usecase.CreditAnalyzer,
	offers domrepo.OfferStore,
	bus domrepo.EventBus,
	requestsPerMinute float64,
) *CreditEchoHandler {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 6
	}
	return &CreditEchoHandler{
		logger:   logger,
		analyzer: analyzer,
		offers:   offers,
		bus:      bus,
		limiter:  ratelimit.New(),
		rpm:      requestsPerMinute,
	}
}

func (h *CreditEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1")
	g.POST("/users/:user_id/credit-analysis", h.Analyze)
	g.POST("/credit-offers/:offer_id/accept", h.Accept)
	g.GET("/users/:user_id/offers", h.ListOffers)
}

// Analyze runs the synchronous decision path for a user. Per-user rate
// limited on top of the decision cache's own cooldown.
func (h *CreditEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.limiter.Allow("analyze:"+req.UserID, h.rpm, h.rpm/60) {
		return xhttp.TooManyRequestsResponse(c, "analysis rate limit exceeded")
	}

	d, err := h.analyzer.Analyze(c.Request().Context(), req.UserID)
	if err != nil {
		if errors.Is(err, scoring.ErrScoringUnavailable) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("scoring temporarily unavailable, retry later"))
		}
		h.logger.Error("credit analysis failed",
			xlogger.String("user_id", req.UserID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, d)
}

// Accept validates ownership of an offered row and publishes the accepted
// event; the lifecycle consumer performs the actual transition.
func (h *CreditEchoHandler) Accept(c echo.Context) error {
	req := &models.AcceptOfferRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	offer, err := h.offers.Get(c.Request().Context(), req.OfferID)
	if err != nil {
		if errors.Is(err, domrepo.ErrOfferNotFound) {
			return xhttp.NotFoundResponse(c, "offer not found")
		}
		h.logger.Error("offer lookup failed",
			xlogger.String("offer_id", req.OfferID), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if offer.UserID != req.UserID {
		return xhttp.NotFoundResponse(c, "offer not found")
	}
	if offer.Status != models.OfferStatusOffered {
		return xhttp.ConflictResponse(c, "offer is not open for acceptance")
	}
	if !offer.ExpiresAt.After(time.Now()) {
		return xhttp.ConflictResponse(c, "offer has expired")
	}

	ev := &models.OfferAcceptedEvent{
		OfferID:    req.OfferID,
		UserID:     req.UserID,
		AcceptedAt: time.Now().UTC(),
	}
	if err := h.bus.PublishAccepted(c.Request().Context(), ev); err != nil {
		h.logger.Error("publish accepted event failed",
			xlogger.String("offer_id", req.OfferID), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.AcceptedResponse(c, ev)
}

// ListOffers returns the user's offers, newest first.
func (h *CreditEchoHandler) ListOffers(c echo.Context) error {
	req := &models.ListOffersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	offset := (req.Page - 1) * req.PageSize
	offers, total, err := h.offers.ListByUser(c.Request().Context(), req.UserID, req.PageSize, offset)
	if err != nil {
		h.logger.Error("list offers failed",
			xlogger.String("user_id", req.UserID), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if offers == nil {
		offers = []*models.CreditOffer{}
	}
	return xhttp.ListResponse(c, offers, total)
}

var _ xhttp.Handler = (*CreditEchoHandler)(nil)
