package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer lifecycle statuses. Transitions are monotone: offered is the only
// non-terminal state.
const (
	OfferStatusOffered  = "offered"
	OfferStatusActive   = "active"
	OfferStatusExpired  = "expired"
	OfferStatusRejected = "rejected"
)

// CreditTypeShortTermPersonalLoan is the only product issued today.
const CreditTypeShortTermPersonalLoan = "SHORT_TERM_PERSONAL_LOAN"

// NotificationTypeCreditLimitApplied marks an offer-activated notification.
const NotificationTypeCreditLimitApplied = "CREDIT_LIMIT_APPLIED"

// CreditOffer is a persisted credit offer row.
type CreditOffer struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Status       string          `json:"status"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	CreditType   string          `json:"credit_type"`
	ExpiresAt    time.Time       `json:"expires_at"`
	ActivatedAt  *time.Time      `json:"activated_at,omitempty"`
	NotifiedAt   *time.Time      `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FeatureVector is the input to the external risk scoring model.
type FeatureVector struct {
	TransactionCount30d   int64   `json:"transaction_count_30d"`
	AvgTransactionValue30 float64 `json:"avg_transaction_value_30d"`
	AvgPositivity7d       float64 `json:"avg_positivity_7d"`
	StressEvents30d       int64   `json:"stress_events_30d"`
}

// RiskDecision is the cached outcome of one credit analysis. It is a
// derived, disposable view: the persisted offer is the source of truth.
type RiskDecision struct {
	UserID       string          `json:"user_id"`
	RiskScore    float64         `json:"risk_score"`
	Approved     bool            `json:"approved"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	OfferID      string          `json:"offer_id,omitempty"`
	ComputedAt   time.Time       `json:"computed_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// OfferAcceptedEvent is the inbound acceptance message for an offer.
type OfferAcceptedEvent struct {
	OfferID    string    `json:"offerId"`
	UserID     string    `json:"userId"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// Notification is the outbound user notification payload.
type Notification struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
