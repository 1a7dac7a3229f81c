package models

// AnalyzeRequest triggers a credit analysis for a user.
type AnalyzeRequest struct {
	UserID string `param:"user_id" validate:"required,min=1,max=64"`
}

// AcceptOfferRequest accepts an outstanding offer on behalf of a user.
type AcceptOfferRequest struct {
	OfferID string `param:"offer_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required,min=1,max=64"`
}

// ListOffersRequest lists a user's offers, newest first.
type ListOffersRequest struct {
	UserID   string `param:"user_id" validate:"required,min=1,max=64"`
	Page     int    `query:"page" default:"1" validate:"gte=1"`
	PageSize int    `query:"page_size" default:"20" validate:"gte=1,lte=100"`
}
