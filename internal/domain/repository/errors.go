package repository

import "errors"

// Activation sentinel errors. All but ErrOfferAlreadyActive are permanent:
// redelivery cannot fix a logically invalid request.
var (
	ErrOfferNotFound       = errors.New("offer not found")
	ErrOfferNotOwned       = errors.New("offer does not belong to user")
	ErrOfferExpired        = errors.New("offer has expired")
	ErrOfferNotActivatable = errors.New("offer is not in offered status")

	// ErrOfferAlreadyActive marks a redelivered activation of an offer that
	// already transitioned. The transition is a no-op success; only the
	// notification step may still be outstanding.
	ErrOfferAlreadyActive = errors.New("offer already active")
)
