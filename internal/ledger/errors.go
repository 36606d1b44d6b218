package ledger

import "errors"

// The ledger's error taxonomy. Every failure is a local validation or
// business-rule rejection, surfaced to the caller as-is; none are retried and
// none leave the catalog in a partial state.
var (
	ErrInvalidDraft       = errors.New("invalid listing draft")
	ErrInvalidTransition  = errors.New("invalid listing status transition")
	ErrAuctionNotActive   = errors.New("auction is not active")
	ErrBidTooLow          = errors.New("bid below minimum increment")
	ErrListingNotFound    = errors.New("listing not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists for this product")
)
