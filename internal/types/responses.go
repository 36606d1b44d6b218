package types

import "time"

// ListingResponse is the read model handed to presentation clients. Countdown
// fields are derived from the clock at render time and never cached.
type ListingResponse struct {
	Listing
	BidCount    int64 `json:"bid_count"`
	RemainingMS int64 `json:"remaining_ms"`
	Ended       bool  `json:"ended"`
}

// NewListingResponse derives the countdown view of a listing at the given
// instant. A listing with no end time has no countdown.
func NewListingResponse(listing Listing, bidCount int64, now time.Time) ListingResponse {
	resp := ListingResponse{
		Listing:  listing,
		BidCount: bidCount,
	}
	if listing.EndTime != nil {
		remaining := listing.EndTime.Sub(now)
		if remaining <= 0 {
			resp.Ended = true
		} else {
			resp.RemainingMS = remaining.Milliseconds()
		}
	}
	resp.Ended = resp.Ended || listing.Status == StatusEnded
	return resp
}

// BidQuote is a display-only fee breakdown for a prospective bid. The buyer's
// premium is derived at the presentation edge and is not part of ledger state.
type BidQuote struct {
	ProductID      string `json:"product_id"`
	Amount         int64  `json:"amount"`
	MinimumNextBid int64  `json:"minimum_next_bid"`
	BuyersPremium  int64  `json:"buyers_premium"`
	EstimatedTotal int64  `json:"estimated_total"`
}
