package ledger

import "math"

// buyersPremiumRate is the marketplace fee shown to bidders. It is a derived
// display value, never part of the catalog's authoritative state.
const buyersPremiumRate = 0.12

// BuyersPremium returns the rounded fee for a bid amount.
func BuyersPremium(amount int64) int64 {
	return int64(math.Round(float64(amount) * buyersPremiumRate))
}
