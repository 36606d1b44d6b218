package types

import (
	"time"

	"gorm.io/gorm"
)

// Listing status values. Transitions are pending -> active -> ended, with
// pending -> rejected as the terminal alternative.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusRejected = "rejected"
	StatusEnded    = "ended"
)

// Supported listing categories. Each category carries its own detail variant.
const (
	CategoryHandbag = "handbag"
	CategoryShoe    = "shoe"
)

// Order settlement types
const (
	OrderTypeBid    = "bid"
	OrderTypeBuyNow = "buynow"
)

// Listing is an item under auction. CurrentPrice equals StartPrice until the
// first accepted bid, then the highest accepted bid amount. All monetary
// amounts are whole currency units, never binary floats.
type Listing struct {
	gorm.Model       `json:"-"`
	ListingID        string          `gorm:"uniqueIndex" json:"listing_id"`
	SellerID         string          `json:"seller_id"`
	Category         string          `json:"category"` // handbag or shoe
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Images           []string        `gorm:"serializer:json" json:"images"`
	EvidenceImages   []string        `gorm:"serializer:json" json:"evidence_images"`
	StartPrice       int64           `json:"start_price"`
	BidStep          int64           `json:"bid_step"`
	BuyNowPrice      int64           `json:"buy_now_price,omitempty"` // 0 = no buy-now
	DurationMinutes  int64           `json:"duration_minutes"`
	Status           string          `json:"status"` // pending, active, rejected, ended
	CurrentPrice     int64           `json:"current_price"`
	StartTime        *time.Time      `json:"start_time,omitempty"`
	EndTime          *time.Time      `json:"end_time,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	IsAuthentic      bool            `json:"is_authentic"`
	CertificationURL string          `json:"certification_url,omitempty"`
	Handbag          *HandbagDetails `gorm:"serializer:json" json:"handbag,omitempty"`
	Shoe             *ShoeDetails    `gorm:"serializer:json" json:"shoe,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HandbagDetails carries the attributes that only apply to handbag listings.
type HandbagDetails struct {
	Era           string `json:"era,omitempty"`
	Brand         string `json:"brand,omitempty"`
	NumberOfItems string `json:"number_of_items,omitempty"`
	Colour        string `json:"colour,omitempty"`
	Material      string `json:"material,omitempty"`
	Condition     string `json:"condition,omitempty"`
	Size          string `json:"size,omitempty"`
	Height        string `json:"height,omitempty"`
	Width         string `json:"width,omitempty"`
	Depth         string `json:"depth,omitempty"`
}

// ShoeDetails carries the attributes that only apply to shoe listings.
type ShoeDetails struct {
	Era       string `json:"era,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Size      string `json:"size,omitempty"`
	NewInBox  string `json:"new_in_box,omitempty"`
	Colour    string `json:"colour,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Material  string `json:"material,omitempty"`
	Vintage   string `json:"vintage,omitempty"`
	Condition string `json:"condition,omitempty"`
	MadeIn    string `json:"made_in,omitempty"`
}

// Bid is a monetary offer against a listing. Bids are append-only: never
// mutated or deleted once accepted.
type Bid struct {
	gorm.Model `json:"-"`
	BidID      string    `gorm:"uniqueIndex" json:"bid_id"`
	ProductID  string    `gorm:"index" json:"product_id"`
	BuyerID    string    `json:"buyer_id"`
	BuyerName  string    `json:"buyer_name"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// Order is the settlement record created when a listing concludes with a
// winning buyer. At most one order exists per product.
type Order struct {
	gorm.Model      `json:"-"`
	OrderID         string    `gorm:"uniqueIndex" json:"order_id"`
	ProductID       string    `gorm:"uniqueIndex" json:"product_id"`
	BuyerID         string    `json:"buyer_id"`
	SellerName      string    `json:"seller_name,omitempty"`
	ProductTitle    string    `json:"product_title,omitempty"`
	ProductImage    string    `json:"product_image,omitempty"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	FinalPrice      int64     `json:"final_price"`
	Type            string    `json:"type"` // bid or buynow
	DepositPaid     bool      `json:"deposit_paid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListingDraft is a seller's submission. The ledger validates it and turns it
// into a pending listing.
type ListingDraft struct {
	SellerID        string          `json:"seller_id"`
	Category        string          `json:"category"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Images          []string        `json:"images"`
	EvidenceImages  []string        `json:"evidence_images"`
	StartPrice      int64           `json:"start_price"`
	BidStep         int64           `json:"bid_step"`
	BuyNowPrice     int64           `json:"buy_now_price,omitempty"`
	DurationMinutes int64           `json:"duration_minutes"`
	Handbag         *HandbagDetails `json:"handbag,omitempty"`
	Shoe            *ShoeDetails    `json:"shoe,omitempty"`
}
