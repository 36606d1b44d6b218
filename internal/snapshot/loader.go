// Package snapshot loads the initial demo data feed: three JSON arrays of
// listings, bids and orders. The feed is best-effort by contract — a missing,
// empty or malformed file yields an empty collection, never a startup failure.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bidhaus/auction-api/internal/catalog"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/rs/zerolog/log"
)

// Feed file names, as served by the original demo data directory.
const (
	ListingsFile = "auction_products.json"
	BidsFile     = "auction_bids.json"
	OrdersFile   = "auction_orders.json"
)

// seedListing mirrors the feed's record shape: camelCase keys, epoch-millis
// timestamps, flat category attributes.
type seedListing struct {
	ID              string   `json:"id"`
	SellerID        string   `json:"sellerId"`
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Images          []string `json:"images"`
	EvidenceImages  []string `json:"evidenceImages"`
	StartPrice      int64    `json:"startPrice"`
	BidStep         int64    `json:"bidStep"`
	BuyNowPrice     int64    `json:"buyNowPrice"`
	Duration        int64    `json:"duration"` // minutes
	Status          string   `json:"status"`
	CurrentPrice    int64    `json:"currentPrice"`
	StartTime       *int64   `json:"startTime"`
	EndTime         *int64   `json:"endTime"`
	RejectionReason string   `json:"rejectionReason"`
	IsAuthentic     bool     `json:"isAuthentic"`
	CertificationURL string  `json:"certificationUrl"`
	CreatedAt       int64    `json:"createdAt"`

	// Handbag attributes
	Era           string `json:"era"`
	Brand         string `json:"brand"`
	NumberOfItems string `json:"numberOfItems"`
	Colour        string `json:"colour"`
	Material      string `json:"material"`
	Condition     string `json:"condition"`
	Size          string `json:"size"`
	Height        string `json:"height"`
	Width         string `json:"width"`
	Depth         string `json:"depth"`

	// Shoe attributes
	ShoeEra       string `json:"shoeEra"`
	ShoeBrand     string `json:"shoeBrand"`
	ShoeSize      string `json:"shoeSize"`
	ShoeNewInBox  string `json:"shoeNewInBox"`
	ShoeColour    string `json:"shoeColour"`
	ShoeGender    string `json:"shoeGender"`
	ShoeMaterial  string `json:"shoeMaterial"`
	ShoeVintage   string `json:"shoeVintage"`
	ShoeCondition string `json:"shoeCondition"`
	ShoeMadeIn    string `json:"shoeMadeIn"`
}

type seedBid struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	BuyerID   string `json:"buyerId"`
	BuyerName string `json:"buyerName"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

type seedOrder struct {
	ID              string `json:"id"`
	ProductID       string `json:"productId"`
	BuyerID         string `json:"buyerId"`
	SellerName      string `json:"sellerName"`
	ProductTitle    string `json:"productTitle"`
	ProductImage    string `json:"productImage"`
	FinalPrice      int64  `json:"finalPrice"`
	ShippingAddress string `json:"shippingAddress"`
	DepositPaid     bool   `json:"depositPaid"`
	Type            string `json:"type"`
	CreatedAt       int64  `json:"createdAt"`
}

// Snapshot holds the converted feed contents.
type Snapshot struct {
	Listings []types.Listing
	Bids     []types.Bid
	Orders   []types.Order
}

// Load reads the three feed files from dir. Each file degrades independently:
// a bad listings file does not discard loaded bids.
func Load(dir string) *Snapshot {
	snap := &Snapshot{}

	var listings []seedListing
	readArray(filepath.Join(dir, ListingsFile), &listings)
	for _, s := range listings {
		snap.Listings = append(snap.Listings, s.toListing())
	}

	var bids []seedBid
	readArray(filepath.Join(dir, BidsFile), &bids)
	for _, s := range bids {
		snap.Bids = append(snap.Bids, types.Bid{
			BidID:     s.ID,
			ProductID: s.ProductID,
			BuyerID:   s.BuyerID,
			BuyerName: s.BuyerName,
			Amount:    s.Amount,
			Timestamp: time.UnixMilli(s.Timestamp),
		})
	}

	var orders []seedOrder
	readArray(filepath.Join(dir, OrdersFile), &orders)
	for _, s := range orders {
		snap.Orders = append(snap.Orders, types.Order{
			OrderID:         s.ID,
			ProductID:       s.ProductID,
			BuyerID:         s.BuyerID,
			SellerName:      s.SellerName,
			ProductTitle:    s.ProductTitle,
			ProductImage:    s.ProductImage,
			ShippingAddress: s.ShippingAddress,
			FinalPrice:      s.FinalPrice,
			Type:            s.Type,
			DepositPaid:     s.DepositPaid,
			CreatedAt:       time.UnixMilli(s.CreatedAt),
		})
	}

	return snap
}

// readArray unmarshals a JSON array file into out, leaving out untouched on
// any failure.
func readArray(path string, out interface{}) {
	logger := log.With().Str("component", "snapshot").Str("file", path).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Msg("feed file unavailable, starting empty")
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		logger.Warn().Msg("feed file empty, starting empty")
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn().Err(err).Msg("feed file malformed, starting empty")
		return
	}
}

func (s seedListing) toListing() types.Listing {
	listing := types.Listing{
		ListingID:        s.ID,
		SellerID:         s.SellerID,
		Category:         normalizeCategory(s.Category),
		Title:            s.Title,
		Description:      s.Description,
		Images:           s.Images,
		EvidenceImages:   s.EvidenceImages,
		StartPrice:       s.StartPrice,
		BidStep:          s.BidStep,
		BuyNowPrice:      s.BuyNowPrice,
		DurationMinutes:  s.Duration,
		Status:           s.Status,
		CurrentPrice:     s.CurrentPrice,
		RejectionReason:  s.RejectionReason,
		IsAuthentic:      s.IsAuthentic,
		CertificationURL: s.CertificationURL,
		CreatedAt:        time.UnixMilli(s.CreatedAt),
		UpdatedAt:        time.UnixMilli(s.CreatedAt),
	}
	if s.StartTime != nil {
		t := time.UnixMilli(*s.StartTime)
		listing.StartTime = &t
	}
	if s.EndTime != nil {
		t := time.UnixMilli(*s.EndTime)
		listing.EndTime = &t
	}
	if listing.CurrentPrice < listing.StartPrice {
		listing.CurrentPrice = listing.StartPrice
	}

	switch listing.Category {
	case types.CategoryHandbag:
		listing.Handbag = &types.HandbagDetails{
			Era:           s.Era,
			Brand:         s.Brand,
			NumberOfItems: s.NumberOfItems,
			Colour:        s.Colour,
			Material:      s.Material,
			Condition:     s.Condition,
			Size:          s.Size,
			Height:        s.Height,
			Width:         s.Width,
			Depth:         s.Depth,
		}
	case types.CategoryShoe:
		listing.Shoe = &types.ShoeDetails{
			Era:       s.ShoeEra,
			Brand:     s.ShoeBrand,
			Size:      s.ShoeSize,
			NewInBox:  s.ShoeNewInBox,
			Colour:    s.ShoeColour,
			Gender:    s.ShoeGender,
			Material:  s.ShoeMaterial,
			Vintage:   s.ShoeVintage,
			Condition: s.ShoeCondition,
			MadeIn:    s.ShoeMadeIn,
		}
	}

	return listing
}

// normalizeCategory maps the feed's display names onto the canonical
// category keys.
func normalizeCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "handbag", "handbags":
		return types.CategoryHandbag
	case "shoe", "shoes":
		return types.CategoryShoe
	default:
		return strings.ToLower(strings.TrimSpace(category))
	}
}

// Seed writes the snapshot into the catalog in feed order. Records that fail
// the catalog's append rules are skipped with a warning; the session still
// starts.
func Seed(cat *catalog.Catalog, snap *Snapshot) {
	logger := log.With().Str("component", "snapshot").Logger()

	for i := range snap.Listings {
		if err := cat.UpsertListing(&snap.Listings[i]); err != nil {
			logger.Warn().Err(err).Str("listing_id", snap.Listings[i].ListingID).Msg("skipping seed listing")
		}
	}
	for i := range snap.Bids {
		if err := cat.AppendBid(&snap.Bids[i]); err != nil {
			logger.Warn().Err(err).Str("bid_id", snap.Bids[i].BidID).Msg("skipping seed bid")
		}
	}
	for i := range snap.Orders {
		if err := cat.AppendOrder(&snap.Orders[i]); err != nil {
			logger.Warn().Err(err).Str("order_id", snap.Orders[i].OrderID).Msg("skipping seed order")
		}
	}

	logger.Info().
		Int("listings", len(snap.Listings)).
		Int("bids", len(snap.Bids)).
		Int("orders", len(snap.Orders)).
		Msg("seeded initial snapshot")
}
