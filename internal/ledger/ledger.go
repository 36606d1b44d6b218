package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bidhaus/auction-api/internal/authenticity"
	"github.com/bidhaus/auction-api/internal/catalog"
	"github.com/bidhaus/auction-api/internal/clock"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the state-transition authority for the auction catalog. All
// mutations flow through it; presentation collaborators never touch the
// catalog directly. Construct one per session via NewService, there is no
// ambient global instance.
type Service struct {
	catalog *catalog.Catalog
	clock   clock.Clock
	checker authenticity.Checker

	// Mutations are serialized per listing so the minimum-increment rule
	// holds under concurrent bidders.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new ledger over the given database connection.
func NewService(gormDB *gorm.DB, clk clock.Clock, checker authenticity.Checker) *Service {
	return &Service{
		catalog: catalog.New(gormDB),
		clock:   clk,
		checker: checker,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Catalog exposes read access for collaborators that only need queries.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) lockListing(productID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[productID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// SubmitListing validates a seller draft and records it as a pending listing.
// The authenticity verdict is taken synchronously and stored on the listing.
func (s *Service) SubmitListing(draft types.ListingDraft) (*types.Listing, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	listing := &types.Listing{
		ListingID:       "LST_" + uuid.New().String(),
		SellerID:        draft.SellerID,
		Category:        draft.Category,
		Title:           draft.Title,
		Description:     draft.Description,
		Images:          draft.Images,
		EvidenceImages:  draft.EvidenceImages,
		StartPrice:      draft.StartPrice,
		BidStep:         draft.BidStep,
		BuyNowPrice:     draft.BuyNowPrice,
		DurationMinutes: draft.DurationMinutes,
		Status:          types.StatusPending,
		CurrentPrice:    draft.StartPrice,
		Handbag:         draft.Handbag,
		Shoe:            draft.Shoe,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.checker != nil {
		result := s.checker.Check(draft)
		listing.IsAuthentic = result.Authentic
		listing.CertificationURL = result.CertificationURL
	}

	if err := s.catalog.UpsertListing(listing); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ListingID).
		Str("seller_id", listing.SellerID).
		Str("category", listing.Category).
		Int64("start_price", listing.StartPrice).
		Msg("listing submitted")

	return listing, nil
}

func validateDraft(draft types.ListingDraft) error {
	switch {
	case draft.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidDraft)
	case draft.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidDraft)
	case draft.SellerID == "":
		return fmt.Errorf("%w: seller id is required", ErrInvalidDraft)
	case draft.StartPrice <= 0:
		return fmt.Errorf("%w: start price must be positive", ErrInvalidDraft)
	case draft.BidStep <= 0:
		return fmt.Errorf("%w: bid step must be positive", ErrInvalidDraft)
	case draft.BuyNowPrice < 0:
		return fmt.Errorf("%w: buy-now price cannot be negative", ErrInvalidDraft)
	case draft.DurationMinutes <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidDraft)
	}

	switch draft.Category {
	case types.CategoryHandbag:
		if draft.Shoe != nil {
			return fmt.Errorf("%w: shoe details on a handbag listing", ErrInvalidDraft)
		}
	case types.CategoryShoe:
		if draft.Handbag != nil {
			return fmt.Errorf("%w: handbag details on a shoe listing", ErrInvalidDraft)
		}
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, draft.Category)
	}

	return nil
}

// ApproveListing moves a pending listing to active and schedules its auction
// window. A nil startTime means the auction starts now.
func (s *Service) ApproveListing(listingID string, startTime *time.Time) (*types.Listing, error) {
	unlock := s.lockListing(listingID)
	defer unlock()

	listing, err := s.catalog.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, listingID)
	}
	if listing.Status != types.StatusPending {
		return nil, fmt.Errorf("%w: cannot approve listing in status %q", ErrInvalidTransition, listing.Status)
	}

	start := s.clock.Now()
	if startTime != nil {
		start = *startTime
	}
	end := start.Add(time.Duration(listing.DurationMinutes) * time.Minute)

	listing.Status = types.StatusActive
	listing.StartTime = &start
	listing.EndTime = &end
	listing.UpdatedAt = s.clock.Now()

	if err := s.catalog.UpsertListing(listing); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ListingID).
		Time("start_time", start).
		Time("end_time", end).
		Msg("listing approved")

	return listing, nil
}

// RejectListing moves a pending listing to the terminal rejected state.
func (s *Service) RejectListing(listingID, reason string) (*types.Listing, error) {
	unlock := s.lockListing(listingID)
	defer unlock()

	listing, err := s.catalog.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, listingID)
	}
	if listing.Status != types.StatusPending {
		return nil, fmt.Errorf("%w: cannot reject listing in status %q", ErrInvalidTransition, listing.Status)
	}

	listing.Status = types.StatusRejected
	listing.RejectionReason = reason
	listing.UpdatedAt = s.clock.Now()

	if err := s.catalog.UpsertListing(listing); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ListingID).
		Str("reason", reason).
		Msg("listing rejected")

	return listing, nil
}

// PlaceBid validates and records a bid against an active listing. On success
// the listing's current price moves to the bid amount in the same
// transaction, so no reader ever observes a bid without its price.
func (s *Service) PlaceBid(productID, buyerID, buyerName string, amount int64) (*types.Bid, error) {
	unlock := s.lockListing(productID)
	defer unlock()

	listing, err := s.catalog.GetListing(productID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, productID)
	}

	now := s.clock.Now()
	if listing.Status != types.StatusActive {
		return nil, fmt.Errorf("%w: listing is %q", ErrAuctionNotActive, listing.Status)
	}
	if listing.EndTime != nil && !now.Before(*listing.EndTime) {
		return nil, fmt.Errorf("%w: auction ended at %s", ErrAuctionNotActive, listing.EndTime.Format(time.RFC3339))
	}

	minimum := listing.CurrentPrice + listing.BidStep
	if amount < minimum {
		return nil, fmt.Errorf("%w: minimum bid is %d", ErrBidTooLow, minimum)
	}

	bid := &types.Bid{
		BidID:     "BID_" + uuid.New().String(),
		ProductID: productID,
		BuyerID:   buyerID,
		BuyerName: buyerName,
		Amount:    amount,
		Timestamp: now,
	}

	if err := s.catalog.AppendBidWithPrice(bid); err != nil {
		return nil, err
	}

	log.Info().
		Str("bid_id", bid.BidID).
		Str("product_id", productID).
		Str("buyer_id", buyerID).
		Int64("amount", amount).
		Msg("bid accepted")

	return bid, nil
}

// CloseAuction transitions an active listing to ended. It is deliberately not
// idempotent: closing an already-ended listing is an invalid transition, which
// keeps a second close from ever minting a second order downstream.
func (s *Service) CloseAuction(productID string) (*types.Listing, error) {
	unlock := s.lockListing(productID)
	defer unlock()

	listing, err := s.catalog.GetListing(productID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, productID)
	}
	if listing.Status != types.StatusActive {
		return nil, fmt.Errorf("%w: cannot close listing in status %q", ErrInvalidTransition, listing.Status)
	}

	listing.Status = types.StatusEnded
	listing.UpdatedAt = s.clock.Now()

	if err := s.catalog.UpsertListing(listing); err != nil {
		return nil, err
	}

	log.Info().Str("listing_id", productID).Msg("auction closed")

	return listing, nil
}

// OrderInput carries the settlement details for RecordOrder.
type OrderInput struct {
	ProductID       string
	BuyerID         string
	FinalPrice      int64
	Type            string // bid or buynow
	ShippingAddress string
}

// RecordOrder creates the settlement record for a concluded auction. The
// listing is transitioned to ended as a side effect if it is still active. At
// most one order may exist per product.
func (s *Service) RecordOrder(input OrderInput) (*types.Order, error) {
	unlock := s.lockListing(input.ProductID)
	defer unlock()

	return s.recordOrder(input)
}

// recordOrder is the lock-free core; callers must hold the listing lock.
func (s *Service) recordOrder(input OrderInput) (*types.Order, error) {
	listing, err := s.catalog.GetListing(input.ProductID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, input.ProductID)
	}
	if listing.Status != types.StatusActive && listing.Status != types.StatusEnded {
		return nil, fmt.Errorf("%w: cannot settle listing in status %q", ErrInvalidTransition, listing.Status)
	}
	if input.Type != types.OrderTypeBid && input.Type != types.OrderTypeBuyNow {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidDraft, input.Type)
	}

	order := &types.Order{
		OrderID:         "ORD_" + uuid.New().String(),
		ProductID:       input.ProductID,
		BuyerID:         input.BuyerID,
		ProductTitle:    listing.Title,
		ShippingAddress: input.ShippingAddress,
		FinalPrice:      input.FinalPrice,
		Type:            input.Type,
		DepositPaid:     false,
		CreatedAt:       s.clock.Now(),
		UpdatedAt:       s.clock.Now(),
	}
	if len(listing.Images) > 0 {
		order.ProductImage = listing.Images[0]
	}

	if err := s.catalog.AppendOrderWithClose(order); err != nil {
		if errors.Is(err, catalog.ErrDuplicateProductOrder) {
			return nil, fmt.Errorf("%w: %s", ErrOrderAlreadyExists, input.ProductID)
		}
		return nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("product_id", order.ProductID).
		Str("type", order.Type).
		Int64("final_price", order.FinalPrice).
		Msg("order recorded")

	return order, nil
}

// BuyNow settles an active listing immediately at its buy-now price.
func (s *Service) BuyNow(productID, buyerID, shippingAddress string) (*types.Order, error) {
	unlock := s.lockListing(productID)
	defer unlock()

	listing, err := s.catalog.GetListing(productID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, productID)
	}
	if listing.Status != types.StatusActive {
		return nil, fmt.Errorf("%w: listing is %q", ErrAuctionNotActive, listing.Status)
	}
	if listing.BuyNowPrice <= 0 {
		return nil, fmt.Errorf("%w: listing has no buy-now price", ErrInvalidDraft)
	}

	return s.recordOrder(OrderInput{
		ProductID:       productID,
		BuyerID:         buyerID,
		FinalPrice:      listing.BuyNowPrice,
		Type:            types.OrderTypeBuyNow,
		ShippingAddress: shippingAddress,
	})
}

// MarkDeposit flips an order's deposit flag to paid. Idempotent: a repeated
// confirmation signal is a no-op, not an error.
func (s *Service) MarkDeposit(orderID string) (*types.Order, error) {
	order, err := s.catalog.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if order.DepositPaid {
		return order, nil
	}

	order.DepositPaid = true
	order.UpdatedAt = s.clock.Now()
	if err := s.catalog.UpdateOrder(order); err != nil {
		return nil, err
	}

	log.Info().Str("order_id", orderID).Msg("deposit marked paid")

	return order, nil
}

// GetListing returns the countdown view of a listing at the current instant.
func (s *Service) GetListing(listingID string) (*types.ListingResponse, error) {
	listing, err := s.catalog.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, listingID)
	}

	count, err := s.catalog.CountBids(listingID)
	if err != nil {
		return nil, err
	}

	resp := types.NewListingResponse(*listing, count, s.clock.Now())
	return &resp, nil
}

// ListListings returns countdown views filtered by status and category.
func (s *Service) ListListings(status, category string) ([]types.ListingResponse, error) {
	listings, err := s.catalog.ListListings(status, category)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	responses := make([]types.ListingResponse, 0, len(listings))
	for _, listing := range listings {
		count, err := s.catalog.CountBids(listing.ListingID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, types.NewListingResponse(listing, count, now))
	}
	return responses, nil
}

// ListingsBySeller returns countdown views of a seller's own listings,
// including pending and rejected ones.
func (s *Service) ListingsBySeller(sellerID string) ([]types.ListingResponse, error) {
	listings, err := s.catalog.ListingsBySeller(sellerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	responses := make([]types.ListingResponse, 0, len(listings))
	for _, listing := range listings {
		count, err := s.catalog.CountBids(listing.ListingID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, types.NewListingResponse(listing, count, now))
	}
	return responses, nil
}

// OrdersForBuyer returns a buyer's orders, newest first.
func (s *Service) OrdersForBuyer(buyerID string) ([]types.Order, error) {
	return s.catalog.OrdersForBuyer(buyerID)
}

// BidHistory returns a listing's bids in display order.
func (s *Service) BidHistory(productID string) ([]types.Bid, error) {
	listing, err := s.catalog.GetListing(productID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, productID)
	}
	return s.catalog.BidsForListing(productID)
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(orderID string) (*types.Order, error) {
	order, err := s.catalog.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// Quote derives the display-only fee breakdown for a prospective bid amount.
// A zero amount quotes the minimum next bid.
func (s *Service) Quote(productID string, amount int64) (*types.BidQuote, error) {
	listing, err := s.catalog.GetListing(productID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, productID)
	}

	minimum := listing.CurrentPrice + listing.BidStep
	if amount <= 0 {
		amount = minimum
	}
	premium := BuyersPremium(amount)

	return &types.BidQuote{
		ProductID:      productID,
		Amount:         amount,
		MinimumNextBid: minimum,
		BuyersPremium:  premium,
		EstimatedTotal: amount + premium,
	}, nil
}
