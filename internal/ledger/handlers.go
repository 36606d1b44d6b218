package ledger

import (
	"errors"
	"strconv"
	"time"

	"github.com/bidhaus/auction-api/internal/catalog"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/bidhaus/auction-api/pkg/response"
	"github.com/gin-gonic/gin"
)

// GinHandlers contains HTTP handlers for the auction endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for the auction endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// respondError maps the ledger error taxonomy onto HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrListingNotFound), errors.Is(err, ErrOrderNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrOrderAlreadyExists),
		errors.Is(err, catalog.ErrDuplicateID),
		errors.Is(err, catalog.ErrDuplicateProductOrder):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidDraft),
		errors.Is(err, ErrBidTooLow),
		errors.Is(err, ErrAuctionNotActive):
		response.ValidationFailed(c, err.Error())
	default:
		response.InternalError(c, "An unexpected error occurred")
	}
}

// clientID extracts the authenticated caller's ID set by the auth middleware.
func clientID(c *gin.Context) string {
	return c.GetString("clientID")
}

// ListListingsHandler handles GET requests to browse listings
// Optional query parameters: status, category
func (h *GinHandlers) ListListingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listings, err := h.service.ListListings(c.Query("status"), c.Query("category"))
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listings)
	}
}

// GetListingHandler handles GET requests for a single listing with its
// countdown state
// URL parameter: listing_id
func (h *GinHandlers) GetListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, err := h.service.GetListing(c.Param("listing_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listing)
	}
}

// BidHistoryHandler handles GET requests for a listing's bid history
// URL parameter: listing_id
func (h *GinHandlers) BidHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bids, err := h.service.BidHistory(c.Param("listing_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, bids)
	}
}

// QuoteHandler handles GET requests for a display-only fee breakdown
// URL parameter: listing_id; query parameter: amount (optional)
func (h *GinHandlers) QuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var amount int64
		if raw := c.Query("amount"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				response.BadRequest(c, "amount must be a non-negative integer")
				return
			}
			amount = parsed
		}

		quote, err := h.service.Quote(c.Param("listing_id"), amount)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, quote)
	}
}

// SubmitListingHandler handles POST requests from sellers to submit a draft
// Requires a valid JWT token; the seller ID is taken from the token
func (h *GinHandlers) SubmitListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var draft types.ListingDraft
		if err := c.ShouldBindJSON(&draft); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if id := clientID(c); id != "" {
			draft.SellerID = id
		}

		listing, err := h.service.SubmitListing(draft)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listing)
	}
}

type placeBidRequest struct {
	BuyerName string `json:"buyer_name"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

// PlaceBidHandler handles POST requests to place a bid on a listing
// Requires a valid JWT token; the buyer ID is taken from the token
// URL parameter: listing_id
func (h *GinHandlers) PlaceBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req placeBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		buyerID := clientID(c)
		if buyerID == "" {
			response.Unauthorized(c, "Missing client identity")
			return
		}

		bid, err := h.service.PlaceBid(c.Param("listing_id"), buyerID, req.BuyerName, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}

		premium := BuyersPremium(bid.Amount)
		response.Success(c, gin.H{
			"bid":             bid,
			"buyers_premium":  premium,
			"estimated_total": bid.Amount + premium,
		})
	}
}

type buyNowRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

// BuyNowHandler handles POST requests to settle a listing at its buy-now
// price
// URL parameter: listing_id
func (h *GinHandlers) BuyNowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req buyNowRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			response.BadRequest(c, err.Error())
			return
		}

		buyerID := clientID(c)
		if buyerID == "" {
			response.Unauthorized(c, "Missing client identity")
			return
		}

		order, err := h.service.BuyNow(c.Param("listing_id"), buyerID, req.ShippingAddress)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, order)
	}
}

type recordOrderRequest struct {
	FinalPrice      int64  `json:"final_price" binding:"required,gt=0"`
	Type            string `json:"type" binding:"required"`
	ShippingAddress string `json:"shipping_address"`
}

// RecordOrderHandler handles POST requests to settle a concluded auction
// URL parameter: listing_id
func (h *GinHandlers) RecordOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		buyerID := clientID(c)
		if buyerID == "" {
			response.Unauthorized(c, "Missing client identity")
			return
		}

		order, err := h.service.RecordOrder(OrderInput{
			ProductID:       c.Param("listing_id"),
			BuyerID:         buyerID,
			FinalPrice:      req.FinalPrice,
			Type:            req.Type,
			ShippingAddress: req.ShippingAddress,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, order)
	}
}

// MyListingsHandler handles GET requests for the caller's own listings
// Requires a valid JWT token; includes pending and rejected listings
func (h *GinHandlers) MyListingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sellerID := clientID(c)
		if sellerID == "" {
			response.Unauthorized(c, "Missing client identity")
			return
		}

		listings, err := h.service.ListingsBySeller(sellerID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listings)
	}
}

// MyOrdersHandler handles GET requests for the caller's orders
// Requires a valid JWT token
func (h *GinHandlers) MyOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID := clientID(c)
		if buyerID == "" {
			response.Unauthorized(c, "Missing client identity")
			return
		}

		orders, err := h.service.OrdersForBuyer(buyerID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, orders)
	}
}

// GetOrderHandler handles GET requests for a single order
// URL parameter: order_id
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.service.GetOrder(c.Param("order_id"))
		if err != nil {
			respondError(c, err)
			return
		}

		// Buyers may only read their own orders
		if id := clientID(c); id != "" && order.BuyerID != id {
			response.NotFound(c, "order not found")
			return
		}
		response.Success(c, order)
	}
}

// MarkDepositHandler handles POST requests confirming an order's deposit
// Idempotent: a duplicate confirmation succeeds without changing state
// URL parameter: order_id
func (h *GinHandlers) MarkDepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.service.MarkDeposit(c.Param("order_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, order)
	}
}

type approveRequest struct {
	StartTime *int64 `json:"start_time,omitempty"` // epoch millis, defaults to now
}

// ApproveListingHandler handles POST requests from moderators to approve a
// pending listing
// URL parameter: listing_id
func (h *GinHandlers) ApproveListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approveRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			response.BadRequest(c, err.Error())
			return
		}

		var startTime *time.Time
		if req.StartTime != nil {
			t := time.UnixMilli(*req.StartTime)
			startTime = &t
		}

		listing, err := h.service.ApproveListing(c.Param("listing_id"), startTime)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listing)
	}
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectListingHandler handles POST requests from moderators to reject a
// pending listing
// URL parameter: listing_id
func (h *GinHandlers) RejectListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		listing, err := h.service.RejectListing(c.Param("listing_id"), req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listing)
	}
}

// CloseAuctionHandler handles POST requests to close an active auction
// URL parameter: listing_id
func (h *GinHandlers) CloseAuctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, err := h.service.CloseAuction(c.Param("listing_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, listing)
	}
}
