package ledger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bidhaus/auction-api/internal/clock"
	"github.com/bidhaus/auction-api/internal/ledger"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/bidhaus/auction-api/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires the handlers the same way cmd/server does, with a stub
// middleware injecting the caller identity instead of JWT validation.
func newTestRouter(t *testing.T, svc *ledger.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handlers := ledger.NewGinHandlers(svc)
	router := gin.New()

	identity := func(id string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("clientID", id)
			c.Next()
		}
	}

	v1 := router.Group("/api/v1")
	v1.GET("/listings", handlers.ListListingsHandler())
	v1.GET("/listings/:listing_id", handlers.GetListingHandler())
	v1.GET("/listings/:listing_id/bids", handlers.BidHistoryHandler())
	v1.GET("/listings/:listing_id/quote", handlers.QuoteHandler())

	buyer := v1.Group("/", identity("buyer_1"))
	buyer.POST("/listings/:listing_id/bids", handlers.PlaceBidHandler())
	buyer.POST("/listings/:listing_id/buy-now", handlers.BuyNowHandler())
	buyer.POST("/listings/:listing_id/orders", handlers.RecordOrderHandler())
	buyer.GET("/orders/:order_id", handlers.GetOrderHandler())
	buyer.POST("/orders/:order_id/deposit", handlers.MarkDepositHandler())
	buyer.GET("/my/orders", handlers.MyOrdersHandler())

	seller := v1.Group("/", identity("seller_1"))
	seller.POST("/listings", handlers.SubmitListingHandler())
	seller.GET("/my/listings", handlers.MyListingsHandler())

	internal := router.Group("/internal")
	internal.POST("/listings/:listing_id/approve", handlers.ApproveListingHandler())
	internal.POST("/listings/:listing_id/reject", handlers.RejectListingHandler())
	internal.POST("/listings/:listing_id/close", handlers.CloseAuctionHandler())

	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

// activeListing submits and approves a draft so the handler tests start from
// a biddable auction.
func activeListing(t *testing.T, svc *ledger.Service, clk *clock.Fake) *types.Listing {
	t.Helper()

	listing, err := svc.SubmitListing(validDraft())
	require.NoError(t, err)
	start := clk.Now()
	approved, err := svc.ApproveListing(listing.ListingID, &start)
	require.NoError(t, err)
	return approved
}

func TestPlaceBidHandler(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	w, envelope := doRequest(t, router, http.MethodPost,
		"/api/v1/listings/"+listing.ListingID+"/bids",
		gin.H{"buyer_name": "Alva", "amount": 110})

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	require.Equal(t, float64(12), data["buyers_premium"])
	require.Equal(t, float64(122), data["estimated_total"])

	bid := data["bid"].(map[string]interface{})
	require.Equal(t, "buyer_1", bid["buyer_id"])
	require.Equal(t, float64(110), bid["amount"])
}

func TestPlaceBidHandlerTooLow(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	w, envelope := doRequest(t, router, http.MethodPost,
		"/api/v1/listings/"+listing.ListingID+"/bids",
		gin.H{"amount": 105})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, envelope.Success)
	require.Equal(t, response.ErrCodeValidationFailed, envelope.Error.Code)
}

func TestPlaceBidHandlerUnknownListing(t *testing.T) {
	svc, _ := newTestLedger(t)
	router := newTestRouter(t, svc)

	w, envelope := doRequest(t, router, http.MethodPost,
		"/api/v1/listings/LST_missing/bids", gin.H{"amount": 110})

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, response.ErrCodeNotFound, envelope.Error.Code)
}

func TestSubmitListingHandlerUsesTokenIdentity(t *testing.T) {
	svc, _ := newTestLedger(t)
	router := newTestRouter(t, svc)

	draft := validDraft()
	draft.SellerID = "someone_else"
	w, envelope := doRequest(t, router, http.MethodPost, "/api/v1/listings", draft)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	require.Equal(t, "seller_1", data["seller_id"])
	require.Equal(t, types.StatusPending, data["status"])
}

func TestQuoteHandler(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	w, envelope := doRequest(t, router, http.MethodGet,
		"/api/v1/listings/"+listing.ListingID+"/quote?amount=200", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	require.Equal(t, float64(200), data["amount"])
	require.Equal(t, float64(110), data["minimum_next_bid"])
	require.Equal(t, float64(24), data["buyers_premium"])
	require.Equal(t, float64(224), data["estimated_total"])
}

func TestQuoteHandlerRejectsBadAmount(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	w, envelope := doRequest(t, router, http.MethodGet,
		"/api/v1/listings/"+listing.ListingID+"/quote?amount=lots", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, response.ErrCodeBadRequest, envelope.Error.Code)
}

func TestGetListingHandlerCountdown(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	clk.Advance(30 * time.Minute)
	w, envelope := doRequest(t, router, http.MethodGet,
		"/api/v1/listings/"+listing.ListingID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	require.Equal(t, float64(30*time.Minute/time.Millisecond), data["remaining_ms"])
	require.Equal(t, false, data["ended"])
}

func TestMyListingsAndOrdersHandlers(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	// A pending draft from another seller stays out of seller_1's view
	otherDraft := validDraft()
	otherDraft.SellerID = "seller_2"
	_, err := svc.SubmitListing(otherDraft)
	require.NoError(t, err)

	w, envelope := doRequest(t, router, http.MethodGet, "/api/v1/my/listings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := envelope.Data.([]interface{})
	require.Len(t, mine, 1)
	require.Equal(t, listing.ListingID, mine[0].(map[string]interface{})["listing_id"])

	_, err = svc.BuyNow(listing.ListingID, "buyer_1", "12 Harbour Lane")
	require.NoError(t, err)

	w, envelope = doRequest(t, router, http.MethodGet, "/api/v1/my/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := envelope.Data.([]interface{})
	require.Len(t, orders, 1)
	require.Equal(t, listing.ListingID, orders[0].(map[string]interface{})["product_id"])
}

func TestRejectListingHandlerRequiresReason(t *testing.T) {
	svc, _ := newTestLedger(t)
	router := newTestRouter(t, svc)

	listing, err := svc.SubmitListing(validDraft())
	require.NoError(t, err)

	w, envelope := doRequest(t, router, http.MethodPost,
		"/internal/listings/"+listing.ListingID+"/reject", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, envelope = doRequest(t, router, http.MethodPost,
		"/internal/listings/"+listing.ListingID+"/reject",
		gin.H{"reason": "insufficient evidence photos"})
	require.Equal(t, http.StatusCreated, w.Code)

	data := envelope.Data.(map[string]interface{})
	require.Equal(t, types.StatusRejected, data["status"])
	require.Equal(t, "insufficient evidence photos", data["rejection_reason"])
}

func TestCloseAuctionHandlerConflictOnSecondClose(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	w, _ := doRequest(t, router, http.MethodPost,
		"/internal/listings/"+listing.ListingID+"/close", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, envelope := doRequest(t, router, http.MethodPost,
		"/internal/listings/"+listing.ListingID+"/close", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, response.ErrCodeDuplicateResource, envelope.Error.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	svc, clk := newTestLedger(t)
	router := newTestRouter(t, svc)
	listing := activeListing(t, svc, clk)

	_, err := svc.PlaceBid(listing.ListingID, "buyer_1", "Alva", 150)
	require.NoError(t, err)
	_, err = svc.CloseAuction(listing.ListingID)
	require.NoError(t, err)

	w, envelope := doRequest(t, router, http.MethodPost,
		"/api/v1/listings/"+listing.ListingID+"/orders",
		gin.H{"final_price": 150, "type": types.OrderTypeBid, "shipping_address": "12 Harbour Lane"})
	require.Equal(t, http.StatusCreated, w.Code)

	data := envelope.Data.(map[string]interface{})
	orderID := data["order_id"].(string)
	require.NotEmpty(t, orderID)
	require.Equal(t, false, data["deposit_paid"])

	// Settling the same product twice is a conflict
	w, envelope = doRequest(t, router, http.MethodPost,
		"/api/v1/listings/"+listing.ListingID+"/orders",
		gin.H{"final_price": 150, "type": types.OrderTypeBid})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, response.ErrCodeDuplicateResource, envelope.Error.Code)

	// Deposit confirmation is idempotent
	for i := 0; i < 2; i++ {
		w, envelope = doRequest(t, router, http.MethodPost,
			fmt.Sprintf("/api/v1/orders/%s/deposit", orderID), nil)
		require.Equal(t, http.StatusCreated, w.Code)
		data = envelope.Data.(map[string]interface{})
		require.Equal(t, true, data["deposit_paid"])
	}

	w, envelope = doRequest(t, router, http.MethodGet,
		"/api/v1/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = envelope.Data.(map[string]interface{})
	require.Equal(t, "buyer_1", data["buyer_id"])
	require.Equal(t, float64(150), data["final_price"])
}
