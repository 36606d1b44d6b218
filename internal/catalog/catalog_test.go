package catalog_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/bidhaus/auction-api/internal/catalog"
	"github.com/bidhaus/auction-api/internal/database"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.NewDatabase(dsn)
	require.NoError(t, err)
	return catalog.New(db)
}

func testListing(id string) *types.Listing {
	return &types.Listing{
		ListingID:       id,
		SellerID:        "seller_1",
		Category:        types.CategoryHandbag,
		Title:           "Test Lot",
		Description:     "A lot for tests",
		StartPrice:      100,
		BidStep:         10,
		DurationMinutes: 60,
		Status:          types.StatusActive,
		CurrentPrice:    100,
		CreatedAt:       time.Now(),
	}
}

func TestUpsertListingReplacesByID(t *testing.T) {
	cat := newTestCatalog(t)

	listing := testListing("LST_1")
	require.NoError(t, cat.UpsertListing(listing))

	listing.CurrentPrice = 150
	listing.Status = types.StatusEnded
	require.NoError(t, cat.UpsertListing(listing))

	got, err := cat.GetListing("LST_1")
	require.NoError(t, err)
	require.Equal(t, int64(150), got.CurrentPrice)
	require.Equal(t, types.StatusEnded, got.Status)

	all, err := cat.ListListings("", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGetListingAbsent(t *testing.T) {
	cat := newTestCatalog(t)

	got, err := cat.GetListing("LST_missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAppendBidRejectsDuplicateID(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.UpsertListing(testListing("LST_1")))

	bid := &types.Bid{BidID: "BID_1", ProductID: "LST_1", BuyerID: "buyer_1", Amount: 110, Timestamp: time.Now()}
	require.NoError(t, cat.AppendBid(bid))

	dup := &types.Bid{BidID: "BID_1", ProductID: "LST_1", BuyerID: "buyer_2", Amount: 120, Timestamp: time.Now()}
	err := cat.AppendBid(dup)
	require.ErrorIs(t, err, catalog.ErrDuplicateID)

	count, err := cat.CountBids("LST_1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestAppendBidWithPriceIsAtomic(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.UpsertListing(testListing("LST_1")))

	bid := &types.Bid{BidID: "BID_1", ProductID: "LST_1", BuyerID: "buyer_1", Amount: 130, Timestamp: time.Now()}
	require.NoError(t, cat.AppendBidWithPrice(bid))

	got, err := cat.GetListing("LST_1")
	require.NoError(t, err)
	require.Equal(t, int64(130), got.CurrentPrice)

	// A duplicate insert must not move the price either
	dup := &types.Bid{BidID: "BID_1", ProductID: "LST_1", BuyerID: "buyer_2", Amount: 999, Timestamp: time.Now()}
	require.ErrorIs(t, cat.AppendBidWithPrice(dup), catalog.ErrDuplicateID)

	got, err = cat.GetListing("LST_1")
	require.NoError(t, err)
	require.Equal(t, int64(130), got.CurrentPrice)
}

func TestBidsForListingDisplayOrder(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.UpsertListing(testListing("LST_1")))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bids := []*types.Bid{
		{BidID: "BID_1", ProductID: "LST_1", Amount: 110, Timestamp: base},
		{BidID: "BID_2", ProductID: "LST_1", Amount: 150, Timestamp: base.Add(2 * time.Minute)},
		// Same amount as BID_2 but later: the earlier bid wins the tie
		{BidID: "BID_3", ProductID: "LST_1", Amount: 150, Timestamp: base.Add(3 * time.Minute)},
		{BidID: "BID_4", ProductID: "LST_1", Amount: 130, Timestamp: base.Add(time.Minute)},
	}
	for _, b := range bids {
		require.NoError(t, cat.AppendBid(b))
	}

	got, err := cat.BidsForListing("LST_1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, []string{"BID_2", "BID_3", "BID_4", "BID_1"}, []string{
		got[0].BidID, got[1].BidID, got[2].BidID, got[3].BidID,
	})
}

func TestAppendOrderRejectsSecondOrderForProduct(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.UpsertListing(testListing("LST_1")))

	order := &types.Order{OrderID: "ORD_1", ProductID: "LST_1", BuyerID: "buyer_1", FinalPrice: 150, Type: types.OrderTypeBid, CreatedAt: time.Now()}
	require.NoError(t, cat.AppendOrder(order))

	second := &types.Order{OrderID: "ORD_2", ProductID: "LST_1", BuyerID: "buyer_2", FinalPrice: 160, Type: types.OrderTypeBid, CreatedAt: time.Now()}
	require.ErrorIs(t, cat.AppendOrder(second), catalog.ErrDuplicateProductOrder)

	got, err := cat.GetOrderByProduct("LST_1")
	require.NoError(t, err)
	require.Equal(t, "ORD_1", got.OrderID)
}

func TestAppendOrderWithCloseEndsListing(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.UpsertListing(testListing("LST_1")))

	order := &types.Order{OrderID: "ORD_1", ProductID: "LST_1", BuyerID: "buyer_1", FinalPrice: 150, Type: types.OrderTypeBuyNow, CreatedAt: time.Now()}
	require.NoError(t, cat.AppendOrderWithClose(order))

	listing, err := cat.GetListing("LST_1")
	require.NoError(t, err)
	require.Equal(t, types.StatusEnded, listing.Status)
}

func TestExpiredActiveListings(t *testing.T) {
	cat := newTestCatalog(t)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := testListing("LST_expired")
	expired.EndTime = &past
	running := testListing("LST_running")
	running.EndTime = &future
	ended := testListing("LST_ended")
	ended.EndTime = &past
	ended.Status = types.StatusEnded

	require.NoError(t, cat.UpsertListing(expired))
	require.NoError(t, cat.UpsertListing(running))
	require.NoError(t, cat.UpsertListing(ended))

	got, err := cat.ExpiredActiveListings(now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "LST_expired", got[0].ListingID)
}
