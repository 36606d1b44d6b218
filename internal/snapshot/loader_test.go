package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bidhaus/auction-api/internal/catalog"
	"github.com/bidhaus/auction-api/internal/database"
	"github.com/bidhaus/auction-api/internal/snapshot"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadMissingDirectory(t *testing.T) {
	snap := snapshot.Load(filepath.Join(t.TempDir(), "nope"))
	require.Empty(t, snap.Listings)
	require.Empty(t, snap.Bids)
	require.Empty(t, snap.Orders)
}

func TestLoadDegradesPerFile(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, snapshot.ListingsFile, "not json at all")
	writeFeed(t, dir, snapshot.BidsFile, `[{"id":"BID_1","productId":"LST_1","buyerId":"buyer_1","buyerName":"Alva","amount":110,"timestamp":1714564800000}]`)
	writeFeed(t, dir, snapshot.OrdersFile, "   ")

	snap := snapshot.Load(dir)
	require.Empty(t, snap.Listings)
	require.Empty(t, snap.Orders)
	require.Len(t, snap.Bids, 1)
	require.Equal(t, "BID_1", snap.Bids[0].BidID)
	require.Equal(t, int64(110), snap.Bids[0].Amount)
	require.Equal(t, time.UnixMilli(1714564800000), snap.Bids[0].Timestamp)
}

func TestLoadConvertsListings(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, snapshot.ListingsFile, `[
		{
			"id": "LST_1",
			"sellerId": "seller_1",
			"category": "Handbags",
			"title": "Vintage Flap Bag",
			"description": "Quilted lambskin",
			"images": ["a.jpg"],
			"startPrice": 100,
			"bidStep": 10,
			"buyNowPrice": 500,
			"duration": 60,
			"status": "active",
			"currentPrice": 40,
			"startTime": 1714564800000,
			"endTime": 1714568400000,
			"isAuthentic": true,
			"certificationUrl": "https://certs.example/LST_1",
			"createdAt": 1714561200000,
			"brand": "Maison L",
			"colour": "black",
			"condition": "good"
		},
		{
			"id": "LST_2",
			"sellerId": "seller_2",
			"category": "Shoes",
			"title": "Runner 88",
			"description": "Deadstock pair",
			"startPrice": 200,
			"bidStep": 20,
			"duration": 120,
			"status": "pending",
			"currentPrice": 200,
			"createdAt": 1714561200000,
			"shoeBrand": "Corsa",
			"shoeSize": "42",
			"shoeNewInBox": "yes"
		}
	]`)

	snap := snapshot.Load(dir)
	require.Len(t, snap.Listings, 2)

	bag := snap.Listings[0]
	require.Equal(t, types.CategoryHandbag, bag.Category)
	require.Equal(t, types.StatusActive, bag.Status)
	// The feed's stale currentPrice is clamped up to startPrice
	require.Equal(t, int64(100), bag.CurrentPrice)
	require.NotNil(t, bag.StartTime)
	require.Equal(t, time.UnixMilli(1714564800000), *bag.StartTime)
	require.NotNil(t, bag.EndTime)
	require.NotNil(t, bag.Handbag)
	require.Nil(t, bag.Shoe)
	require.Equal(t, "Maison L", bag.Handbag.Brand)
	require.Equal(t, "good", bag.Handbag.Condition)

	shoe := snap.Listings[1]
	require.Equal(t, types.CategoryShoe, shoe.Category)
	require.Nil(t, shoe.StartTime)
	require.Nil(t, shoe.Handbag)
	require.NotNil(t, shoe.Shoe)
	require.Equal(t, "Corsa", shoe.Shoe.Brand)
	require.Equal(t, "42", shoe.Shoe.Size)
}

func TestSeedSkipsConflictingRecords(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.NewDatabase(dsn)
	require.NoError(t, err)
	cat := catalog.New(db)

	now := time.Now()
	snap := &snapshot.Snapshot{
		Listings: []types.Listing{
			{ListingID: "LST_1", SellerID: "seller_1", Category: types.CategoryShoe, Title: "Runner 88",
				StartPrice: 100, BidStep: 10, DurationMinutes: 60, Status: types.StatusEnded, CurrentPrice: 150},
		},
		Bids: []types.Bid{
			{BidID: "BID_1", ProductID: "LST_1", BuyerID: "buyer_1", Amount: 150, Timestamp: now},
			{BidID: "BID_1", ProductID: "LST_1", BuyerID: "buyer_2", Amount: 160, Timestamp: now},
		},
		Orders: []types.Order{
			{OrderID: "ORD_1", ProductID: "LST_1", BuyerID: "buyer_1", FinalPrice: 150, Type: types.OrderTypeBid},
			{OrderID: "ORD_2", ProductID: "LST_1", BuyerID: "buyer_2", FinalPrice: 160, Type: types.OrderTypeBid},
		},
	}

	snapshot.Seed(cat, snap)

	count, err := cat.CountBids("LST_1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	order, err := cat.GetOrderByProduct("LST_1")
	require.NoError(t, err)
	require.Equal(t, "ORD_1", order.OrderID)
}
