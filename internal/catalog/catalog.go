package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/bidhaus/auction-api/internal/types"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateID is returned when an append-only insert reuses an ID.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrDuplicateProductOrder is returned when a product already has an order.
	ErrDuplicateProductOrder = errors.New("order already exists for product")
)

// Catalog holds the authoritative collections of listings, bids and orders.
// All mutation entry points are called exclusively by the ledger; each runs in
// a transaction so a failed operation leaves state unchanged.
type Catalog struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// UpsertListing inserts or replaces a listing by its ListingID.
func (c *Catalog) UpsertListing(listing *types.Listing) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var existing types.Listing
		err := tx.Where("listing_id = ?", listing.ListingID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(listing).Error
		}
		if err != nil {
			return err
		}
		listing.ID = existing.ID
		return tx.Save(listing).Error
	})
}

// GetListing retrieves a listing by ID. Returns nil, nil when absent.
func (c *Catalog) GetListing(listingID string) (*types.Listing, error) {
	var listing types.Listing
	if err := c.db.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// ListListings returns listings filtered by status and category. Empty filter
// values match everything. Results are newest first.
func (c *Catalog) ListListings(status, category string) ([]types.Listing, error) {
	query := c.db.Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var listings []types.Listing
	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// ListingsBySeller returns all listings submitted by a seller, newest first.
func (c *Catalog) ListingsBySeller(sellerID string) ([]types.Listing, error) {
	var listings []types.Listing
	err := c.db.Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ExpiredActiveListings returns active listings whose end time is at or
// before now. Read-only; used by the auction sweeper.
func (c *Catalog) ExpiredActiveListings(now time.Time) ([]types.Listing, error) {
	var listings []types.Listing
	err := c.db.Where("status = ? AND end_time IS NOT NULL AND end_time <= ?",
		types.StatusActive, now).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// AppendBid is an append-only insert. It fails with ErrDuplicateID if the bid
// ID is already present.
func (c *Catalog) AppendBid(bid *types.Bid) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := checkBidIDFree(tx, bid.BidID); err != nil {
			return err
		}
		return tx.Create(bid).Error
	})
}

// AppendBidWithPrice appends a bid and moves the listing's current price to
// the bid amount in the same transaction. The ledger relies on this being
// all-or-nothing: a rejected insert must not leave a stale price behind.
func (c *Catalog) AppendBidWithPrice(bid *types.Bid) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := checkBidIDFree(tx, bid.BidID); err != nil {
			return err
		}
		if err := tx.Create(bid).Error; err != nil {
			return err
		}
		return tx.Model(&types.Listing{}).
			Where("listing_id = ?", bid.ProductID).
			Update("current_price", bid.Amount).Error
	})
}

func checkBidIDFree(tx *gorm.DB, bidID string) error {
	var count int64
	if err := tx.Model(&types.Bid{}).Where("bid_id = ?", bidID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: bid %s", ErrDuplicateID, bidID)
	}
	return nil
}

// BidsForListing returns the bid history for a listing ordered by
// (amount desc, timestamp asc), the display order for bid history.
func (c *Catalog) BidsForListing(productID string) ([]types.Bid, error) {
	var bids []types.Bid
	err := c.db.Where("product_id = ?", productID).
		Order("amount DESC, timestamp ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// CountBids returns the number of bids recorded against a listing.
func (c *Catalog) CountBids(productID string) (int64, error) {
	var count int64
	err := c.db.Model(&types.Bid{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

// AppendOrder is an append-only insert. It fails with
// ErrDuplicateProductOrder if the product already has an order.
func (c *Catalog) AppendOrder(order *types.Order) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := checkProductOrderFree(tx, order.ProductID); err != nil {
			return err
		}
		return tx.Create(order).Error
	})
}

// AppendOrderWithClose appends an order and transitions the listing to ended
// in the same transaction.
func (c *Catalog) AppendOrderWithClose(order *types.Order) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := checkProductOrderFree(tx, order.ProductID); err != nil {
			return err
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Model(&types.Listing{}).
			Where("listing_id = ?", order.ProductID).
			Update("status", types.StatusEnded).Error
	})
}

func checkProductOrderFree(tx *gorm.DB, productID string) error {
	var count int64
	if err := tx.Model(&types.Order{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: product %s", ErrDuplicateProductOrder, productID)
	}
	return nil
}

// GetOrder retrieves an order by ID. Returns nil, nil when absent.
func (c *Catalog) GetOrder(orderID string) (*types.Order, error) {
	var order types.Order
	if err := c.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByProduct retrieves the order settled against a product, if any.
func (c *Catalog) GetOrderByProduct(productID string) (*types.Order, error) {
	var order types.Order
	if err := c.db.Where("product_id = ?", productID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// OrdersForBuyer returns a buyer's orders, newest first.
func (c *Catalog) OrdersForBuyer(buyerID string) ([]types.Order, error) {
	var orders []types.Order
	err := c.db.Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder persists changes to an existing order.
func (c *Catalog) UpdateOrder(order *types.Order) error {
	return c.db.Save(order).Error
}
