package migrations

import (
	"gorm.io/gorm"
)

// AddAuctionIndexes creates the indexes the auction query paths depend on.
func AddAuctionIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Bid history is always read in (amount desc, timestamp asc) order
		`CREATE INDEX IF NOT EXISTS idx_bids_product_amount
		 ON bids(product_id, amount DESC, timestamp ASC)`,

		// Status filtering for the browse pages
		`CREATE INDEX IF NOT EXISTS idx_listings_status
		 ON listings(status)`,

		// Sweeper scans active listings by end time
		`CREATE INDEX IF NOT EXISTS idx_listings_status_end_time
		 ON listings(status, end_time)`,

		// One order per product, enforced at the storage layer as well as
		// in the catalog's append check
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_product_id
		 ON orders(product_id)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
