package database

import (
	"fmt"

	"github.com/bidhaus/auction-api/internal/database/migrations"
	"github.com/bidhaus/auction-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InMemoryDSN keeps all auction state inside the process. Nothing survives a
// restart, which is the contract: the catalog is session-scoped.
const InMemoryDSN = "file::memory:?cache=shared"

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = InMemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate schemas
	err = db.AutoMigrate(
		&types.Listing{},
		&types.Bid{},
		&types.Order{},
	)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddAuctionIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
