package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper closes auctions whose end time has passed. The ledger itself never
// auto-transitions a listing; expiry only ever happens through an explicit
// CloseAuction call, and the sweeper is the caller that makes them.
type Sweeper struct {
	ledger        *Service
	sweepInterval time.Duration
}

func NewSweeper(ledger *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{
		ledger:        ledger,
		sweepInterval: interval,
	}
}

// Start begins the sweep loop. It returns when the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	logger := log.With().Str("component", "auction_sweeper").Logger()
	logger.Info().Dur("interval", s.sweepInterval).Msg("starting auction sweeper")

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down auction sweeper")
			return
		case <-ticker.C:
			if err := s.sweep(); err != nil {
				logger.Error().Err(err).Msg("failed to sweep expired auctions")
			}
		}
	}
}

func (s *Sweeper) sweep() error {
	logger := log.With().Str("component", "auction_sweeper").Logger()

	expired, err := s.ledger.Catalog().ExpiredActiveListings(s.ledger.clock.Now())
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	logger.Info().Int("expired_count", len(expired)).Msg("closing expired auctions")

	for _, listing := range expired {
		if _, err := s.ledger.CloseAuction(listing.ListingID); err != nil {
			// A concurrent close between the scan and this call is fine.
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			logger.Error().
				Err(err).
				Str("listing_id", listing.ListingID).
				Msg("failed to close expired auction")
			continue
		}
		logger.Info().
			Str("listing_id", listing.ListingID).
			Int64("final_price", listing.CurrentPrice).
			Msg("expired auction closed")
	}

	return nil
}
