package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/bidhaus/auction-api/internal/auth"
	"github.com/bidhaus/auction-api/internal/authenticity"
	"github.com/bidhaus/auction-api/internal/clock"
	"github.com/bidhaus/auction-api/internal/config"
	"github.com/bidhaus/auction-api/internal/database"
	"github.com/bidhaus/auction-api/internal/ledger"
	"github.com/bidhaus/auction-api/internal/snapshot"
	"github.com/bidhaus/auction-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the auction API server with graceful shutdown
// support. It wires the session-scoped catalog, the ledger, the auction
// sweeper and all API routes.
func main() {
	cfg := config.Load()

	// Initialize database (in-memory unless a DSN is configured)
	db, err := database.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register demo credentials: one buyer, one seller, one moderator
	authService.RegisterAPICredentials(auth.DemoBuyerKey, auth.DemoBuyerSecret, auth.PermissionBid)
	authService.RegisterAPICredentials(auth.DemoSellerKey, auth.DemoSellerSecret, auth.PermissionSell, auth.PermissionBid)
	authService.RegisterAPICredentials(auth.DemoAdminKey, auth.DemoAdminSecret, auth.PermissionModerate)

	ledgerService := ledger.NewService(db, clock.NewSystem(), authenticity.NewMockChecker())
	ledgerHandlers := ledger.NewGinHandlers(ledgerService)

	// Seed the session from the static snapshot feed; a missing feed is fine
	snapshot.Seed(ledgerService.Catalog(), snapshot.Load(cfg.SeedDir))

	// Create and start the auction sweeper
	sweeper := ledger.NewSweeper(ledgerService, cfg.SweepInterval)
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	go sweeper.Start(sweeperCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg, authHandlers, ledgerHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Browse routes: Public catalog reads
// - Buyer/seller routes: Protected by JWT authentication
// - Internal routes: Moderation surface, requires the moderate permission
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
) {
	secret := []byte(cfg.JWTSecret)

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public browse routes
		listings := v1.Group("/listings")
		{
			listings.GET("", ledgerHandlers.ListListingsHandler())
			listings.GET("/:listing_id", ledgerHandlers.GetListingHandler())
			listings.GET("/:listing_id/bids", ledgerHandlers.BidHistoryHandler())
			listings.GET("/:listing_id/quote", ledgerHandlers.QuoteHandler())
		}

		// Buyer and seller routes
		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(secret))
		{
			protected.POST("/listings", ledgerHandlers.SubmitListingHandler())
			protected.POST("/listings/:listing_id/bids", ledgerHandlers.PlaceBidHandler())
			protected.POST("/listings/:listing_id/buy-now", ledgerHandlers.BuyNowHandler())
			protected.POST("/listings/:listing_id/orders", ledgerHandlers.RecordOrderHandler())
			protected.GET("/orders/:order_id", ledgerHandlers.GetOrderHandler())
			protected.POST("/orders/:order_id/deposit", ledgerHandlers.MarkDepositHandler())
			protected.GET("/my/listings", ledgerHandlers.MyListingsHandler())
			protected.GET("/my/orders", ledgerHandlers.MyOrdersHandler())
		}

		// Internal moderation routes
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(secret, auth.PermissionModerate))
		{
			internal.POST("/listings/:listing_id/approve", ledgerHandlers.ApproveListingHandler())
			internal.POST("/listings/:listing_id/reject", ledgerHandlers.RejectListingHandler())
			internal.POST("/listings/:listing_id/close", ledgerHandlers.CloseAuctionHandler())
		}
	}
}
