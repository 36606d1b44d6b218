package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bidhaus/auction-api/internal/auth"
	"github.com/bidhaus/auction-api/internal/authenticity"
	"github.com/bidhaus/auction-api/internal/clock"
	"github.com/bidhaus/auction-api/internal/database"
	"github.com/bidhaus/auction-api/internal/ledger"
	"github.com/bidhaus/auction-api/internal/types"
	"github.com/bidhaus/auction-api/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minListings   = 5
	maxListings   = 25
	bidsPerLot    = 6
	numWorkers    = 4
	serverAddress = "http://localhost:8080"
	jwtSecret     = "bidhaus-secret-key"
)

var (
	categories = []string{types.CategoryHandbag, types.CategoryShoe}
	brands     = []string{"Prada", "Burberry", "Valentino", "Gucci", "Hermes"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the auction API. It holds
// one token per role so it can act as seller, moderator and buyer.
type simulationClient struct {
	baseURL        string
	sellerToken    string
	moderatorToken string
	buyerToken     string
	client         *http.Client
	stats          map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates each role with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":    {name: "Authentication"},
			"submit":  {name: "Submit Listing"},
			"approve": {name: "Approve Listing"},
			"bid":     {name: "Place Bid"},
			"get":     {name: "Get Listing"},
			"order":   {name: "Record Order"},
			"deposit": {name: "Mark Deposit"},
		},
	}

	var err error
	if sc.sellerToken, err = sc.authenticate(auth.DemoSellerKey, auth.DemoSellerSecret); err != nil {
		return nil, fmt.Errorf("failed to authenticate seller: %w", err)
	}
	if sc.moderatorToken, err = sc.authenticate(auth.DemoAdminKey, auth.DemoAdminSecret); err != nil {
		return nil, fmt.Errorf("failed to authenticate moderator: %w", err)
	}
	if sc.buyerToken, err = sc.authenticate(auth.DemoBuyerKey, auth.DemoBuyerSecret); err != nil {
		return nil, fmt.Errorf("failed to authenticate buyer: %w", err)
	}

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// doJSON issues an authenticated request and decodes the data envelope into out.
func (sc *simulationClient) doJSON(method, url, token string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("url", url).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s failed with status %d: %s", url, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	envelope := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	return json.Unmarshal(envelope.Data, out)
}

// submitListing submits a seller draft and returns the created listing
func (sc *simulationClient) submitListing(draft *types.ListingDraft) (*types.Listing, error) {
	start := time.Now()
	defer func() {
		sc.stats["submit"].addDuration(time.Since(start))
	}()

	var listing types.Listing
	err := sc.doJSON("POST", fmt.Sprintf("%s/api/v1/listings", sc.baseURL), sc.sellerToken, draft, &listing)
	if err != nil {
		sc.stats["submit"].failures++
		return nil, err
	}
	if listing.ListingID == "" {
		sc.stats["submit"].failures++
		return nil, fmt.Errorf("no listing ID in response")
	}
	return &listing, nil
}

// approveListing moves a pending listing to active via the moderation surface
func (sc *simulationClient) approveListing(listingID string) error {
	start := time.Now()
	defer func() {
		sc.stats["approve"].addDuration(time.Since(start))
	}()

	err := sc.doJSON("POST",
		fmt.Sprintf("%s/api/v1/internal/listings/%s/approve", sc.baseURL, listingID),
		sc.moderatorToken, map[string]interface{}{}, nil)
	if err != nil {
		sc.stats["approve"].failures++
	}
	return err
}

// placeBid places a bid as the demo buyer. A rejected bid (too low, ended) is
// reported via the error so the caller can count it.
func (sc *simulationClient) placeBid(listingID string, amount int64) error {
	start := time.Now()
	defer func() {
		sc.stats["bid"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"buyer_name": "Demo Buyer",
		"amount":     amount,
	}
	err := sc.doJSON("POST",
		fmt.Sprintf("%s/api/v1/listings/%s/bids", sc.baseURL, listingID),
		sc.buyerToken, payload, nil)
	if err != nil {
		sc.stats["bid"].failures++
	}
	return err
}

// getListing retrieves the countdown view of a listing
func (sc *simulationClient) getListing(listingID string) (*types.ListingResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["get"].addDuration(time.Since(start))
	}()

	var listing types.ListingResponse
	err := sc.doJSON("GET",
		fmt.Sprintf("%s/api/v1/listings/%s", sc.baseURL, listingID),
		"", nil, &listing)
	if err != nil {
		sc.stats["get"].failures++
		return nil, err
	}
	return &listing, nil
}

// recordOrder settles a concluded auction for the winning buyer
func (sc *simulationClient) recordOrder(listingID string, finalPrice int64) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["order"].addDuration(time.Since(start))
	}()

	payload := map[string]interface{}{
		"final_price":      finalPrice,
		"type":             types.OrderTypeBid,
		"shipping_address": "1 Demo Street",
	}
	var order types.Order
	err := sc.doJSON("POST",
		fmt.Sprintf("%s/api/v1/listings/%s/orders", sc.baseURL, listingID),
		sc.buyerToken, payload, &order)
	if err != nil {
		sc.stats["order"].failures++
		return nil, err
	}
	if order.OrderID == "" {
		sc.stats["order"].failures++
		return nil, fmt.Errorf("no order ID in response")
	}
	return &order, nil
}

// markDeposit confirms the deposit on an order, twice, to exercise idempotency
func (sc *simulationClient) markDeposit(orderID string) error {
	start := time.Now()
	defer func() {
		sc.stats["deposit"].addDuration(time.Since(start))
	}()

	url := fmt.Sprintf("%s/api/v1/orders/%s/deposit", sc.baseURL, orderID)
	if err := sc.doJSON("POST", url, sc.buyerToken, nil, nil); err != nil {
		sc.stats["deposit"].failures++
		return err
	}
	// Duplicate confirmation must be a no-op
	if err := sc.doJSON("POST", url, sc.buyerToken, nil, nil); err != nil {
		sc.stats["deposit"].failures++
		return err
	}
	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// randomDraft builds a plausible seller submission
func randomDraft(workerID int) *types.ListingDraft {
	category := categories[rand.Intn(len(categories))]
	brand := brands[rand.Intn(len(brands))]

	draft := &types.ListingDraft{
		Category:        category,
		Title:           fmt.Sprintf("%s - Demo Lot %d-%d", brand, workerID, rand.Intn(10000)),
		Description:     "Simulation lot generated for load testing.",
		Images:          []string{"/demo/lot.png"},
		EvidenceImages:  []string{"/demo/lot_evidence.png"},
		StartPrice:      int64(rand.Intn(900) + 100),
		BidStep:         int64(rand.Intn(40) + 10),
		DurationMinutes: int64(rand.Intn(120) + 30),
	}
	if rand.Intn(2) == 0 {
		draft.BuyNowPrice = draft.StartPrice * 5
	}

	switch category {
	case types.CategoryHandbag:
		draft.Handbag = &types.HandbagDetails{Brand: brand, Colour: "Black", Material: "Leather"}
	case types.CategoryShoe:
		draft.Shoe = &types.ShoeDetails{Brand: brand, Size: "42", Colour: "Brown"}
	}
	return draft
}

// submitListingsHTTP generates and submits random drafts to the API
// Runs as a worker goroutine, sending created listing IDs to listingsChan
func submitListingsHTTP(workerID, numListings int, simClient *simulationClient, listingsChan chan<- string) {
	for i := 0; i < numListings; i++ {
		draft := randomDraft(workerID)

		listing, err := simClient.submitListing(draft)
		if err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Str("title", draft.Title).
				Msg("Failed to submit listing")
			continue
		}

		listingsChan <- listing.ListingID
		log.Info().
			Int("worker_id", workerID).
			Str("listing_id", listing.ListingID).
			Str("category", listing.Category).
			Int64("start_price", listing.StartPrice).
			Msg("Listing submitted")

		// Random sleep between submissions
		time.Sleep(time.Duration(rand.Intn(300)) * time.Millisecond)
	}
}

// main runs the auction simulation
// It starts a local API server and drives the full listing lifecycle:
// submit -> approve -> bid (including deliberate low bids) -> settle -> deposit
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetListings := rand.Intn(maxListings-minListings) + minListings
	log.Info().Int("target_listings", targetListings).Msg("Starting simulation")

	// Submit listings concurrently
	listingsChan := make(chan string, targetListings)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			submitListingsHTTP(workerID, targetListings/numWorkers, simClient, listingsChan)
		}(i)
	}
	wg.Wait()
	close(listingsChan)

	var listingIDs []string
	for listingID := range listingsChan {
		listingIDs = append(listingIDs, listingID)
	}
	log.Info().Int("listings_submitted", len(listingIDs)).Msg("All listings submitted")

	stats := struct {
		TotalListings  int
		Approved       int
		AcceptedBids   int
		RejectedBids   int
		Orders         int
		Deposits       int
		FailedApproval int
		FailedOrders   int
		TotalValue     int64
		StartTime      time.Time
		Categories     map[string]int
	}{
		StartTime:  time.Now(),
		Categories: make(map[string]int),
	}
	stats.TotalListings = len(listingIDs)

	// Approve every listing, then run a bidding round against each
	for _, listingID := range listingIDs {
		if err := simClient.approveListing(listingID); err != nil {
			log.Error().Err(err).Str("listing_id", listingID).Msg("Failed to approve listing")
			stats.FailedApproval++
			continue
		}
		stats.Approved++

		listing, err := simClient.getListing(listingID)
		if err != nil {
			log.Error().Err(err).Str("listing_id", listingID).Msg("Failed to fetch listing")
			continue
		}
		stats.Categories[listing.Category]++

		// Bid in rising steps; every third bid is deliberately below the
		// minimum to exercise the rejection path
		amount := listing.CurrentPrice
		for i := 0; i < bidsPerLot; i++ {
			if i%3 == 2 {
				if err := simClient.placeBid(listingID, amount+1); err != nil {
					stats.RejectedBids++
				}
				continue
			}
			amount += listing.BidStep + int64(rand.Intn(50))
			if err := simClient.placeBid(listingID, amount); err != nil {
				log.Error().Err(err).Str("listing_id", listingID).Msg("Failed to place bid")
				stats.RejectedBids++
				continue
			}
			stats.AcceptedBids++
		}

		// Settle at the final price and confirm the deposit twice
		final, err := simClient.getListing(listingID)
		if err != nil {
			continue
		}
		order, err := simClient.recordOrder(listingID, final.CurrentPrice)
		if err != nil {
			log.Error().Err(err).Str("listing_id", listingID).Msg("Failed to record order")
			stats.FailedOrders++
			continue
		}
		stats.Orders++
		stats.TotalValue += order.FinalPrice

		if err := simClient.markDeposit(order.OrderID); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to mark deposit")
			continue
		}
		stats.Deposits++

		log.Info().
			Str("listing_id", listingID).
			Str("order_id", order.OrderID).
			Int64("final_price", order.FinalPrice).
			Msg("Auction settled")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("AUCTION SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Listing Statistics
------------------
Total Listings:  %d
Approved:        %d
Accepted Bids:   %d
Rejected Bids:   %d
Orders:          %d
Deposits:        %d
Failed Approval: %d
Failed Orders:   %d
Total Value:     $%d
Duration:        %v

Category Distribution
---------------------
`, stats.TotalListings, stats.Approved, stats.AcceptedBids, stats.RejectedBids,
		stats.Orders, stats.Deposits, stats.FailedApproval, stats.FailedOrders,
		stats.TotalValue, duration.Round(time.Millisecond))

	maxCategoryCount := 0
	for _, count := range stats.Categories {
		if count > maxCategoryCount {
			maxCategoryCount = count
		}
	}
	for category, count := range stats.Categories {
		barLength := int(float64(count) / float64(maxCategoryCount) * 20)
		bar := strings.Repeat("#", barLength)
		fmt.Printf("%-8s: %s (%d)\n", category, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	settleRate := float64(stats.Orders) / float64(stats.TotalListings) * 100
	log.Info().
		Float64("settle_rate", settleRate).
		Int("total_listings", stats.TotalListings).
		Int("orders", stats.Orders).
		Int64("total_value", stats.TotalValue).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// startServer initializes and starts the auction API server
// Sets up all required services, handlers and routes
func startServer() error {
	db, err := database.NewDatabase("")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	authService := auth.NewService(jwtSecret)
	authService.RegisterAPICredentials(auth.DemoBuyerKey, auth.DemoBuyerSecret, auth.PermissionBid)
	authService.RegisterAPICredentials(auth.DemoSellerKey, auth.DemoSellerSecret, auth.PermissionSell, auth.PermissionBid)
	authService.RegisterAPICredentials(auth.DemoAdminKey, auth.DemoAdminSecret, auth.PermissionModerate)

	ledgerService := ledger.NewService(db, clock.NewSystem(), authenticity.NewMockChecker())

	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	ledgerHandlers := ledger.NewGinHandlers(ledgerService)

	setupRoutes(router, authHandlers, ledgerHandlers)

	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality; the simulation server skips rate limiting
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
) {
	secret := []byte(jwtSecret)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		listings := v1.Group("/listings")
		{
			listings.GET("", ledgerHandlers.ListListingsHandler())
			listings.GET("/:listing_id", ledgerHandlers.GetListingHandler())
			listings.GET("/:listing_id/bids", ledgerHandlers.BidHistoryHandler())
			listings.GET("/:listing_id/quote", ledgerHandlers.QuoteHandler())
		}

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

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(secret, auth.PermissionModerate))
		{
			internal.POST("/listings/:listing_id/approve", ledgerHandlers.ApproveListingHandler())
			internal.POST("/listings/:listing_id/reject", ledgerHandlers.RejectListingHandler())
			internal.POST("/listings/:listing_id/close", ledgerHandlers.CloseAuctionHandler())
		}
	}
}
