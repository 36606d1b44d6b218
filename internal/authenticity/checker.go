package authenticity

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/bidhaus/auction-api/internal/types"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of an authenticity check on a submitted listing.
type Result struct {
	Authentic        bool    `json:"authentic"`
	Confidence       float64 `json:"confidence"`
	CertificationURL string  `json:"certification_url,omitempty"`
}

// Checker verifies a listing draft against its evidence images. The check
// runs synchronously during submission; a non-authentic verdict is recorded on
// the listing, it never rejects the submission.
type Checker interface {
	Check(draft types.ListingDraft) Result
}

// profile models a category-specific verification pipeline.
type profile struct {
	Category      string
	MinLatency    int // in milliseconds
	MaxLatency    int
	PassRate      float64 // 0-1, probability of an authentic verdict
	BaseConfidence float64
}

var mockProfiles = map[string]*profile{
	types.CategoryHandbag: {
		Category:       types.CategoryHandbag,
		MinLatency:     5,
		MaxLatency:     40,
		PassRate:       0.97,
		BaseConfidence: 0.90,
	},
	types.CategoryShoe: {
		Category:       types.CategoryShoe,
		MinLatency:     5,
		MaxLatency:     60,
		PassRate:       0.94,
		BaseConfidence: 0.85,
	},
}

// mockChecker simulates the verification provider. Latency and pass rates are
// drawn from per-category profiles.
type mockChecker struct{}

// NewMockChecker returns the simulated verification provider used when no
// real provider is configured.
func NewMockChecker() Checker {
	return mockChecker{}
}

func (mockChecker) Check(draft types.ListingDraft) Result {
	logger := log.With().
		Str("component", "authenticity").
		Str("category", draft.Category).
		Int("evidence_images", len(draft.EvidenceImages)).
		Logger()

	p, ok := mockProfiles[draft.Category]
	if !ok {
		logger.Warn().Msg("no verification profile for category")
		return Result{Authentic: false, Confidence: 0}
	}

	// Simulate provider latency
	latency := rand.Intn(p.MaxLatency-p.MinLatency+1) + p.MinLatency
	time.Sleep(time.Duration(latency) * time.Millisecond)

	// Listings without evidence images cannot be verified
	if len(draft.EvidenceImages) == 0 {
		logger.Info().Msg("no evidence images, verdict not authentic")
		return Result{Authentic: false, Confidence: 0}
	}

	if rand.Float64() > p.PassRate {
		logger.Info().Float64("pass_rate", p.PassRate).Msg("verification verdict: not authentic")
		return Result{Authentic: false, Confidence: p.BaseConfidence * rand.Float64()}
	}

	confidence := p.BaseConfidence + rand.Float64()*(1-p.BaseConfidence)
	result := Result{
		Authentic:        true,
		Confidence:       confidence,
		CertificationURL: fmt.Sprintf("/certificates/%s/%d.pdf", draft.Category, time.Now().UnixNano()),
	}

	logger.Debug().
		Int("latency_ms", latency).
		Float64("confidence", confidence).
		Msg("verification verdict: authentic")

	return result
}
