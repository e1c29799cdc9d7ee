package core

import (
	"strings"
	"time"
)

const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// Recommendation is an AI-generated financial suggestion. The service only
// validates presence of required fields and fills defaults; content comes
// entirely from the AI call.
type Recommendation struct {
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Impact          string   `json:"impact"`
	Savings         float64  `json:"savings,omitempty"`
	ActionItems     []string `json:"actionItems,omitempty"`
	EconomicContext string   `json:"economicContext,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// CachedRecommendations is one user's recommendation slot together with
// the generation timestamp the TTL check runs against.
type CachedRecommendations struct {
	Data      []Recommendation `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// RecommendationTTL is the fixed window after which cached AI output is
// considered stale. Exactly seven days old is already invalid.
const RecommendationTTL = 7 * 24 * time.Hour

// Valid reports whether the slot is still fresh at the given instant.
func (c CachedRecommendations) Valid(now time.Time) bool {
	return now.Sub(c.Timestamp) < RecommendationTTL
}

// Normalize fills defaults for missing optional fields and clamps
// out-of-range values. Returns false when required fields are absent.
func (r *Recommendation) Normalize() bool {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Description) == "" {
		return false
	}
	if r.Type == "" {
		r.Type = "general"
	}
	switch r.Impact {
	case ImpactHigh, ImpactMedium, ImpactLow:
	default:
		r.Impact = ImpactMedium
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	return true
}
