package providers

import (
	"context"

	"github.com/carpoolapp/backend/internal/domain/entities"
)

// GeocodingProvider turns free-text place descriptions into candidate locations
type GeocodingProvider interface {
	// Search performs a single upstream lookup; it does not retry or throttle.
	Search(ctx context.Context, req SearchRequest) ([]entities.LocationSuggestion, error)
}

// SearchRequest describes one upstream lookup
type SearchRequest struct {
	Query          string
	CountryCodes   string
	Limit          int
	AddressDetails bool
}
