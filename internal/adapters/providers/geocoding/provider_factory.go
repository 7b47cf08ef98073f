package geocoding

import (
	"fmt"
	"net/http"

	"github.com/carpoolapp/backend/internal/domain/providers"
	"github.com/carpoolapp/backend/pkg/config"
)

// NewProvider builds the geocoding provider named in cfg
func NewProvider(cfg *config.GeocodingConfig) (providers.GeocodingProvider, error) {
	switch cfg.Provider {
	case "nominatim":
		// a zero timeout leaves requests bounded only by their context
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		return NewNominatimProviderWithOptions(cfg.BaseURL, cfg.UserAgent, client), nil
	case "mock":
		return NewMockGeocodingProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported geocoding provider %q", cfg.Provider)
	}
}
