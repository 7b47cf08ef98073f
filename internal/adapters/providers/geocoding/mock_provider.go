package geocoding

import (
	"context"
	"strings"

	"github.com/carpoolapp/backend/internal/domain/entities"
	"github.com/carpoolapp/backend/internal/domain/providers"
)

// MockGeocodingProvider serves a fixed set of Indian places for local development
type MockGeocodingProvider struct {
	places []entities.LocationSuggestion
}

// NewMockGeocodingProvider creates a new mock geocoding provider
func NewMockGeocodingProvider() *MockGeocodingProvider {
	return &MockGeocodingProvider{places: mockPlaces()}
}

// Search returns places whose display name contains every word of the query
func (m *MockGeocodingProvider) Search(ctx context.Context, req providers.SearchRequest) ([]entities.LocationSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(strings.ReplaceAll(req.Query, ",", " ")))
	var out []entities.LocationSuggestion
	for _, place := range m.places {
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
		if matchesAll(strings.ToLower(place.DisplayName), terms) {
			out = append(out, place)
		}
	}
	return out, nil
}

func matchesAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func mockPlaces() []entities.LocationSuggestion {
	city := func(name, state string, lat, lon float64) entities.LocationSuggestion {
		return entities.LocationSuggestion{
			DisplayName: name + ", " + state + ", India",
			Type:        "city",
			Category:    "place",
			Coordinates: &entities.Coordinates{Latitude: lat, Longitude: lon},
			Address:     entities.Address{City: name, State: state, Country: "India", CountryCode: "in"},
		}
	}
	return []entities.LocationSuggestion{
		city("Chennai", "Tamil Nadu", 13.0827, 80.2707),
		city("Nellore", "Andhra Pradesh", 14.4426, 79.9865),
		city("Bengaluru", "Karnataka", 12.9716, 77.5946),
		city("Hyderabad", "Telangana", 17.3850, 78.4867),
		city("Mumbai", "Maharashtra", 19.0760, 72.8777),
		city("Pune", "Maharashtra", 18.5204, 73.8567),
		city("Kolkata", "West Bengal", 22.5726, 88.3639),
		city("New Delhi", "Delhi", 28.6139, 77.2090),
		{
			DisplayName: "Chennai Central, Park Town, Chennai, Tamil Nadu, India",
			Name:        "Chennai Central",
			Type:        "station",
			Category:    "railway",
			Coordinates: &entities.Coordinates{Latitude: 13.0829, Longitude: 80.2753},
			Address:     entities.Address{City: "Chennai", State: "Tamil Nadu", Country: "India", CountryCode: "in"},
		},
		{
			DisplayName: "Kempegowda International Airport, Devanahalli, Bengaluru Rural, Karnataka, India",
			Name:        "Kempegowda International Airport",
			Type:        "aerodrome",
			Category:    "aeroway",
			Coordinates: &entities.Coordinates{Latitude: 13.1986, Longitude: 77.7066},
			Address:     entities.Address{Town: "Devanahalli", StateDistrict: "Bengaluru Rural", State: "Karnataka", Country: "India", CountryCode: "in"},
		},
	}
}
