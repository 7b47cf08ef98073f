package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortName_FallbackChain(t *testing.T) {
	tt := []struct {
		desc       string
		suggestion LocationSuggestion
		want       string
	}{
		{
			desc:       "city wins over everything",
			suggestion: LocationSuggestion{DisplayName: "X, Y", Name: "n", Address: Address{City: "Nellore", Town: "t", State: "s"}},
			want:       "Nellore",
		},
		{
			desc:       "town when no city",
			suggestion: LocationSuggestion{Address: Address{Town: "Kavali", Village: "v"}},
			want:       "Kavali",
		},
		{
			desc:       "village when no town",
			suggestion: LocationSuggestion{Address: Address{Village: "Gudur", StateDistrict: "d"}},
			want:       "Gudur",
		},
		{
			desc:       "state district before state",
			suggestion: LocationSuggestion{Address: Address{StateDistrict: "SPSR Nellore", State: "Andhra Pradesh"}},
			want:       "SPSR Nellore",
		},
		{
			desc:       "state",
			suggestion: LocationSuggestion{Address: Address{State: "Kerala"}},
			want:       "Kerala",
		},
		{
			desc:       "place name",
			suggestion: LocationSuggestion{Name: "Chennai Central", DisplayName: "Chennai Central, Chennai"},
			want:       "Chennai Central",
		},
		{
			desc:       "first display name segment",
			suggestion: LocationSuggestion{DisplayName: "MG Road, Bengaluru, Karnataka"},
			want:       "MG Road",
		},
		{
			desc:       "display name without commas",
			suggestion: LocationSuggestion{DisplayName: "Somewhere"},
			want:       "Somewhere",
		},
		{
			desc:       "empty suggestion",
			suggestion: LocationSuggestion{},
			want:       "",
		},
	}

	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, ShortName(tc.suggestion))
		})
	}
}

func TestLocationIcon(t *testing.T) {
	assert.Equal(t, IconCity, LocationIcon("city"))
	assert.Equal(t, IconTown, LocationIcon("town"))
	assert.Equal(t, IconVillage, LocationIcon("village"))
	assert.Equal(t, IconRegion, LocationIcon("state"))
	assert.Equal(t, IconRegion, LocationIcon("administrative"))
	assert.Equal(t, IconRoad, LocationIcon("road"))
	assert.Equal(t, IconRailway, LocationIcon("railway"))
	assert.Equal(t, IconAirport, LocationIcon("airport"))
	assert.Equal(t, IconFallback, LocationIcon("restaurant"))
	assert.Equal(t, IconFallback, LocationIcon(""))
}

func TestToSelectedLocation(t *testing.T) {
	s := LocationSuggestion{
		DisplayName: "Nellore, Andhra Pradesh, India",
		Type:        "city",
		Coordinates: &Coordinates{Longitude: 79.98, Latitude: 14.44},
		Address:     Address{City: "Nellore"},
	}

	selected := s.ToSelectedLocation()

	assert.Equal(t, "Point", selected.Location.Type)
	assert.Equal(t, [2]float64{79.98, 14.44}, selected.Location.Coordinates)
	assert.Equal(t, "Nellore, Andhra Pradesh, India", selected.Address)
	assert.Equal(t, "Nellore", selected.City)
}

func TestToSelectedLocation_WithoutCoordinates(t *testing.T) {
	selected := LocationSuggestion{DisplayName: "Ongole, Andhra Pradesh"}.ToSelectedLocation()

	assert.Equal(t, [2]float64{0, 0}, selected.Location.Coordinates)
	assert.Equal(t, "Ongole", selected.City)
}
