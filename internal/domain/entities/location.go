package entities

import "strings"

// Coordinates represents geographical coordinates in decimal degrees
type Coordinates struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
}

// Address is the structured breakdown a geocoder returns alongside a suggestion
type Address struct {
	Name          string `json:"name,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	Village       string `json:"village,omitempty"`
	StateDistrict string `json:"state_district,omitempty"`
	State         string `json:"state,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

// LocationSuggestion is one candidate place returned for a free-text query.
// Coordinates is nil when the geocoder did not report a position.
type LocationSuggestion struct {
	DisplayName string       `json:"displayName"`
	Name        string       `json:"name,omitempty"`
	Type        string       `json:"type,omitempty"`
	Category    string       `json:"category,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Address     Address      `json:"address"`
}

// PointGeometry is a GeoJSON point; Coordinates is [longitude, latitude].
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// SelectedLocation is the canonical shape of a suggestion the user picked
type SelectedLocation struct {
	Location PointGeometry `json:"location"`
	Address  string        `json:"address"`
	City     string        `json:"city"`
}

// ToSelectedLocation normalizes a suggestion into the shape consumers store
func (s LocationSuggestion) ToSelectedLocation() SelectedLocation {
	var point [2]float64
	if s.Coordinates != nil {
		point = [2]float64{s.Coordinates.Longitude, s.Coordinates.Latitude}
	}
	return SelectedLocation{
		Location: PointGeometry{Type: "Point", Coordinates: point},
		Address:  s.DisplayName,
		City:     ShortName(s),
	}
}

// ShortName derives a compact locality label for a suggestion.
// Preference: city, town, village, state district, state, the place name, then the
// first comma-separated segment of the display name.
func ShortName(s LocationSuggestion) string {
	for _, candidate := range []string{
		s.Address.City,
		s.Address.Town,
		s.Address.Village,
		s.Address.StateDistrict,
		s.Address.State,
		s.Address.Name,
		s.Name,
	} {
		if candidate != "" {
			return candidate
		}
	}
	first, _, _ := strings.Cut(s.DisplayName, ",")
	return first
}

// LocationIcon identifiers
const (
	IconCity     = "city"
	IconTown     = "town"
	IconVillage  = "village"
	IconRegion   = "region"
	IconRoad     = "road"
	IconRailway  = "railway"
	IconAirport  = "airport"
	IconFallback = "pin"
)

var locationIcons = map[string]string{
	"city":           IconCity,
	"town":           IconTown,
	"village":        IconVillage,
	"state":          IconRegion,
	"administrative": IconRegion,
	"road":           IconRoad,
	"railway":        IconRailway,
	"airport":        IconAirport,
}

// LocationIcon maps a suggestion type to an icon identifier; unknown types get IconFallback.
func LocationIcon(categoryType string) string {
	if icon, ok := locationIcons[categoryType]; ok {
		return icon
	}
	return IconFallback
}
