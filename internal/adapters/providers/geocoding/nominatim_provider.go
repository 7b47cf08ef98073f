package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carpoolapp/backend/internal/domain/entities"
	"github.com/carpoolapp/backend/internal/domain/providers"
	apperrors "github.com/carpoolapp/backend/pkg/errors"
)

const (
	nominatimSearchURL = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent   = "CarpoolApp/1.0 (location-autocomplete)"
	maxResponseBytes   = 2 << 20
)

// NominatimProvider implements GeocodingProvider against the OpenStreetMap Nominatim search API.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimProvider creates a provider for the public Nominatim endpoint.
func NewNominatimProvider(userAgent string) *NominatimProvider {
	return NewNominatimProviderWithOptions(nominatimSearchURL, userAgent, nil)
}

// NewNominatimProviderWithOptions allows overriding base URL and HTTP client (used for tests).
// A nil client gets no timeout: hung requests are ended by cancelling the context.
func NewNominatimProviderWithOptions(baseURL, userAgent string, httpClient *http.Client) *NominatimProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = nominatimSearchURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &NominatimProvider{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Search runs one lookup. HTTP 429 maps to a RATE_LIMITED error, other non-2xx statuses and
// undecodable bodies to EXTERNAL, and transport failures to UNAVAILABLE. A cancelled context
// is returned as the context error itself.
func (p *NominatimProvider) Search(ctx context.Context, req providers.SearchRequest) ([]entities.LocationSuggestion, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if req.CountryCodes != "" {
		params.Set("countrycodes", req.CountryCodes)
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.AddressDetails {
		params.Set("addressdetails", "1")
	}

	reqURL := fmt.Sprintf("%s?%s", p.baseURL, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build geocoding request", err)
	}
	httpReq.Header.Set("User-Agent", p.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewUnavailableError("geocoding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewRateLimitedError("geocoding service is rate limiting requests")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, apperrors.NewExternalError(
			fmt.Sprintf("geocoding request returned status %d", resp.StatusCode),
			resp.StatusCode,
			fmt.Errorf("%s", strings.TrimSpace(string(body))),
		)
	}

	var payload []nominatimPlace
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewExternalError("failed to decode geocoding response", resp.StatusCode, err)
	}

	return toSuggestions(payload), nil
}

// toSuggestions converts the wire format, dropping repeated display names and entries with
// malformed coordinates.
func toSuggestions(places []nominatimPlace) []entities.LocationSuggestion {
	out := make([]entities.LocationSuggestion, 0, len(places))
	seen := make(map[string]struct{}, len(places))
	for _, place := range places {
		displayName := strings.TrimSpace(place.DisplayName)
		if _, dup := seen[displayName]; dup {
			continue
		}

		coords, ok := parseCoordinates(place.Lat, place.Lon)
		if !ok {
			continue
		}
		seen[displayName] = struct{}{}

		out = append(out, entities.LocationSuggestion{
			DisplayName: displayName,
			Name:        place.Name,
			Type:        place.Type,
			Category:    place.Class,
			Coordinates: coords,
			Address: entities.Address{
				Name:          place.Address.Name,
				City:          place.Address.City,
				Town:          place.Address.Town,
				Village:       place.Address.Village,
				StateDistrict: place.Address.StateDistrict,
				State:         place.Address.State,
				Postcode:      place.Address.Postcode,
				Country:       place.Address.Country,
				CountryCode:   place.Address.CountryCode,
			},
		})
	}
	return out
}

// parseCoordinates returns nil when both values are absent and false when either is malformed.
func parseCoordinates(lat, lon string) (*entities.Coordinates, bool) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		return nil, true
	}
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, false
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, false
	}
	return &entities.Coordinates{Latitude: latitude, Longitude: longitude}, true
}

type nominatimPlace struct {
	DisplayName string           `json:"display_name"`
	Name        string           `json:"name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Class       string           `json:"class"`
	Type        string           `json:"type"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	Name          string `json:"name"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	StateDistrict string `json:"state_district"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
}
