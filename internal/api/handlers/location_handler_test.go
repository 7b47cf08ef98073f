package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpoolapp/backend/internal/api/handlers"
	"github.com/carpoolapp/backend/internal/application/services"
	"github.com/carpoolapp/backend/internal/domain/entities"
	apperrors "github.com/carpoolapp/backend/pkg/errors"
)

type stubSearcher struct {
	outcome services.SearchOutcome
	err     error
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, query string, opts ...services.SearchOption) (services.SearchOutcome, error) {
	s.queries = append(s.queries, query)
	return s.outcome, s.err
}

func TestLocationHandler_Suggest_Success(t *testing.T) {
	searcher := &stubSearcher{outcome: services.SearchOutcome{
		Query:  "Nellore",
		Source: services.SourceUpstream,
		Suggestions: []entities.LocationSuggestion{{
			DisplayName: "Nellore, Andhra Pradesh, India",
			Type:        "city",
			Coordinates: &entities.Coordinates{Latitude: 14.44, Longitude: 79.98},
			Address:     entities.Address{City: "Nellore"},
		}},
	}}
	handler := handlers.NewLocationHandler(searcher)

	req := httptest.NewRequest(http.MethodGet, "/api/locations/suggest?q=Nellore", nil)
	w := httptest.NewRecorder()
	handler.Suggest(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Nellore"}, searcher.queries)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Nellore", resp["query"])
	assert.NotContains(t, resp, "message")

	suggestions := resp["suggestions"].([]interface{})
	require.Len(t, suggestions, 1)
	first := suggestions[0].(map[string]interface{})
	assert.Equal(t, "Nellore, Andhra Pradesh, India", first["displayName"])
	assert.Equal(t, "Nellore", first["shortName"])
	assert.Equal(t, entities.IconCity, first["icon"])
}

func TestLocationHandler_Suggest_MissingQuery(t *testing.T) {
	handler := handlers.NewLocationHandler(&stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/locations/suggest?q=%20", nil)
	w := httptest.NewRecorder()
	handler.Suggest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocationHandler_Suggest_Outcomes(t *testing.T) {
	tt := []struct {
		desc        string
		searcher    *stubSearcher
		wantKind    string
		wantMessage string
	}{
		{
			desc:        "rate limited upstream",
			searcher:    &stubSearcher{err: apperrors.NewRateLimitedError("slow down")},
			wantKind:    string(services.MessageBusy),
			wantMessage: services.MessageSearchBusy,
		},
		{
			desc:        "upstream failure",
			searcher:    &stubSearcher{err: apperrors.NewExternalError("boom", 502, nil)},
			wantKind:    string(services.MessageFailed),
			wantMessage: services.MessageSearchFailure,
		},
		{
			desc:        "no results",
			searcher:    &stubSearcher{outcome: services.SearchOutcome{Query: "Xyzzy", Source: services.SourceUpstream}},
			wantKind:    string(services.MessageInfo),
			wantMessage: services.MessageNoResults,
		},
		{
			desc:     "query too short",
			searcher: &stubSearcher{outcome: services.SearchOutcome{Query: "ab", Source: services.SourceSkipped}},
		},
	}

	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			handler := handlers.NewLocationHandler(tc.searcher)
			req := httptest.NewRequest(http.MethodGet, "/api/locations/suggest?q=anything", nil)
			w := httptest.NewRecorder()
			handler.Suggest(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var resp handlers.SuggestResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tc.wantKind, resp.MessageKind)
			assert.Equal(t, tc.wantMessage, resp.Message)
			assert.NotNil(t, resp.Suggestions)
			assert.Empty(t, resp.Suggestions)
		})
	}
}

func TestLocationHandler_Resolve(t *testing.T) {
	handler := handlers.NewLocationHandler(&stubSearcher{})

	body := `{"displayName":"Nellore, Andhra Pradesh, India","type":"city","coordinates":{"lat":14.44,"lon":79.98},"address":{"city":"Nellore"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/locations/resolve", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Resolve(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var selected entities.SelectedLocation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&selected))
	assert.Equal(t, "Point", selected.Location.Type)
	assert.Equal(t, [2]float64{79.98, 14.44}, selected.Location.Coordinates)
	assert.Equal(t, "Nellore, Andhra Pradesh, India", selected.Address)
	assert.Equal(t, "Nellore", selected.City)
}

func TestLocationHandler_Resolve_Invalid(t *testing.T) {
	handler := handlers.NewLocationHandler(&stubSearcher{})

	for _, body := range []string{`not json`, `{"type":"city"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/locations/resolve", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.Resolve(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
