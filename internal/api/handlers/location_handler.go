package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carpoolapp/backend/internal/application/services"
	"github.com/carpoolapp/backend/internal/domain/entities"
	"github.com/carpoolapp/backend/internal/infrastructure/observability"
)

const maxResolveBodyBytes = 64 << 10

// LocationHandler exposes location suggestions over HTTP.
type LocationHandler struct {
	searcher services.LocationSearcher
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(searcher services.LocationSearcher) *LocationHandler {
	return &LocationHandler{searcher: searcher}
}

// SuggestionResponse is one suggestion with its derived display fields.
type SuggestionResponse struct {
	entities.LocationSuggestion
	ShortName string `json:"shortName"`
	Icon      string `json:"icon"`
}

// SuggestResponse is the body of GET /api/locations/suggest.
type SuggestResponse struct {
	Query       string               `json:"query"`
	Suggestions []SuggestionResponse `json:"suggestions"`
	Message     string               `json:"message,omitempty"`
	MessageKind string               `json:"messageKind,omitempty"`
}

// Suggest handles GET /api/locations/suggest?q=...
// Every lookup outcome is a 200; failures are reported through message and messageKind.
func (h *LocationHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondWithError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	outcome, err := h.searcher.Search(r.Context(), query)
	if errors.Is(err, context.Canceled) {
		return
	}

	resp := SuggestResponse{
		Query:       outcome.Query,
		Suggestions: make([]SuggestionResponse, 0, len(outcome.Suggestions)),
	}
	if outcome.Source != services.SourceSkipped {
		kind, message := services.DescribeSearchResult(outcome.Suggestions, err)
		resp.Message = message
		resp.MessageKind = string(kind)
	}
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("location suggest failed")
	} else {
		for _, s := range outcome.Suggestions {
			resp.Suggestions = append(resp.Suggestions, SuggestionResponse{
				LocationSuggestion: s,
				ShortName:          entities.ShortName(s),
				Icon:               entities.LocationIcon(s.Type),
			})
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// Resolve handles POST /api/locations/resolve, turning a picked suggestion into the
// canonical selected location.
func (h *LocationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var suggestion entities.LocationSuggestion
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResolveBodyBytes))
	if err := decoder.Decode(&suggestion); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid suggestion payload")
		return
	}
	if strings.TrimSpace(suggestion.DisplayName) == "" {
		respondWithError(w, http.StatusBadRequest, "displayName is required")
		return
	}

	respondWithJSON(w, http.StatusOK, suggestion.ToSelectedLocation())
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
