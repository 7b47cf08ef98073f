package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carpoolapp/backend/internal/domain/entities"
	apperrors "github.com/carpoolapp/backend/pkg/errors"
)

// MessageKind tells consumers how to present SuggesterState.Message
type MessageKind string

const (
	MessageNone   MessageKind = ""
	MessageInfo   MessageKind = "info"
	MessageBusy   MessageKind = "busy"
	MessageFailed MessageKind = "failed"
)

// User-facing messages
const (
	MessageNoResults     = "No locations found. Try a different search term."
	MessageSearchBusy    = "Search is busy. Please wait a moment and try again."
	MessageSearchFailure = "Unable to search locations. Please try again."
)

// DescribeSearchResult converts the result of a lookup into the message shown next to the
// input. An empty result list is a soft notice; the list itself is still authoritative.
func DescribeSearchResult(suggestions []entities.LocationSuggestion, err error) (MessageKind, string) {
	switch {
	case err == nil && len(suggestions) == 0:
		return MessageInfo, MessageNoResults
	case err == nil:
		return MessageNone, ""
	case apperrors.IsType(err, apperrors.ErrorTypeRateLimited):
		return MessageBusy, MessageSearchBusy
	default:
		return MessageFailed, MessageSearchFailure
	}
}

// SuggesterState is a snapshot of everything a location input renders
type SuggesterState struct {
	Query       string
	Suggestions []entities.LocationSuggestion
	Loading     bool
	Message     string
	MessageKind MessageKind
	Selected    *entities.SelectedLocation
}

// SuggesterOptions configures a LocationSuggester
type SuggesterOptions struct {
	Debounce       time.Duration
	MinQueryLength int
}

// DefaultSuggesterOptions returns a 500ms debounce and a 3 character minimum
func DefaultSuggesterOptions() SuggesterOptions {
	return SuggesterOptions{
		Debounce:       500 * time.Millisecond,
		MinQueryLength: 3,
	}
}

// LocationSuggester backs one location input. It debounces query edits, runs lookups through
// the shared searcher and publishes state snapshots. Only the most recent settled search may
// change the state: each one takes a new generation number, and outcomes carrying an older
// number are dropped.
type LocationSuggester struct {
	id       string
	searcher LocationSearcher
	opts     SuggesterOptions
	logger   zerolog.Logger

	ctx      context.Context
	shutdown context.CancelFunc

	mu          sync.Mutex
	state       SuggesterState
	debounceSeq uint64
	generation  uint64
	timer       *time.Timer
	inFlight    context.CancelFunc
	closed      bool
	updates     chan SuggesterState
}

// NewLocationSuggester creates a suggester bound to the shared searcher
func NewLocationSuggester(searcher LocationSearcher, opts SuggesterOptions) *LocationSuggester {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &LocationSuggester{
		id:       id,
		searcher: searcher,
		opts:     opts,
		logger:   log.With().Str("component", "location_suggester").Str("suggester_id", id).Logger(),
		ctx:      ctx,
		shutdown: cancel,
		updates:  make(chan SuggesterState, 1),
	}
}

// ID identifies the suggester in logs
func (s *LocationSuggester) ID() string {
	return s.id
}

// Updates delivers state snapshots. Slow readers only see the latest one. The channel is
// closed by Close.
func (s *LocationSuggester) Updates() <-chan SuggesterState {
	return s.updates
}

// State returns the current snapshot
func (s *LocationSuggester) State() SuggesterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// SetQuery records new input text. A selection whose address no longer matches is dropped,
// and unless the text still equals the selected address a search is scheduled after the
// debounce delay, replacing any search still waiting.
func (s *LocationSuggester) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.state.Query = text
	if s.state.Selected != nil && s.state.Selected.Address != text {
		s.state.Selected = nil
	}

	s.stopTimer()
	if s.state.Selected == nil {
		seq := s.debounceSeq
		s.timer = time.AfterFunc(s.opts.Debounce, func() { s.settle(seq) })
	}
	s.publish()
}

// Select pins a suggestion: the query becomes its display name, suggestions and messages are
// cleared, and pending or running searches are abandoned.
func (s *LocationSuggester) Select(suggestion entities.LocationSuggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.abandonSearches()
	selected := suggestion.ToSelectedLocation()
	s.state = SuggesterState{
		Query:    suggestion.DisplayName,
		Selected: &selected,
	}
	s.publish()
}

// ClearSelection resets the input to empty
func (s *LocationSuggester) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.abandonSearches()
	s.state = SuggesterState{}
	s.publish()
}

// Close cancels any outstanding request and stops all further updates
func (s *LocationSuggester) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.closed = true
	s.abandonSearches()
	s.shutdown()
	close(s.updates)
	return nil
}

// settle runs when the debounce delay for seq has elapsed
func (s *LocationSuggester) settle(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.debounceSeq || s.state.Selected != nil {
		s.mu.Unlock()
		return
	}

	s.generation++
	generation := s.generation
	s.cancelInFlight()

	query := s.state.Query
	if utf8.RuneCountInString(strings.TrimSpace(query)) < s.opts.MinQueryLength {
		s.state.Suggestions = nil
		s.state.Message = ""
		s.state.MessageKind = MessageNone
		s.state.Loading = false
		s.publish()
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.inFlight = cancel
	s.mu.Unlock()

	defer cancel()
	s.search(ctx, generation, query)
}

func (s *LocationSuggester) search(ctx context.Context, generation uint64, query string) {
	outcome, err := s.searcher.Search(ctx, query, WithRequestStarted(func() {
		s.apply(generation, func(state *SuggesterState) {
			state.Loading = true
			state.Message = ""
			state.MessageKind = MessageNone
		})
	}))

	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		s.logger.Debug().Str("query", query).Msg("search superseded")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("location search failed")
	}

	kind, message := DescribeSearchResult(outcome.Suggestions, err)
	s.apply(generation, func(state *SuggesterState) {
		if err != nil {
			state.Suggestions = nil
		} else {
			state.Suggestions = outcome.Suggestions
		}
		state.Message = message
		state.MessageKind = kind
		state.Loading = false
	})
}

// apply mutates the state only while generation is still the latest search
func (s *LocationSuggester) apply(generation uint64, fn func(state *SuggesterState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || generation != s.generation {
		return
	}
	fn(&s.state)
	s.publish()
}

// abandonSearches invalidates the pending debounce and any running search. Callers hold mu.
func (s *LocationSuggester) abandonSearches() {
	s.stopTimer()
	s.generation++
	s.cancelInFlight()
}

func (s *LocationSuggester) stopTimer() {
	s.debounceSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *LocationSuggester) cancelInFlight() {
	if s.inFlight != nil {
		s.inFlight()
		s.inFlight = nil
	}
}

// publish replaces any unread snapshot with the current one. Callers hold mu, so the send
// below never blocks.
func (s *LocationSuggester) publish() {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- s.snapshot()
}

func (s *LocationSuggester) snapshot() SuggesterState {
	snap := s.state
	snap.Suggestions = slices.Clone(s.state.Suggestions)
	if s.state.Selected != nil {
		selected := *s.state.Selected
		snap.Selected = &selected
	}
	return snap
}
