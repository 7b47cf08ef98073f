package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpoolapp/backend/internal/application/services"
	"github.com/carpoolapp/backend/internal/domain/entities"
	"github.com/carpoolapp/backend/internal/domain/providers"
	apperrors "github.com/carpoolapp/backend/pkg/errors"
)

const (
	testDebounce = 40 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

func newTestSuggester(t *testing.T, svc services.LocationSearcher) *services.LocationSuggester {
	t.Helper()
	s := services.NewLocationSuggester(svc, services.SuggesterOptions{Debounce: testDebounce, MinQueryLength: 3})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func nelloreSuggestion() entities.LocationSuggestion {
	return entities.LocationSuggestion{
		DisplayName: "Nellore, Andhra Pradesh, India",
		Type:        "city",
		Coordinates: &entities.Coordinates{Latitude: 14.44, Longitude: 79.98},
		Address:     entities.Address{City: "Nellore"},
	}
}

func TestLocationSuggester_ShortQueryMakesNoCall(t *testing.T) {
	geocoder := &stubGeocoder{}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Ch")
	time.Sleep(3 * testDebounce)

	state := s.State()
	assert.Empty(t, state.Suggestions)
	assert.Empty(t, state.Message)
	assert.False(t, state.Loading)
	assert.Equal(t, 0, geocoder.callCount())
}

func TestLocationSuggester_DebounceKeepsOnlyLatestQuery(t *testing.T) {
	geocoder := &stubGeocoder{}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Che")
	time.Sleep(testDebounce / 4)
	s.SetQuery("Chen")
	time.Sleep(testDebounce / 4)
	s.SetQuery("Chennai")

	require.Eventually(t, func() bool { return len(s.State().Suggestions) == 1 }, waitFor, tick)
	time.Sleep(2 * testDebounce)

	assert.Equal(t, []string{"Chennai, India"}, geocoder.queries())
	assert.Equal(t, "Chennai", s.State().Query)
}

func TestLocationSuggester_PublishesResultWithDerivedFields(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			return []entities.LocationSuggestion{nelloreSuggestion()}, nil
		},
	}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Nellore")
	require.Eventually(t, func() bool { return len(s.State().Suggestions) == 1 }, waitFor, tick)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Message)
	assert.Equal(t, "Nellore", entities.ShortName(state.Suggestions[0]))
	assert.Equal(t, entities.IconCity, entities.LocationIcon(state.Suggestions[0].Type))
}

func TestLocationSuggester_SelectionPinsQuery(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			return []entities.LocationSuggestion{nelloreSuggestion()}, nil
		},
	}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Nellore")
	require.Eventually(t, func() bool { return len(s.State().Suggestions) == 1 }, waitFor, tick)

	s.Select(s.State().Suggestions[0])
	state := s.State()
	assert.Equal(t, "Nellore, Andhra Pradesh, India", state.Query)
	require.NotNil(t, state.Selected)
	assert.Equal(t, [2]float64{79.98, 14.44}, state.Selected.Location.Coordinates)
	assert.Equal(t, "Nellore", state.Selected.City)
	assert.Empty(t, state.Suggestions)
	assert.Empty(t, state.Message)

	s.SetQuery("Nellore, Andhra Pradesh, India")
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, geocoder.callCount())
	assert.NotNil(t, s.State().Selected)

	s.SetQuery("Nellore, Andhra Pradesh")
	assert.Nil(t, s.State().Selected)
	require.Eventually(t, func() bool { return geocoder.callCount() == 2 }, waitFor, tick)
}

func TestLocationSuggester_ClearSelection(t *testing.T) {
	geocoder := &stubGeocoder{}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.Select(nelloreSuggestion())
	s.ClearSelection()

	assert.Equal(t, services.SuggesterState{}, s.State())
}

func TestLocationSuggester_RateLimitedShowsBusyMessage(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			return nil, apperrors.NewRateLimitedError("slow down")
		},
	}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Chennai")
	require.Eventually(t, func() bool { return s.State().MessageKind == services.MessageBusy }, waitFor, tick)

	state := s.State()
	assert.Empty(t, state.Suggestions)
	assert.False(t, state.Loading)
	assert.Contains(t, state.Message, "wait")
	assert.Equal(t, 3, geocoder.callCount())
}

func TestLocationSuggester_FailureShowsGenericMessage(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			return nil, apperrors.NewExternalError("geocoding request returned status 500", 500, nil)
		},
	}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Chennai")
	require.Eventually(t, func() bool { return s.State().MessageKind == services.MessageFailed }, waitFor, tick)

	assert.Equal(t, services.MessageSearchFailure, s.State().Message)
	assert.Empty(t, s.State().Suggestions)
}

func TestLocationSuggester_EmptyResultIsSoftNotice(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			return nil, nil
		},
	}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Xyzzy")
	require.Eventually(t, func() bool { return s.State().MessageKind == services.MessageInfo }, waitFor, tick)

	state := s.State()
	assert.Equal(t, services.MessageNoResults, state.Message)
	assert.Empty(t, state.Suggestions)
	assert.False(t, state.Loading)
}

func TestLocationSuggester_SupersededResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			if req.Query == "Chennai, India" {
				<-release
			}
			return []entities.LocationSuggestion{{DisplayName: req.Query}}, nil
		},
	}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("Chennai")
	require.Eventually(t, func() bool { return s.State().Loading }, waitFor, tick)

	s.SetQuery("Nellore")
	require.Eventually(t, func() bool {
		state := s.State()
		return len(state.Suggestions) == 1 && state.Suggestions[0].DisplayName == "Nellore, India"
	}, waitFor, tick)

	close(release)
	time.Sleep(3 * testDebounce)

	state := s.State()
	require.Len(t, state.Suggestions, 1)
	assert.Equal(t, "Nellore, India", state.Suggestions[0].DisplayName)
	assert.False(t, state.Loading)
}

func TestLocationSuggester_CloseDuringRequest(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(ctx context.Context, req providers.SearchRequest, call int) ([]entities.LocationSuggestion, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := services.NewLocationSuggester(newTestSearchService(t, geocoder, nil), services.SuggesterOptions{Debounce: testDebounce, MinQueryLength: 3})

	s.SetQuery("Chennai")
	require.Eventually(t, func() bool { return s.State().Loading }, waitFor, tick)
	before := s.State()

	assert.NotPanics(t, func() { require.NoError(t, s.Close()) })
	assert.NotPanics(t, func() { require.NoError(t, s.Close()) })
	time.Sleep(3 * testDebounce)

	assert.Equal(t, before, s.State())

	s.SetQuery("Nellore")
	assert.Equal(t, before, s.State())

	for range s.Updates() {
	}
}

func TestLocationSuggester_UpdatesCarryLatestSnapshot(t *testing.T) {
	geocoder := &stubGeocoder{}
	s := newTestSuggester(t, newTestSearchService(t, geocoder, nil))

	s.SetQuery("P")
	s.SetQuery("Pu")
	s.SetQuery("Pun")

	select {
	case state := <-s.Updates():
		assert.Equal(t, "Pun", state.Query)
	case <-time.After(waitFor):
		t.Fatal("no update published")
	}
}

func TestLocationSuggester_SharedServiceAcrossInputs(t *testing.T) {
	geocoder := &stubGeocoder{}
	svc := newTestSearchService(t, geocoder, nil)
	pickup := newTestSuggester(t, svc)
	dropoff := newTestSuggester(t, svc)
	assert.NotEqual(t, pickup.ID(), dropoff.ID())

	pickup.SetQuery("Chennai")
	require.Eventually(t, func() bool { return len(pickup.State().Suggestions) == 1 }, waitFor, tick)

	dropoff.SetQuery("chennai")
	require.Eventually(t, func() bool { return len(dropoff.State().Suggestions) == 1 }, waitFor, tick)

	assert.Equal(t, 1, geocoder.callCount())
}

func TestDescribeSearchResult(t *testing.T) {
	kind, msg := services.DescribeSearchResult([]entities.LocationSuggestion{nelloreSuggestion()}, nil)
	assert.Equal(t, services.MessageNone, kind)
	assert.Empty(t, msg)

	kind, msg = services.DescribeSearchResult(nil, nil)
	assert.Equal(t, services.MessageInfo, kind)
	assert.Equal(t, services.MessageNoResults, msg)

	kind, _ = services.DescribeSearchResult(nil, apperrors.NewRateLimitedError("x"))
	assert.Equal(t, services.MessageBusy, kind)

	kind, _ = services.DescribeSearchResult(nil, apperrors.NewUnavailableError("x", nil))
	assert.Equal(t, services.MessageFailed, kind)
}
