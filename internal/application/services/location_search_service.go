package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/carpoolapp/backend/internal/domain/entities"
	"github.com/carpoolapp/backend/internal/domain/providers"
	"github.com/carpoolapp/backend/internal/infrastructure/observability"
	apperrors "github.com/carpoolapp/backend/pkg/errors"
	"github.com/carpoolapp/backend/pkg/retry"
)

// v2 entries carry their fetch time
const sharedCacheKeyPrefix = "geo:v2:suggest:"

var errNoSlotBeforeDeadline = errors.New("no upstream slot before the request deadline")

// sharedEntry is the Redis payload. StoredAt is when the results came from upstream, so a
// copy pulled into memory expires with the original.
type sharedEntry struct {
	StoredAt time.Time                     `json:"storedAt"`
	Results  []entities.LocationSuggestion `json:"results"`
}

// Where a SearchOutcome came from
const (
	SourceSkipped     = "skipped"
	SourceCache       = "cache"
	SourceSharedCache = "shared_cache"
	SourceUpstream    = "upstream"
)

// LocationSearchOptions configures the shared search service
type LocationSearchOptions struct {
	CountryCode    string
	CountryName    string
	ResultLimit    int
	MinQueryLength int
	MinInterval    time.Duration
	CacheTTL       time.Duration
	CacheSize      int
	Retry          retry.Policy

	// Now is the clock used for cache ages; nil means time.Now.
	Now func() time.Time
}

// DefaultRetryPolicy retries a throttled lookup after 2s and a transport failure after 1s,
// with at most two extra attempts in total.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: 2,
		Rules: []retry.Rule{
			{
				Name:     "rate_limited",
				Match:    func(err error) bool { return apperrors.IsType(err, apperrors.ErrorTypeRateLimited) },
				Schedule: retry.Schedule{2 * time.Second},
			},
			{
				Name:     "unavailable",
				Match:    func(err error) bool { return apperrors.IsType(err, apperrors.ErrorTypeUnavailable) },
				Schedule: retry.Schedule{time.Second},
			},
		},
	}
}

// DefaultLocationSearchOptions returns the settings used against the public Nominatim service
func DefaultLocationSearchOptions() LocationSearchOptions {
	return LocationSearchOptions{
		CountryCode:    "in",
		CountryName:    "India",
		ResultLimit:    5,
		MinQueryLength: 3,
		MinInterval:    1100 * time.Millisecond,
		CacheTTL:       5 * time.Minute,
		CacheSize:      50,
		Retry:          DefaultRetryPolicy(),
	}
}

// SearchOutcome is the result of one lookup
type SearchOutcome struct {
	Query       string
	Suggestions []entities.LocationSuggestion
	Source      string
}

// SearchOption customizes a single Search call
type SearchOption func(*searchCall)

type searchCall struct {
	onRequest func()
}

// WithRequestStarted registers fn to run right before each upstream attempt is sent,
// after the rate limit wait. It is not called for cache hits.
func WithRequestStarted(fn func()) SearchOption {
	return func(c *searchCall) {
		c.onRequest = fn
	}
}

// LocationSearcher is what suggesters and handlers need from the search service
type LocationSearcher interface {
	Search(ctx context.Context, query string, opts ...SearchOption) (SearchOutcome, error)
}

// LocationSearchService owns the state every suggester shares: the result cache and the
// upstream rate limit. Build one per process and inject it.
type LocationSearchService struct {
	provider    providers.GeocodingProvider
	sharedCache providers.CacheProvider
	metrics     *observability.Metrics
	opts        LocationSearchOptions
	cache       *suggestionCache
	limiter     *rate.Limiter
}

// NewLocationSearchService creates the search service
func NewLocationSearchService(provider providers.GeocodingProvider, opts LocationSearchOptions) (*LocationSearchService, error) {
	if provider == nil {
		return nil, fmt.Errorf("geocoding provider is required")
	}
	cache, err := newSuggestionCache(opts.CacheSize, opts.CacheTTL, opts.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion cache: %w", err)
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &LocationSearchService{
		provider: provider,
		opts:     opts,
		cache:    cache,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// SetSharedCache adds a cache tier shared with other processes (Redis in production)
func (s *LocationSearchService) SetSharedCache(cache providers.CacheProvider) {
	s.sharedCache = cache
}

// SetMetrics enables metric recording
func (s *LocationSearchService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// NormalizeQuery returns the cache key for a query
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Search resolves query to suggestions. Queries shorter than the minimum length are skipped
// without touching the cache or the network. Misses wait for the shared rate limit and go
// upstream under the retry policy; successful results are cached, empty lists included.
// A cancelled ctx is returned as ctx.Err().
func (s *LocationSearchService) Search(ctx context.Context, query string, opts ...SearchOption) (SearchOutcome, error) {
	call := searchCall{}
	for _, opt := range opts {
		opt(&call)
	}

	trimmed := strings.TrimSpace(query)
	outcome := SearchOutcome{Query: trimmed}
	if utf8.RuneCountInString(trimmed) < s.opts.MinQueryLength {
		outcome.Source = SourceSkipped
		return outcome, nil
	}

	ctx, span := observability.StartSpan(ctx, "location.search")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	key := NormalizeQuery(trimmed)
	observability.SetSpanAttributes(span, attribute.Int("query.length", len(key)))

	if cached, ok := s.cache.get(key); ok {
		observability.RecordCacheHit(ctx, s.metrics, "local")
		observability.SetSpanAttributes(span, attribute.String("cache.result", SourceCache))
		outcome.Suggestions = cached
		outcome.Source = SourceCache
		return outcome, nil
	}
	observability.RecordCacheMiss(ctx, s.metrics, "local")

	if cached, storedAt, ok := s.getShared(ctx, key); ok {
		s.cache.putAt(key, cached, storedAt)
		observability.SetSpanAttributes(span, attribute.String("cache.result", SourceSharedCache))
		outcome.Suggestions = cached
		outcome.Source = SourceSharedCache
		return outcome, nil
	}

	req := providers.SearchRequest{
		Query:          s.biasQuery(trimmed),
		CountryCodes:   s.opts.CountryCode,
		Limit:          s.opts.ResultLimit,
		AddressDetails: true,
	}

	var results []entities.LocationSuggestion
	err := s.opts.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := s.waitForSlot(ctx); err != nil {
			return err
		}
		if call.onRequest != nil {
			call.onRequest()
		}

		logger.Debug().Str("query", req.Query).Int("attempt", attempt).Msg("geocoding lookup")
		found, err := s.provider.Search(ctx, req)
		observability.RecordUpstreamRequest(ctx, s.metrics, upstreamOutcome(err))
		if err != nil {
			return err
		}
		results = found
		return nil
	}, func(rule string, attempt int, err error, delay time.Duration) {
		logger.Warn().Err(err).Str("rule", rule).Int("attempt", attempt).Dur("delay", delay).Msg("retrying geocoding lookup")
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		if errors.Is(err, errNoSlotBeforeDeadline) {
			err = apperrors.NewRateLimitedError("geocoding rate limit slot is past the request deadline")
		}
		observability.RecordError(span, err)
		logger.Warn().Err(err).Str("query", req.Query).Msg("geocoding lookup failed")
		return outcome, err
	}

	fetchedAt := s.cache.now()
	if s.cache.putAt(key, results, fetchedAt) {
		logger.Debug().Int("size", s.opts.CacheSize).Msg("evicted oldest suggestion cache entry")
	}
	s.putShared(ctx, key, results, fetchedAt)

	observability.SetSpanAttributes(span,
		attribute.String("cache.result", SourceUpstream),
		attribute.Int("results", len(results)),
	)
	outcome.Suggestions = results
	outcome.Source = SourceUpstream
	return outcome, nil
}

// waitForSlot blocks until the shared minimum interval since the previous upstream
// request has passed, then claims the slot. When ctx's deadline comes before the next
// slot it fails at once with errNoSlotBeforeDeadline, which no retry rule matches.
func (s *LocationSearchService) waitForSlot(ctx context.Context) error {
	start := time.Now()
	if err := s.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", errNoSlotBeforeDeadline, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		observability.RecordRateLimitWait(ctx, s.metrics, waited)
	}
	return nil
}

// biasQuery appends the country name unless the query already mentions it
func (s *LocationSearchService) biasQuery(query string) string {
	country := strings.TrimSpace(s.opts.CountryName)
	if country == "" || strings.Contains(strings.ToLower(query), strings.ToLower(country)) {
		return query
	}
	return query + ", " + country
}

// getShared reads the Redis tier. Entries at least ttl old count as misses even if Redis
// has not expired them yet.
func (s *LocationSearchService) getShared(ctx context.Context, key string) ([]entities.LocationSuggestion, time.Time, bool) {
	if s.sharedCache == nil {
		return nil, time.Time{}, false
	}

	sharedKey := sharedCacheKey(key)
	payload, err := s.sharedCache.Get(ctx, sharedKey)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("shared suggestion cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, "shared")
		return nil, time.Time{}, false
	}

	var entry sharedEntry
	if err := json.Unmarshal(payload, &entry); err != nil || entry.StoredAt.IsZero() {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("dropping undecodable shared cache entry")
		_ = s.sharedCache.Delete(ctx, sharedKey)
		observability.RecordCacheMiss(ctx, s.metrics, "shared")
		return nil, time.Time{}, false
	}
	if s.cache.now().Sub(entry.StoredAt) >= s.opts.CacheTTL {
		observability.RecordCacheMiss(ctx, s.metrics, "shared")
		return nil, time.Time{}, false
	}
	observability.RecordCacheHit(ctx, s.metrics, "shared")
	return entry.Results, entry.StoredAt, true
}

func (s *LocationSearchService) putShared(ctx context.Context, key string, results []entities.LocationSuggestion, fetchedAt time.Time) {
	ttlSeconds := int(s.opts.CacheTTL / time.Second)
	if s.sharedCache == nil || ttlSeconds < 1 {
		return
	}
	if results == nil {
		results = []entities.LocationSuggestion{}
	}
	payload, err := json.Marshal(sharedEntry{StoredAt: fetchedAt, Results: results})
	if err != nil {
		return
	}
	if err := s.sharedCache.Set(ctx, sharedCacheKey(key), payload, ttlSeconds); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("shared suggestion cache write failed")
	}
}

func sharedCacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return sharedCacheKeyPrefix + hex.EncodeToString(sum[:])
}

func upstreamOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case apperrors.IsType(err, apperrors.ErrorTypeRateLimited):
		return "rate_limited"
	case apperrors.IsType(err, apperrors.ErrorTypeUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
