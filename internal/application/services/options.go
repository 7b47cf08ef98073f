package services

import (
	"github.com/carpoolapp/backend/pkg/config"
)

// SearchOptionsFromConfig maps the geocoding settings onto the search service options.
// The retry policy is not configurable and stays at DefaultRetryPolicy.
func SearchOptionsFromConfig(cfg *config.GeocodingConfig) LocationSearchOptions {
	opts := DefaultLocationSearchOptions()
	opts.CountryCode = cfg.CountryCode
	opts.CountryName = cfg.CountryName
	opts.ResultLimit = cfg.ResultLimit
	opts.MinQueryLength = cfg.MinQueryLength
	opts.MinInterval = cfg.MinInterval
	opts.CacheTTL = cfg.CacheTTL
	opts.CacheSize = cfg.CacheSize
	return opts
}

// SuggesterOptionsFromConfig maps the geocoding settings onto suggester options
func SuggesterOptionsFromConfig(cfg *config.GeocodingConfig) SuggesterOptions {
	return SuggesterOptions{
		Debounce:       cfg.Debounce,
		MinQueryLength: cfg.MinQueryLength,
	}
}
