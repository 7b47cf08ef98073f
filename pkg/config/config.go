package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Redis     RedisConfig
	Geocoding GeocodingConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// GeocodingConfig holds the location suggestion settings
type GeocodingConfig struct {
	Provider       string
	BaseURL        string
	UserAgent      string
	CountryCode    string
	CountryName    string
	ResultLimit    int
	MinInterval    time.Duration
	CacheTTL       time.Duration
	CacheSize      int
	Debounce       time.Duration
	MinQueryLength int
	HTTPTimeout    time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Geocoding: GeocodingConfig{
			Provider:       getEnv("GEOCODING_PROVIDER", "nominatim"),
			BaseURL:        getEnv("GEOCODING_BASE_URL", "https://nominatim.openstreetmap.org/search"),
			UserAgent:      getEnv("GEOCODING_USER_AGENT", "CarpoolApp/1.0 (location-autocomplete)"),
			CountryCode:    getEnv("GEOCODING_COUNTRY_CODE", "in"),
			CountryName:    getEnv("GEOCODING_COUNTRY_NAME", "India"),
			ResultLimit:    getEnvAsInt("GEOCODING_RESULT_LIMIT", 5),
			MinInterval:    getEnvAsDuration("GEOCODING_MIN_INTERVAL", 1100*time.Millisecond),
			CacheTTL:       getEnvAsDuration("GEOCODING_CACHE_TTL", 5*time.Minute),
			CacheSize:      getEnvAsInt("GEOCODING_CACHE_SIZE", 50),
			Debounce:       getEnvAsDuration("GEOCODING_DEBOUNCE", 500*time.Millisecond),
			MinQueryLength: getEnvAsInt("GEOCODING_MIN_QUERY_LENGTH", 3),
			HTTPTimeout:    getEnvAsDuration("GEOCODING_HTTP_TIMEOUT", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "carpool-location-suggest"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Geocoding.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the suggestion service cannot run with
func (c *GeocodingConfig) Validate() error {
	switch c.Provider {
	case "nominatim", "mock":
	default:
		return fmt.Errorf("unsupported geocoding provider %q", c.Provider)
	}
	if c.ResultLimit <= 0 {
		return fmt.Errorf("GEOCODING_RESULT_LIMIT must be positive, got %d", c.ResultLimit)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("GEOCODING_CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	if c.MinInterval < 0 || c.CacheTTL < 0 || c.Debounce < 0 {
		return fmt.Errorf("geocoding durations must not be negative")
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
