package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"skycast/internal/weather"
)

// AppConfig carries everything the process needs at startup.
type AppConfig struct {
	OpenWeatherAPIKey string

	// Base URL overrides, used by tests; empty means the real API.
	OpenWeatherBaseURL string
	OpenWeatherGeoURL  string

	SearchLimit     int
	ForecastSamples int
	MaxRecents      int

	HTTPTimeout     time.Duration
	RefreshInterval time.Duration

	StorePath string
	Port      string

	// DefaultLocation is shown when no session was ever persisted.
	DefaultLocation weather.Location
}

// Load reads configuration from the environment with sensible defaults.
// A missing API key is a hard configuration error.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, weather.NewConfigError("config.Load", errors.New("OPENWEATHER_API_KEY is required"))
	}

	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.OpenWeatherGeoURL = os.Getenv("OPENWEATHER_GEO_URL")

	cfg.SearchLimit = getenvInt("SEARCH_LIMIT", 5)
	cfg.ForecastSamples = getenvInt("FORECAST_SAMPLES", 24)
	cfg.MaxRecents = getenvInt("MAX_RECENTS", 5)

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	refresh, err := getenvDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = refresh

	cfg.StorePath = getenvDefault("STORE_PATH", "skycast.db")
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.DefaultLocation = weather.Location{
		Name:    getenvDefault("DEFAULT_NAME", "San Francisco"),
		Lat:     getenvFloat("DEFAULT_LAT", 37.7749),
		Lon:     getenvFloat("DEFAULT_LON", -122.4194),
		Country: getenvDefault("DEFAULT_COUNTRY", "US"),
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, weather.NewConfigError("config.Load", fmt.Errorf("invalid %s: %w", key, err))
	}
	return d, nil
}
