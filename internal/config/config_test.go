package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycast/internal/weather"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, weather.IsConfig(err))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SearchLimit)
	assert.Equal(t, 24, cfg.ForecastSamples)
	assert.Equal(t, 5, cfg.MaxRecents)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "skycast.db", cfg.StorePath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, weather.Location{
		Name:    "San Francisco",
		Lat:     37.7749,
		Lon:     -122.4194,
		Country: "US",
	}, cfg.DefaultLocation)
}

func TestLoadDefaultLocationOverrides(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
	t.Setenv("DEFAULT_NAME", "Paris")
	t.Setenv("DEFAULT_LAT", "48.8566")
	t.Setenv("DEFAULT_LON", "2.3522")
	t.Setenv("DEFAULT_COUNTRY", "FR")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, weather.Location{
		Name:    "Paris",
		Lat:     48.8566,
		Lon:     2.3522,
		Country: "FR",
	}, cfg.DefaultLocation)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
	t.Setenv("REFRESH_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, weather.IsConfig(err))
}
