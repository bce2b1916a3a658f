package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"skycast/internal/weather"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultGeoURL  = "https://api.openweathermap.org/geo/1.0"

	defaultSearchLimit = 5
	// 24 samples at 3-hour spacing covers 3 days.
	defaultSampleCount = 24
)

// Config bundles the OpenWeatherMap client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	GeoURL      string
	SearchLimit int
	SampleCount int
	Client      *http.Client
}

// OpenWeather implements weather.Gateway against the OpenWeatherMap API.
// Calls are single-attempt; a circuit breaker fails fast while the
// upstream is unhealthy but never retries.
type OpenWeather struct {
	apiKey      string
	baseURL     string
	geoURL      string
	searchLimit int
	sampleCount int
	client      *http.Client
	circuit     *gobreaker.CircuitBreaker
}

var _ weather.Gateway = (*OpenWeather)(nil)

// NewOpenWeather creates the gateway. A missing API key is a
// configuration error.
func NewOpenWeather(cfg Config) (*OpenWeather, error) {
	if cfg.APIKey == "" {
		return nil, weather.NewConfigError("gateway.NewOpenWeather", errors.New("OPENWEATHER_API_KEY is not set"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.GeoURL == "" {
		cfg.GeoURL = defaultGeoURL
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = defaultSampleCount
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeather{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		geoURL:      cfg.GeoURL,
		searchLimit: cfg.SearchLimit,
		sampleCount: cfg.SampleCount,
		client:      cfg.Client,
		circuit:     cb,
	}, nil
}

// FetchCurrent returns the current conditions for the given coordinates.
func (g *OpenWeather) FetchCurrent(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))
	values.Set("units", "metric")
	values.Set("appid", g.apiKey)

	resp, err := g.get(ctx, "gateway.FetchCurrent", g.baseURL+"/weather?"+values.Encode())
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Name string `json:"name"`
		Dt   int64  `json:"dt"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			ID          int    `json:"id"`
			Icon        string `json:"icon"`
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.WeatherSnapshot{}, weather.NewNetworkError("gateway.FetchCurrent", err)
	}

	snapshot := weather.WeatherSnapshot{
		PlaceName:   payload.Name,
		Country:     payload.Sys.Country,
		Timestamp:   time.Unix(payload.Dt, 0).UTC(),
		TempC:       payload.Main.Temp,
		FeelsLikeC:  payload.Main.FeelsLike,
		HumidityPct: payload.Main.Humidity,
		WindSpeedMS: payload.Wind.Speed,
	}
	if len(payload.Weather) > 0 {
		snapshot.ConditionID = payload.Weather[0].ID
		snapshot.Icon = payload.Weather[0].Icon
		snapshot.Description = payload.Weather[0].Description
	}

	return snapshot, nil
}

// SearchCities resolves a free-text query to candidate locations via the
// geocoding endpoint. Result count is capped by the configured limit.
func (g *OpenWeather) SearchCities(ctx context.Context, query string) ([]weather.Location, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(g.searchLimit))
	values.Set("appid", g.apiKey)

	resp, err := g.get(ctx, "gateway.SearchCities", g.geoURL+"/direct?"+values.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   *string `json:"state"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, weather.NewNetworkError("gateway.SearchCities", err)
	}

	locations := make([]weather.Location, 0, len(payload))
	for _, item := range payload {
		locations = append(locations, weather.Location{
			Name:    item.Name,
			Lat:     item.Lat,
			Lon:     item.Lon,
			Country: item.Country,
			State:   item.State,
		})
	}

	return locations, nil
}

// FetchForecast returns the raw 3-hour-interval forecast feed for the
// given coordinates.
func (g *OpenWeather) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.ForecastSample, error) {
	values := url.Values{}
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))
	values.Set("units", "metric")
	values.Set("cnt", strconv.Itoa(g.sampleCount))
	values.Set("appid", g.apiKey)

	resp, err := g.get(ctx, "gateway.FetchForecast", g.baseURL+"/forecast?"+values.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Icon        string `json:"icon"`
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, weather.NewNetworkError("gateway.FetchForecast", err)
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		sample := weather.ForecastSample{
			Timestamp: time.Unix(item.Dt, 0).UTC(),
			TempC:     item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			sample.Icon = item.Weather[0].Icon
			sample.Description = item.Weather[0].Description
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

// get performs a single GET attempt through the circuit breaker. Transport
// failures and non-2xx statuses are surfaced as network errors; there is
// no retry.
func (g *OpenWeather) get(ctx context.Context, op, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, weather.NewNetworkError(op, err)
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		resp, execErr := g.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, weather.NewNetworkError(op, err)
	}

	return result.(*http.Response), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
