package weather

import (
	"math"
	"time"
)

// Location represents a geographic place the user can look up weather for.
// Instances are immutable once constructed; state updates replace them wholesale.
type Location struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   *string `json:"state"`
}

// SameCoords reports whether two locations resolve to the same point.
// Identity is the exact coordinate pair, not the name: two searches can
// return the same place with slightly different labels.
func (l Location) SameCoords(o Location) bool {
	return l.Lat == o.Lat && l.Lon == o.Lon
}

// WeatherSnapshot is the current-conditions payload as reported by the
// provider. Values are metric; wind speed stays in m/s and is converted
// for display only.
type WeatherSnapshot struct {
	PlaceName   string    `json:"placeName"`
	Country     string    `json:"country"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	TempC       float64   `json:"tempC"`
	FeelsLikeC  float64   `json:"feelsLikeC"`
	HumidityPct float64   `json:"humidityPct"`
	WindSpeedMS float64   `json:"windSpeedMs"`
	ConditionID int       `json:"conditionId"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
}

// WindSpeedKMH converts the stored m/s wind speed to km/h for display.
func (s WeatherSnapshot) WindSpeedKMH() int {
	return int(math.Round(s.WindSpeedMS * 3.6))
}

// ForecastSample is one timestamped reading from the raw 3-hour-interval
// forecast feed.
type ForecastSample struct {
	Timestamp   time.Time `json:"timestamp"`
	TempC       float64   `json:"tempC"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
}

// DailySummary aggregates all forecast samples falling on one UTC calendar
// day. Derived on every fetch, never persisted.
type DailySummary struct {
	Date        string `json:"date"` // YYYY-MM-DD
	HighTempC   int    `json:"highTempC"`
	LowTempC    int    `json:"lowTempC"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}
