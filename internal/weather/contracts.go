package weather

import "context"

// Gateway abstracts the remote weather data provider. Every call is a
// single network round trip with no retry; transport failures and
// non-2xx responses come back as network-classified errors.
type Gateway interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (WeatherSnapshot, error)
	SearchCities(ctx context.Context, query string) ([]Location, error)
	FetchForecast(ctx context.Context, lat, lon float64) ([]ForecastSample, error)
}

// Store is the contract the persistent location store must satisfy.
// Reads absorb storage failures (logged, empty/absent result); writes
// report them, but callers treat write failures as non-fatal.
type Store interface {
	Current(ctx context.Context) *Location
	SetCurrent(ctx context.Context, loc Location) error
	Recents(ctx context.Context) []Location
	RecordVisit(ctx context.Context, loc Location) ([]Location, error)
	ClearRecents(ctx context.Context) error
}
