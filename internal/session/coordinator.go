package session

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"skycast/internal/weather"
)

// State is the coordinator's lifecycle phase. Ready and Failed both
// transition back to Loading on the next selection.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

const (
	// DefaultDebounce is the quiet period before a typed query triggers a
	// city search.
	DefaultDebounce = 400 * time.Millisecond
	// MinQueryLength is the minimum query length that triggers a search.
	MinQueryLength = 2

	failedLoadMessage    = "Failed to load weather data. Please try again."
	invalidCoordsMessage = "Invalid location coordinates"
)

// Snapshot is the externally visible session state.
type Snapshot struct {
	State    State
	Weather  *weather.WeatherSnapshot
	Forecast []weather.DailySummary
	Location weather.Location
	Err      error
	Message  string
}

// Config bundles the coordinator's collaborators and tunables.
type Config struct {
	Gateway         weather.Gateway
	Store           weather.Store
	DefaultLocation weather.Location
	Debounce        time.Duration
}

type locationSub struct {
	id string
	fn func(weather.Location)
}

type clearedSub struct {
	id string
	fn func()
}

type searchSub struct {
	id string
	fn func([]weather.Location)
}

// Coordinator owns the session state and orchestrates location selection:
// concurrent weather+forecast fetch, forecast aggregation, persistence,
// and publication to subscribers. It replaces ad hoc cross-screen
// callbacks with an explicit subscription registry.
type Coordinator struct {
	gateway    weather.Gateway
	store      weather.Store
	defaultLoc weather.Location
	debounce   time.Duration
	log        zerolog.Logger

	mu     sync.Mutex
	snap   Snapshot
	gen    uint64
	cancel context.CancelFunc

	subMu       sync.Mutex
	locSubs     []locationSub
	clearedSubs []clearedSub
	searchSubs  []searchSub

	searchMu    sync.Mutex
	searchTimer *time.Timer
	searchGen   uint64
	closed      bool
}

// New creates a Coordinator in the Idle state.
func New(cfg Config) *Coordinator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Coordinator{
		gateway:    cfg.Gateway,
		store:      cfg.Store,
		defaultLoc: cfg.DefaultLocation,
		debounce:   cfg.Debounce,
		log:        log.With().Str("component", "session").Logger(),
		snap:       Snapshot{State: StateIdle, Location: cfg.DefaultLocation},
	}
}

// Start restores the persisted session: the saved current location if one
// exists, the default location otherwise.
func (c *Coordinator) Start(ctx context.Context) error {
	loc := c.store.Current(ctx)
	if loc == nil {
		loc = &c.defaultLoc
	}
	return c.SelectLocation(ctx, loc.Lat, loc.Lon, loc)
}

// SelectLocation drives one Loading → Ready/Failed transition. Current
// weather and the raw forecast are fetched concurrently; the first failure
// cancels the sibling call and fails the whole step. A newer call
// supersedes an in-flight one: the older call is cancelled and its result
// discarded.
func (c *Coordinator) SelectLocation(ctx context.Context, lat, lon float64, meta *weather.Location) error {
	if err := validateCoords(lat, lon); err != nil {
		c.mu.Lock()
		c.gen++
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.snap = Snapshot{State: StateFailed, Location: c.snap.Location, Err: err, Message: invalidCoordsMessage}
		c.mu.Unlock()
		return err
	}

	working := weather.Location{Lat: lat, Lon: lon, Name: "Unknown location"}
	if meta != nil {
		working = *meta
		working.Lat, working.Lon = lat, lon
		if working.Name == "" {
			working.Name = "Unknown location"
		}
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.snap = Snapshot{State: StateLoading, Location: working}
	c.mu.Unlock()
	defer cancel()

	current, samples, err := c.fetchBoth(ctx, lat, lon)
	if err != nil {
		c.apply(gen, Snapshot{State: StateFailed, Location: working, Err: err, Message: failedLoadMessage})
		return err
	}

	summaries := weather.Summarize(samples)

	// The provider-confirmed name wins over caller-supplied metadata.
	authoritative := working
	if current.PlaceName != "" {
		authoritative = weather.Location{
			Name:    current.PlaceName,
			Lat:     lat,
			Lon:     lon,
			Country: current.Country,
		}
	}

	// A superseded selection must not touch persisted state either.
	if !c.isCurrent(gen) {
		return nil
	}

	if _, err := c.store.RecordVisit(ctx, authoritative); err != nil {
		c.log.Error().Err(err).Msg("failed to record visit")
	}
	if err := c.store.SetCurrent(ctx, authoritative); err != nil {
		c.log.Error().Err(err).Msg("failed to persist current location")
	}

	applied := c.apply(gen, Snapshot{
		State:    StateReady,
		Weather:  &current,
		Forecast: summaries,
		Location: authoritative,
	})
	if applied {
		c.publishLocation(authoritative)
	}
	return nil
}

// fetchBoth issues both gateway calls concurrently and joins on them.
// Fail-fast: the first error cancels the sibling call.
func (c *Coordinator) fetchBoth(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, []weather.ForecastSample, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		current  weather.WeatherSnapshot
		samples  []weather.ForecastSample
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		snap, err := c.gateway.FetchCurrent(ctx, lat, lon)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		current = snap
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		raw, err := c.gateway.FetchForecast(ctx, lat, lon)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		samples = raw
		mu.Unlock()
	}()
	wg.Wait()

	if firstErr != nil {
		return weather.WeatherSnapshot{}, nil, firstErr
	}
	return current, samples, nil
}

// Refresh re-runs the selection for the session's current location. A
// no-op while the session is still Idle.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	state := c.snap.State
	loc := c.snap.Location
	c.mu.Unlock()

	if state == StateIdle {
		return nil
	}
	return c.SelectLocation(ctx, loc.Lat, loc.Lon, &loc)
}

// Search schedules a debounced city search. Only the most recent query
// after the quiet period triggers a gateway call; a newer query cancels
// the pending one, and results of a superseded query are discarded.
// A query below MinQueryLength still cancels the pending search without
// scheduling a new one. Results are delivered to OnSearchResults
// subscribers.
func (c *Coordinator) Search(query string) {
	query = strings.TrimSpace(query)

	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	if c.closed {
		return
	}
	c.searchGen++
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	if len(query) < MinQueryLength {
		return
	}
	gen := c.searchGen
	c.searchTimer = time.AfterFunc(c.debounce, func() {
		c.runSearch(gen, query)
	})
}

func (c *Coordinator) runSearch(gen uint64, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := c.gateway.SearchCities(ctx, query)
	if err != nil {
		c.log.Error().Err(err).Str("query", query).Msg("city search failed")
		return
	}

	c.searchMu.Lock()
	stale := gen != c.searchGen || c.closed
	c.searchMu.Unlock()
	if stale {
		return
	}
	c.publishSearchResults(results)
}

// SearchNow performs an immediate city search, bypassing the debounce.
// Queries shorter than MinQueryLength are rejected before any network call.
func (c *Coordinator) SearchNow(ctx context.Context, query string) ([]weather.Location, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLength {
		return nil, weather.NewValidationError("session.SearchNow",
			errors.New("query must be at least 2 characters"))
	}
	return c.gateway.SearchCities(ctx, query)
}

// Recents returns the persisted recently viewed list.
func (c *Coordinator) Recents(ctx context.Context) []weather.Location {
	return c.store.Recents(ctx)
}

// ClearRecents clears the recently viewed list and notifies subscribers.
func (c *Coordinator) ClearRecents(ctx context.Context) error {
	if err := c.store.ClearRecents(ctx); err != nil {
		c.log.Error().Err(err).Msg("failed to clear recent locations")
		return err
	}
	c.publishRecentsCleared()
	return nil
}

// State returns a copy of the current session snapshot.
func (c *Coordinator) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Close cancels any in-flight selection and pending search timer. Safe to
// call once the coordinator's consumers are torn down.
func (c *Coordinator) Close() {
	c.searchMu.Lock()
	c.closed = true
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchMu.Unlock()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

// OnLocationChanged registers a handler for successful location changes.
// Handlers run in subscription order. Returns a token for Unsubscribe.
func (c *Coordinator) OnLocationChanged(fn func(weather.Location)) string {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := uuid.NewString()
	c.locSubs = append(c.locSubs, locationSub{id: id, fn: fn})
	return id
}

// OnRecentsCleared registers a handler invoked after the recents list is
// cleared.
func (c *Coordinator) OnRecentsCleared(fn func()) string {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := uuid.NewString()
	c.clearedSubs = append(c.clearedSubs, clearedSub{id: id, fn: fn})
	return id
}

// OnSearchResults registers a handler for debounced search results.
func (c *Coordinator) OnSearchResults(fn func([]weather.Location)) string {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := uuid.NewString()
	c.searchSubs = append(c.searchSubs, searchSub{id: id, fn: fn})
	return id
}

// Unsubscribe removes the subscription with the given token, whichever
// event it was registered for.
func (c *Coordinator) Unsubscribe(id string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i, s := range c.locSubs {
		if s.id == id {
			c.locSubs = append(c.locSubs[:i], c.locSubs[i+1:]...)
			return
		}
	}
	for i, s := range c.clearedSubs {
		if s.id == id {
			c.clearedSubs = append(c.clearedSubs[:i], c.clearedSubs[i+1:]...)
			return
		}
	}
	for i, s := range c.searchSubs {
		if s.id == id {
			c.searchSubs = append(c.searchSubs[:i], c.searchSubs[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// apply installs the snapshot only if gen is still the current generation,
// so a superseded selection can never overwrite a newer one.
func (c *Coordinator) apply(gen uint64, snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.snap = snap
	return true
}

func (c *Coordinator) publishLocation(loc weather.Location) {
	c.subMu.Lock()
	subs := make([]locationSub, len(c.locSubs))
	copy(subs, c.locSubs)
	c.subMu.Unlock()
	for _, s := range subs {
		s.fn(loc)
	}
}

func (c *Coordinator) publishRecentsCleared() {
	c.subMu.Lock()
	subs := make([]clearedSub, len(c.clearedSubs))
	copy(subs, c.clearedSubs)
	c.subMu.Unlock()
	for _, s := range subs {
		s.fn()
	}
}

func (c *Coordinator) publishSearchResults(results []weather.Location) {
	c.subMu.Lock()
	subs := make([]searchSub, len(c.searchSubs))
	copy(subs, c.searchSubs)
	c.subMu.Unlock()
	for _, s := range subs {
		s.fn(results)
	}
}

func validateCoords(lat, lon float64) error {
	switch {
	case math.IsNaN(lat) || math.IsNaN(lon):
		return weather.NewValidationError("session.SelectLocation", errors.New("latitude and longitude are required"))
	case math.IsInf(lat, 0) || math.IsInf(lon, 0):
		return weather.NewValidationError("session.SelectLocation", errors.New("latitude and longitude must be finite"))
	case lat < -90 || lat > 90:
		return weather.NewValidationError("session.SelectLocation", errors.New("latitude out of range"))
	case lon < -180 || lon > 180:
		return weather.NewValidationError("session.SelectLocation", errors.New("longitude out of range"))
	}
	return nil
}
