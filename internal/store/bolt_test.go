package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycast/internal/weather"
)

func openTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skycast.db")
	s, err := Open(path, DefaultMaxRecents)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func loc(name string, lat, lon float64) weather.Location {
	return weather.Location{Name: name, Lat: lat, Lon: lon, Country: "US"}
}

func TestCurrentAbsentWhenUnset(t *testing.T) {
	s, _ := openTestStore(t)
	assert.Nil(t, s.Current(context.Background()))
}

func TestSetCurrentRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	sf := loc("San Francisco", 37.7749, -122.4194)
	require.NoError(t, s.SetCurrent(ctx, sf))

	got := s.Current(ctx)
	require.NotNil(t, got)
	assert.Equal(t, sf, *got)
}

func TestCurrentSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skycast.db")
	ctx := context.Background()

	s, err := Open(path, DefaultMaxRecents)
	require.NoError(t, err)
	sf := loc("San Francisco", 37.7749, -122.4194)
	require.NoError(t, s.SetCurrent(ctx, sf))
	_, err = s.RecordVisit(ctx, sf)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path, DefaultMaxRecents)
	require.NoError(t, err)
	defer reopened.Close()

	got := reopened.Current(ctx)
	require.NotNil(t, got)
	assert.Equal(t, sf, *got)
	assert.Equal(t, []weather.Location{sf}, reopened.Recents(ctx))
}

func TestRecentsEmptyWhenUnset(t *testing.T) {
	s, _ := openTestStore(t)
	assert.Empty(t, s.Recents(context.Background()))
}

func TestRecordVisitPrepends(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a := loc("A", 1, 1)
	b := loc("B", 2, 2)

	_, err := s.RecordVisit(ctx, a)
	require.NoError(t, err)
	updated, err := s.RecordVisit(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, []weather.Location{b, a}, updated)
	assert.Equal(t, []weather.Location{b, a}, s.Recents(ctx))
}

func TestRecordVisitIsIdempotentOnSameCoords(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a := loc("A", 1, 1)
	for i := 0; i < 4; i++ {
		updated, err := s.RecordVisit(ctx, a)
		require.NoError(t, err)
		assert.Len(t, updated, 1)
		assert.Equal(t, a, updated[0])
	}
}

func TestRecordVisitMovesExistingEntryToFront(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a := loc("A", 1, 1)
	b := loc("B", 2, 2)
	c := loc("C", 3, 3)
	for _, l := range []weather.Location{a, b, c} {
		_, err := s.RecordVisit(ctx, l)
		require.NoError(t, err)
	}

	updated, err := s.RecordVisit(ctx, a)
	require.NoError(t, err)

	assert.Equal(t, []weather.Location{a, c, b}, updated)
}

func TestRecordVisitDedupesOnCoordinatesNotName(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.RecordVisit(ctx, loc("SF", 37.7749, -122.4194))
	require.NoError(t, err)

	// Same point, different label from a second search.
	relabeled := loc("San Francisco", 37.7749, -122.4194)
	updated, err := s.RecordVisit(ctx, relabeled)
	require.NoError(t, err)

	require.Len(t, updated, 1)
	assert.Equal(t, "San Francisco", updated[0].Name)
}

func TestRecordVisitEvictsOldestBeyondCap(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	var inserted []weather.Location
	for i := 0; i < DefaultMaxRecents+1; i++ {
		l := loc(fmt.Sprintf("L%d", i), float64(i), float64(i))
		inserted = append(inserted, l)
		updated, err := s.RecordVisit(ctx, l)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(updated), DefaultMaxRecents)
	}

	recents := s.Recents(ctx)
	require.Len(t, recents, DefaultMaxRecents)
	// The first inserted location was evicted; the newest is in front.
	assert.Equal(t, inserted[DefaultMaxRecents], recents[0])
	assert.NotContains(t, recents, inserted[0])
}

func TestClearRecents(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.RecordVisit(ctx, loc("A", 1, 1))
	require.NoError(t, err)
	require.NoError(t, s.ClearRecents(ctx))

	assert.Empty(t, s.Recents(ctx))
}
