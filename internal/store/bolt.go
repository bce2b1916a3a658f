package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"skycast/internal/weather"
)

// DefaultMaxRecents bounds the recently viewed list.
const DefaultMaxRecents = 5

const bucketLocations = "locations"

var (
	keyCurrent = []byte("current_location")
	keyRecents = []byte("recent_locations")
)

// BoltStore persists the current location and the recently viewed list as
// JSON blobs under two keys in a single bbolt bucket. Writes are
// last-writer-wins; the two keys are independent and never updated
// transactionally together.
type BoltStore struct {
	db         *bolt.DB
	maxRecents int
	log        zerolog.Logger
}

var _ weather.Store = (*BoltStore)(nil)

// Open opens (or creates) the store file at path.
func Open(path string, maxRecents int) (*BoltStore, error) {
	if maxRecents <= 0 {
		maxRecents = DefaultMaxRecents
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, weather.NewStorageError("store.Open", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketLocations))
		return err
	})
	if err != nil {
		db.Close()
		return nil, weather.NewStorageError("store.Open", err)
	}

	return &BoltStore{
		db:         db,
		maxRecents: maxRecents,
		log:        log.With().Str("component", "store").Logger(),
	}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Current returns the persisted current location, or nil when unset.
// Read failures are absorbed: logged and reported as absent.
func (s *BoltStore) Current(ctx context.Context) *weather.Location {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketLocations)).Get(keyCurrent); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(weather.NewStorageError("store.Current", err)).Msg("failed to read current location")
		return nil
	}
	if raw == nil {
		return nil
	}

	var loc weather.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		s.log.Error().Err(weather.NewStorageError("store.Current", err)).Msg("corrupt current location record")
		return nil
	}
	return &loc
}

// SetCurrent overwrites the persisted current location.
func (s *BoltStore) SetCurrent(ctx context.Context, loc weather.Location) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return weather.NewStorageError("store.SetCurrent", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketLocations)).Put(keyCurrent, raw)
	})
	if err != nil {
		return weather.NewStorageError("store.SetCurrent", err)
	}
	return nil
}

// Recents returns the recently viewed list, most recent first. Failures
// are absorbed: logged and reported as an empty list.
func (s *BoltStore) Recents(ctx context.Context) []weather.Location {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketLocations)).Get(keyRecents); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(weather.NewStorageError("store.Recents", err)).Msg("failed to read recent locations")
		return []weather.Location{}
	}
	return decodeRecents(raw, s.log)
}

// RecordVisit applies the move-to-front rule: an existing entry with the
// same coordinates is removed, the location is prepended, and the list is
// truncated to the configured maximum. Returns the updated list.
func (s *BoltStore) RecordVisit(ctx context.Context, loc weather.Location) ([]weather.Location, error) {
	var updated []weather.Location
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketLocations))
		recents := decodeRecents(b.Get(keyRecents), s.log)
		updated = promote(recents, loc, s.maxRecents)

		raw, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		return b.Put(keyRecents, raw)
	})
	if err != nil {
		return nil, weather.NewStorageError("store.RecordVisit", err)
	}
	return updated, nil
}

// ClearRecents removes the recently viewed list.
func (s *BoltStore) ClearRecents(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketLocations)).Delete(keyRecents)
	})
	if err != nil {
		return weather.NewStorageError("store.ClearRecents", err)
	}
	return nil
}

// decodeRecents tolerates an absent or corrupt record by treating it as an
// empty list, so one bad write cannot wedge the store.
func decodeRecents(raw []byte, logger zerolog.Logger) []weather.Location {
	if raw == nil {
		return []weather.Location{}
	}
	var recents []weather.Location
	if err := json.Unmarshal(raw, &recents); err != nil {
		logger.Error().Err(err).Msg("corrupt recent locations record, resetting")
		return []weather.Location{}
	}
	return recents
}

func promote(recents []weather.Location, loc weather.Location, max int) []weather.Location {
	out := make([]weather.Location, 0, len(recents)+1)
	out = append(out, loc)
	for _, r := range recents {
		if r.SameCoords(loc) {
			continue
		}
		out = append(out, r)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
