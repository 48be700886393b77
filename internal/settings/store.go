package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// Key is where the settings document is stored
const Key = "wildwatch-settings"

// Store loads and saves Settings in a badger database
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the saved settings, or Defaults when nothing was saved.
// A stored document that cannot be decoded yields Defaults and an error.
func (s *Store) Load(_ context.Context) (Settings, error) {
	out := Defaults()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		return item.Value(func(val []byte) error {
			var saved Settings
			if err := json.Unmarshal(val, &saved); err != nil {
				return fmt.Errorf("decode settings: %w", err)
			}
			out = saved
			return nil
		})
	})
	if err != nil {
		log.Warn().Err(err).Msg("Could not load settings, using defaults")
		return Defaults(), err
	}
	return out, nil
}

// Save validates and stores the settings, replacing what was there
func (s *Store) Save(_ context.Context, settings Settings) error {
	if err := validation.ValidateStruct(settings); err != nil {
		return err
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(Key), data); err != nil {
			return fmt.Errorf("set settings: %w", err)
		}
		return nil
	})
}

// Reset stores and returns Defaults
func (s *Store) Reset(ctx context.Context) (Settings, error) {
	d := Defaults()
	return d, s.Save(ctx, d)
}
