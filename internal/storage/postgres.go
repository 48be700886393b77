package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresStore implements Gateway for PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// PoolOptions tunes the connection pool
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgresStore opens a PostgreSQL store. An unreachable server is not
// an error here: the store stays configured and its calls fail with
// *StoreError until the server comes back.
func NewPostgresStore(dsn string, opts PoolOptions) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Database ping failed, reads will use fallback data until it recovers")
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an existing handle
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Configured is always true for a PostgresStore
func (s *PostgresStore) Configured() bool {
	return true
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// BuildDSN combines the store URL and key into a connection string.
// The key is used as the password.
func BuildDSN(storeURL, key string) (string, error) {
	if strings.Contains(storeURL, "://") {
		u, err := url.Parse(storeURL)
		if err != nil {
			return "", fmt.Errorf("parse store url: %w", err)
		}
		username := ""
		if u.User != nil {
			username = u.User.Username()
		}
		u.User = url.UserPassword(username, key)
		return u.String(), nil
	}
	// key=value form
	return strings.TrimSpace(storeURL) + " password='" + strings.ReplaceAll(key, "'", `\'`) + "'", nil
}

// Open returns the gateway for the given credentials. If either credential
// is absent the returned gateway reports Configured() == false for good.
func Open(storeURL, key string, opts PoolOptions, breaker BreakerSettings) (Gateway, error) {
	if storeURL == "" || key == "" {
		log.Warn().Msg("Store credentials not found, serving fallback data")
		return Unconfigured{}, nil
	}

	dsn, err := BuildDSN(storeURL, key)
	if err != nil {
		return nil, err
	}

	store, err := NewPostgresStore(dsn, opts)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("Store configured")
	return NewBreaker(store, breaker), nil
}
