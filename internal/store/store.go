// Package store provides SQLite storage for transcription sessions,
// committed words, labelled landmark samples and settings.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Store represents a SQLite database connection.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration output.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log.With().Str("component", "store").Logger()
	}
}

// New opens the database at dbPath, creating its directory if needed, and
// migrates it to the latest schema.
func New(dbPath string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}
