// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// pure Go sqlite driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/jeranaias/chatdeck/internal/logger"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a row doesn't exist or belongs to another user.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StoreError{Message: "not found"}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// =============================================================================
// STORE
// =============================================================================

// Store persists chats, messages and identities.
type Store struct {
	db  *gorm.DB
	log *logger.Logger

	// now is the clock used for timestamps
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the timestamp source. Tests use it to get strictly
// increasing times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string, log *logger.Logger, opts ...Option) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: sqliteDSN(dsn)})
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	store := New(db, log, opts...)
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}
	return store, nil
}

// New wraps an open gorm handle. The caller is responsible for migrations.
func New(db *gorm.DB, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sqliteDSN turns on foreign keys and a busy timeout for every pooled
// connection, not just the one that runs the migration, and stores times in
// a sortable layout.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
