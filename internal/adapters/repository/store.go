// Package repository loads candidates, preference history and engagement
// counters from SQL storage.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// Drivers selectable through config.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/pkg/metrics"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	defaultPurchaseHistory    = 10
	defaultAnalyticsLimit     = 5
	defaultMinConversionViews = 5
)

// Filter narrows the candidate pool.
type Filter struct {
	Kind model.Kind
}

// CandidateRepository returns the active candidate pool.
type CandidateRepository interface {
	ActiveCandidates(ctx context.Context, f Filter) ([]model.Candidate, error)
}

// PreferenceRepository returns per-viewer preference history.
type PreferenceRepository interface {
	VideoPreferences(ctx context.Context, viewerID string) (model.Profile, error)
	ProductPreferences(ctx context.Context, viewerID string) (model.Profile, error)
}

// EngagementRecorder bumps engagement counters.
type EngagementRecorder interface {
	IncrementCounter(ctx context.Context, kind model.Kind, id string, counter model.Counter) (int64, error)
}

// Store implements the repositories on top of sqlx.
type Store struct {
	db                 *sqlx.DB
	autoMigrate        bool
	purchaseHistory    int
	analyticsLimit     int
	minConversionViews int64
	now                func() time.Time
}

// New wraps an open connection.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:                 db,
		purchaseHistory:    defaultPurchaseHistory,
		analyticsLimit:     defaultAnalyticsLimit,
		minConversionViews: defaultMinConversionViews,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to driver/dsn, pings, and migrates when asked.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		// and keeps in-memory databases alive.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := New(db, opts...)
	if s.autoMigrate && driver == DriverSQLite {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
