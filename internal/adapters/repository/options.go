package repository

import "time"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithAutoMigrate applies the embedded schema when the store opens.
// Only sqlite3 is migrated; Postgres schemas are managed externally.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Store) {
		s.autoMigrate = enabled
	}
}

// WithPurchaseHistory sets how many distinct purchases feed the product
// preference profile.
func WithPurchaseHistory(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.purchaseHistory = n
		}
	}
}

// WithAnalyticsLimit sets the length of each analytics leaderboard.
func WithAnalyticsLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.analyticsLimit = n
		}
	}
}

// WithMinConversionViews sets the views floor for the conversion leaderboard.
func WithMinConversionViews(n int64) Option {
	return func(s *Store) {
		if n >= 0 {
			s.minConversionViews = n
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
