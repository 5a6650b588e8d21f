package repository

import "time"

// Default SQLite connection settings.
const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithJournalMode sets the SQLite journal mode.
func WithJournalMode(mode string) Option {
	return func(s *Store) {
		if mode != "" {
			s.journalMode = mode
		}
	}
}
