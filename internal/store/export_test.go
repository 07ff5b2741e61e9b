package store

import (
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in store_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetBeforeCommit installs a hook that runs after a write transaction's
// statements and before COMMIT. A non-nil error aborts the transaction.
func (s *Store) SetBeforeCommit(fn func(op string) error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.hooks.beforeCommit = fn
}

// SetClock pins the store's clock and returns a restore func.
func SetClock(fn func() time.Time) func() {
	prev := timeNow
	timeNow = fn
	return func() { timeNow = prev }
}
