package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error taxonomy. Callers match with errors.Is; the transport layer maps
// these to protocol codes.
var (
	// ErrNotFound means a referenced project, feature, session or task is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParent means a parent reference is missing, cross-project, or
	// would create a cycle.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrNotLeaf means a session was requested on a feature that has children.
	ErrNotLeaf = errors.New("feature is not a leaf")
	// ErrSessionAlreadyActive means the feature already has an active session.
	ErrSessionAlreadyActive = errors.New("session already active")
	// ErrSessionNotActive means a mutation targeted a terminal or absent session.
	ErrSessionNotActive = errors.New("session not active")
	// ErrInvalidTransition means a task status change is not a legal edge.
	ErrInvalidTransition = errors.New("invalid task transition")
	// ErrInvalidInput means the request was malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage means the underlying store failed: I/O, corruption, lock
	// timeout, or an undecodable persisted value.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a driver or decode error. It matches ErrStorage and the
// wrapped error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// storageErr wraps err unless it already belongs to the taxonomy.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isTaxonomy(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidParent, ErrNotLeaf, ErrSessionAlreadyActive,
		ErrSessionNotActive, ErrInvalidTransition, ErrInvalidInput, ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// sqliteCode extracts the primary result code from a driver error, or -1.
func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() & 0xff
	}
	return -1
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, the only
// conditions the store retries.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	switch sqliteCode(err) {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
