// Package store implements the manifest persistence and lifecycle engine.
//
// It keeps three things mutually consistent on top of a single SQLite file:
// the feature tree, the one-active-session-per-feature rule, and the
// append-only feature history. Every check-then-act mutation runs inside one
// write transaction (see tx.go); reads use the pooled handle and run
// concurrently with each other and with a writer under WAL.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaced in tests that need deterministic timestamps.
var timeNow = time.Now

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file. Its directory is created if missing.
	Path string
	// BusyTimeout is the driver-level wait for the database lock.
	BusyTimeout time.Duration
	// MaxRetries bounds the retries of a write that hit SQLITE_BUSY.
	MaxRetries int
	// Logger receives migration, retry and squash events.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		MaxRetries:  3,
		Logger:      slog.Default(),
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the manifest engine backed by SQLite. It is safe for concurrent
// use; writes are serialised by writeMu and SQLite's reserved lock.
type Store struct {
	db      *sql.DB
	cfg     Config
	log     *slog.Logger
	writeMu sync.Mutex
	hooks   storeHooks
}

// storeHooks lets tests inject failures at transaction boundaries.
type storeHooks struct {
	beforeCommit func(op string) error
}

// New opens the database, applies pending migrations and returns the Store.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: database path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := openDB("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: cfg.Logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// uriPath escapes the characters SQLite URI parsing would otherwise treat as
// a query, a fragment or a percent escape.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn builds a modernc connection string. Pragmas are set per connection so
// every pooled connection enforces foreign keys and waits on locks.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + uriPath.Replace(cfg.Path) + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func now() string {
	return timeNow().UTC().Format(timeLayout)
}

func newID() string {
	return uuid.NewString()
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullIfEmpty stores an empty string as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeList(list []string) (any, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeList(op string, raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, &StorageError{Op: op, Err: fmt.Errorf("decode files_changed: %w", err)}
	}
	return out, nil
}

func validJSON(field string, s *string) error {
	if s == nil {
		return nil
	}
	if !json.Valid([]byte(*s)) {
		return invalidInput(fmt.Errorf("'%s' is not well-formed JSON", field))
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
