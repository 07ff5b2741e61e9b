package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// migration is one ordered schema step. Each up func is guarded so that it is
// a no-op on a database that already carries its effect; databases created
// before version tracking can therefore run the whole list safely.
type migration struct {
	version string
	name    string
	up      func(ctx context.Context, q querier) error
}

var migrations = []migration{
	{"001", "initial", migrateInitial},
	{"002", "project_instructions", func(ctx context.Context, q querier) error {
		return addColumnIfMissing(ctx, q, "projects", "instructions", "TEXT")
	}},
	{"003", "feature_priority", func(ctx context.Context, q querier) error {
		return addColumnIfMissing(ctx, q, "features", "priority", "INTEGER NOT NULL DEFAULT 0")
	}},
	{"004", "feature_version", migrateFeatureVersion},
	{"005", "history_details", func(ctx context.Context, q querier) error {
		return addColumnIfMissing(ctx, q, "feature_history", "details", "TEXT")
	}},
	{"006", "remove_story", migrateRemoveStory},
	{"007", "one_active_session", func(ctx context.Context, q querier) error {
		_, err := q.ExecContext(ctx,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
			 ON sessions(feature_id) WHERE status = 'active'`)
		return err
	}},
	{"008", "feature_desired_details", func(ctx context.Context, q querier) error {
		return addColumnIfMissing(ctx, q, "features", "desired_details", "TEXT")
	}},
}

// migrate applies pending migrations on a dedicated connection with foreign
// keys disabled, so table rebuilds cannot cascade, then verifies referential
// integrity before turning them back on.
func (s *Store) migrate() error {
	ctx := context.Background()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		exists, err := tableExists(ctx, conn, "features")
		if err != nil {
			return err
		}
		if exists {
			s.log.Info("store: adopting database without version tracking")
		}
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			s.log.Error("store: re-enable foreign keys", "err", err)
		}
	}()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(ctx, conn, m); err != nil {
			return fmt.Errorf("migration %s (%s): %w", m.version, m.name, err)
		}
		s.log.Info("store: applied migration", "version", m.version, "name", m.name)
	}

	return checkForeignKeys(ctx, conn)
}

func applyMigration(ctx context.Context, conn *sql.Conn, m migration) (err error) {
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := m.up(ctx, conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, now()); err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, "COMMIT")
	return err
}

func appliedMigrations(ctx context.Context, q querier) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func checkForeignKeys(ctx context.Context, q querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}
		violations = append(violations, fmt.Sprintf("%s(rowid %d) -> %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations after migration: %s", strings.Join(violations, ", "))
	}
	return nil
}

// ─── Schema helpers ──────────────────────────────────────────────────────────

func tableExists(ctx context.Context, q querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	return n > 0, err
}

func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	return n > 0, err
}

func addColumnIfMissing(ctx context.Context, q querier, table, column, decl string) error {
	ok, err := columnExists(ctx, q, table, column)
	if err != nil || ok {
		return err
	}
	_, err = q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// ─── Steps ───────────────────────────────────────────────────────────────────

func migrateInitial(ctx context.Context, q querier) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS project_directories (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			path       TEXT NOT NULL,
			git_remote TEXT,
			is_primary INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS features (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			parent_id  TEXT REFERENCES features(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			story      TEXT,
			details    TEXT,
			state      TEXT NOT NULL DEFAULT 'proposed',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feature_history (
			id            TEXT PRIMARY KEY,
			feature_id    TEXT REFERENCES features(id) ON DELETE SET NULL,
			session_id    TEXT,
			summary       TEXT NOT NULL,
			files_changed TEXT,
			author        TEXT,
			created_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			feature_id   TEXT NOT NULL REFERENCES features(id) ON DELETE CASCADE,
			goal         TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'active',
			created_at   TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			parent_id     TEXT REFERENCES tasks(id) ON DELETE CASCADE,
			title         TEXT NOT NULL,
			scope         TEXT,
			status        TEXT NOT NULL DEFAULT 'pending',
			agent_type    TEXT,
			worktree_path TEXT,
			branch        TEXT,
			created_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS implementation_notes (
			id            TEXT PRIMARY KEY,
			feature_id    TEXT REFERENCES features(id) ON DELETE CASCADE,
			task_id       TEXT REFERENCES tasks(id) ON DELETE CASCADE,
			content       TEXT NOT NULL,
			files_changed TEXT,
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_directories_project ON project_directories(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_feature ON feature_history(feature_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_feature ON sessions(feature_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_feature ON implementation_notes(feature_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_task ON implementation_notes(task_id)`,
	}
	if err := execAll(ctx, q, stmts); err != nil {
		return err
	}
	return createFeatureIndexes(ctx, q)
}

func migrateFeatureVersion(ctx context.Context, q querier) error {
	if err := addColumnIfMissing(ctx, q, "features", "version", "INTEGER NOT NULL DEFAULT 1"); err != nil {
		return err
	}
	if err := addColumnIfMissing(ctx, q, "sessions", "feature_version_before", "INTEGER"); err != nil {
		return err
	}
	return addColumnIfMissing(ctx, q, "sessions", "feature_version_after", "INTEGER")
}

// migrateRemoveStory folds the legacy story column into details and rebuilds
// the features table without it. SQLite cannot drop a column that other
// tables reference, so the table is copied through a shadow table.
func migrateRemoveStory(ctx context.Context, q querier) error {
	ok, err := columnExists(ctx, q, "features", "story")
	if err != nil || !ok {
		return err
	}
	stmts := []string{
		`CREATE TABLE features_new (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			parent_id  TEXT REFERENCES features(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			details    TEXT,
			state      TEXT NOT NULL DEFAULT 'proposed',
			priority   INTEGER NOT NULL DEFAULT 0,
			version    INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`INSERT INTO features_new (id, project_id, parent_id, title, details, state, priority, version, created_at, updated_at)
		 SELECT id, project_id, parent_id, title,
		        CASE
		          WHEN story IS NULL OR story = '' THEN details
		          WHEN details IS NULL OR details = '' THEN story
		          ELSE story || char(10) || char(10) || details
		        END,
		        state, priority, version, created_at, updated_at
		 FROM features ORDER BY rowid`,
		`DROP TABLE features`,
		`ALTER TABLE features_new RENAME TO features`,
	}
	if err := execAll(ctx, q, stmts); err != nil {
		return err
	}
	return createFeatureIndexes(ctx, q)
}

func createFeatureIndexes(ctx context.Context, q querier) error {
	return execAll(ctx, q, []string{
		`CREATE INDEX IF NOT EXISTS idx_features_project ON features(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_features_parent ON features(parent_id)`,
	})
}

func execAll(ctx context.Context, q querier, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersions returns the applied migration versions in order.
func (s *Store) SchemaVersions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, storageErr("schema_versions", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storageErr("schema_versions", err)
		}
		out = append(out, v)
	}
	return out, storageErr("schema_versions", rows.Err())
}
