package store

import (
	"database/sql"
	"fmt"

	"github.com/HendryAvila/manifest/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const (
	projectCols   = "id, name, description, instructions, created_at, updated_at"
	directoryCols = "id, project_id, path, git_remote, is_primary, created_at"
	featureCols   = "id, project_id, parent_id, title, details, desired_details, state, priority, version, created_at, updated_at"
	sessionCols   = "id, feature_id, goal, status, feature_version_before, feature_version_after, created_at, completed_at"
	taskCols      = "id, session_id, parent_id, title, scope, status, agent_type, worktree_path, branch, created_at"
	historyCols   = "id, feature_id, session_id, summary, files_changed, author, details, created_at"
	noteCols      = "id, feature_id, task_id, content, files_changed, created_at"
)

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}

// decodeErr reports a persisted value that does not map to a known variant.
func decodeErr(op string, err error) error {
	return &StorageError{Op: op, Err: fmt.Errorf("decode: %w", err)}
}

func scanProject(r rowScanner) (*models.Project, error) {
	var (
		p            models.Project
		desc, instrs sql.NullString
	)
	if err := r.Scan(&p.ID, &p.Name, &desc, &instrs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = strPtr(desc)
	p.Instructions = strPtr(instrs)
	return &p, nil
}

func scanDirectory(r rowScanner) (*models.ProjectDirectory, error) {
	var (
		d       models.ProjectDirectory
		remote  sql.NullString
		primary int
	)
	if err := r.Scan(&d.ID, &d.ProjectID, &d.Path, &remote, &primary, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.GitRemote = strPtr(remote)
	d.IsPrimary = primary != 0
	return &d, nil
}

func scanFeature(r rowScanner) (*models.Feature, error) {
	var (
		f                        models.Feature
		parent, details, desired sql.NullString
		state                    string
	)
	if err := r.Scan(&f.ID, &f.ProjectID, &parent, &f.Title, &details, &desired, &state,
		&f.Priority, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := models.ParseFeatureState(state)
	if err != nil {
		return nil, decodeErr("scan_feature", err)
	}
	f.State = st
	f.ParentID = strPtr(parent)
	f.Details = strPtr(details)
	f.DesiredDetails = strPtr(desired)
	return &f, nil
}

func scanSession(r rowScanner) (*models.Session, error) {
	var (
		s             models.Session
		status        string
		before, after sql.NullInt64
		completedAt   sql.NullString
	)
	if err := r.Scan(&s.ID, &s.FeatureID, &s.Goal, &status, &before, &after,
		&s.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	st, err := models.ParseSessionStatus(status)
	if err != nil {
		return nil, decodeErr("scan_session", err)
	}
	s.Status = st
	s.FeatureVersionBefore = int64Ptr(before)
	s.FeatureVersionAfter = int64Ptr(after)
	s.CompletedAt = strPtr(completedAt)
	return &s, nil
}

func scanTask(r rowScanner) (*models.Task, error) {
	var (
		t                                models.Task
		status                           string
		parent, scope, agent, wt, branch sql.NullString
	)
	if err := r.Scan(&t.ID, &t.SessionID, &parent, &t.Title, &scope, &status,
		&agent, &wt, &branch, &t.CreatedAt); err != nil {
		return nil, err
	}
	st, err := models.ParseTaskStatus(status)
	if err != nil {
		return nil, decodeErr("scan_task", err)
	}
	at, err := models.ParseAgentType(agent.String)
	if err != nil {
		return nil, decodeErr("scan_task", err)
	}
	t.Status = st
	t.AgentType = at
	t.ParentID = strPtr(parent)
	t.Scope = strPtr(scope)
	t.WorktreePath = strPtr(wt)
	t.Branch = strPtr(branch)
	return &t, nil
}

func scanHistory(r rowScanner) (*models.FeatureHistory, error) {
	var (
		h                                models.FeatureHistory
		feature, session, author, detail sql.NullString
		files                            sql.NullString
	)
	if err := r.Scan(&h.ID, &feature, &session, &h.Summary, &files, &author,
		&detail, &h.CreatedAt); err != nil {
		return nil, err
	}
	list, err := decodeList("scan_history", files)
	if err != nil {
		return nil, err
	}
	h.FeatureID = strPtr(feature)
	h.SessionID = strPtr(session)
	h.Author = strPtr(author)
	h.Details = strPtr(detail)
	h.FilesChanged = list
	return &h, nil
}

func scanNote(r rowScanner) (*models.ImplementationNote, error) {
	var (
		n             models.ImplementationNote
		feature, task sql.NullString
		files         sql.NullString
	)
	if err := r.Scan(&n.ID, &feature, &task, &n.Content, &files, &n.CreatedAt); err != nil {
		return nil, err
	}
	list, err := decodeList("scan_note", files)
	if err != nil {
		return nil, err
	}
	n.FeatureID = strPtr(feature)
	n.TaskID = strPtr(task)
	n.FilesChanged = list
	return &n, nil
}

// collect drains rows through scan.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (*T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
