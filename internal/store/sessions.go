package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/manifest/internal/models"
)

// CreateSession starts a session on a leaf feature and creates its initial
// tasks. The feature must exist, have no children and have no active session;
// the checks and the inserts share one write transaction, so either the
// session and every task exist afterwards or nothing does.
func (s *Store) CreateSession(ctx context.Context, in models.CreateSessionInput) (*models.SessionWithTasks, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var out *models.SessionWithTasks
	err := s.withWriteTx(ctx, "create_session", func(q querier) error {
		f, err := getFeature(ctx, q, in.FeatureID)
		if err != nil {
			return err
		}
		if f == nil {
			return notFound("feature", in.FeatureID)
		}
		leaf, err := isLeaf(ctx, q, f.ID)
		if err != nil {
			return err
		}
		if !leaf {
			return fmt.Errorf("%w: feature %q has children", ErrNotLeaf, f.ID)
		}
		active, err := activeSession(ctx, q, f.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w: feature %q has session %q", ErrSessionAlreadyActive, f.ID, active.ID)
		}

		sess := models.Session{
			ID:                   newID(),
			FeatureID:            f.ID,
			Goal:                 in.Goal,
			Status:               models.SessionActive,
			FeatureVersionBefore: ptr(f.Version),
			CreatedAt:            now(),
		}
		_, err = q.ExecContext(ctx,
			"INSERT INTO sessions (id, feature_id, goal, status, feature_version_before, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			sess.ID, sess.FeatureID, sess.Goal, string(sess.Status), *sess.FeatureVersionBefore, sess.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: feature %q", ErrSessionAlreadyActive, f.ID)
			}
			return err
		}

		tasks := make([]models.Task, 0, len(in.Tasks))
		for _, ti := range in.Tasks {
			t, err := insertTask(ctx, q, sess.ID, ti)
			if err != nil {
				return err
			}
			tasks = append(tasks, *t)
		}
		out = &models.SessionWithTasks{Session: sess, Tasks: tasks}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetSession returns a session by ID, or nil if it does not exist. Terminal
// sessions are removed by the squash, so only active sessions are found.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := getSession(ctx, s.db, id)
	return sess, storageErr("get_session", err)
}

func getSession(ctx context.Context, q querier, id string) (*models.Session, error) {
	sess, err := scanSession(q.QueryRowContext(ctx, "SELECT "+sessionCols+" FROM sessions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// ActiveSession returns the active session of a feature, or nil.
func (s *Store) ActiveSession(ctx context.Context, featureID string) (*models.Session, error) {
	var out *models.Session
	err := s.withReadTx(ctx, "active_session", func(q querier) error {
		if err := requireFeature(ctx, q, featureID); err != nil {
			return err
		}
		var err error
		out, err = activeSession(ctx, q, featureID)
		return err
	})
	return out, err
}

func activeSession(ctx context.Context, q querier, featureID string) (*models.Session, error) {
	sess, err := scanSession(q.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE feature_id = ? AND status = ?",
		featureID, string(models.SessionActive)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// SessionStatus returns a session with a summary of its feature and its tasks.
func (s *Store) SessionStatus(ctx context.Context, id string) (*models.SessionStatusView, error) {
	var out *models.SessionStatusView
	err := s.withReadTx(ctx, "session_status", func(q querier) error {
		sess, err := getSession(ctx, q, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return notFound("session", id)
		}
		f, err := getFeature(ctx, q, sess.FeatureID)
		if err != nil {
			return err
		}
		if f == nil {
			return notFound("feature", sess.FeatureID)
		}
		tasks, err := listTasks(ctx, q, id)
		if err != nil {
			return err
		}
		out = &models.SessionStatusView{
			Session: *sess,
			Feature: models.FeatureSummary{ID: f.ID, Title: f.Title, State: f.State},
			Tasks:   tasks,
		}
		return nil
	})
	return out, err
}

// CompleteSession squashes an active session into one feature history entry.
// In a single transaction it decides the outcome from the task statuses,
// advances the feature on success, records the history row with a per-task
// breakdown, and deletes the tasks (with their notes) and the session.
func (s *Store) CompleteSession(ctx context.Context, id string, in models.CompleteSessionInput) (*models.CompletionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var out *models.CompletionResult
	err := s.withWriteTx(ctx, "complete_session", func(q querier) error {
		sess, err := getSession(ctx, q, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return notFound("session", id)
		}
		if sess.Status != models.SessionActive {
			return fmt.Errorf("%w: session %q is %s", ErrSessionNotActive, id, sess.Status)
		}
		f, err := getFeature(ctx, q, sess.FeatureID)
		if err != nil {
			return err
		}
		if f == nil {
			return notFound("feature", sess.FeatureID)
		}
		tasks, err := listTasks(ctx, q, id)
		if err != nil {
			return err
		}
		notes, err := sessionTaskNotes(ctx, q, id)
		if err != nil {
			return err
		}

		ts := now()
		outcome := models.SessionOutcome(tasks)
		if outcome == models.SessionCompleted {
			state := models.FeatureImplemented
			if in.FeatureState != nil {
				state = *in.FeatureState
			}
			if _, err := newUpdate("features").
				set("state", string(state)).
				set("updated_at", ts).
				setRaw("version = version + 1").
				exec(ctx, q, f.ID); err != nil {
				return err
			}
		}
		if f, err = getFeature(ctx, q, f.ID); err != nil {
			return err
		}

		sess.Status = outcome
		sess.CompletedAt = ptr(ts)
		sess.FeatureVersionAfter = ptr(f.Version)

		byTask := make(map[string][]models.ImplementationNote)
		noteFiles := make([][]string, 0, len(notes))
		for _, n := range notes {
			byTask[*n.TaskID] = append(byTask[*n.TaskID], n)
			noteFiles = append(noteFiles, n.FilesChanged)
		}
		details, err := json.Marshal(models.BuildHistoryDetails(*sess, tasks, byTask, in.Commits))
		if err != nil {
			return fmt.Errorf("encode history details: %w", err)
		}

		h := models.FeatureHistory{
			ID:           newID(),
			FeatureID:    ptr(f.ID),
			SessionID:    ptr(sess.ID),
			Summary:      in.Summary,
			FilesChanged: models.MergeFiles(append([][]string{in.FilesChanged}, noteFiles...)...),
			Author:       in.Author,
			Details:      ptr(string(details)),
			CreatedAt:    ts,
		}
		if err := insertHistory(ctx, q, h); err != nil {
			return err
		}

		// Task notes cascade with their tasks.
		if _, err := q.ExecContext(ctx, "DELETE FROM tasks WHERE session_id = ?", id); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
			return err
		}

		out = &models.CompletionResult{Session: *sess, History: h, Feature: *f}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("store: session squashed",
		"session", out.Session.ID,
		"feature", out.Feature.ID,
		"outcome", out.Session.Status,
		"history", out.History.ID)
	return out, nil
}
