package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/manifest/internal/models"
)

// CreateTask adds a pending task to an active session. A parent task, when
// given, must belong to the same session.
func (s *Store) CreateTask(ctx context.Context, sessionID string, in models.CreateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var out *models.Task
	err := s.withWriteTx(ctx, "create_task", func(q querier) error {
		if err := requireActiveSession(ctx, q, sessionID); err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := getTask(ctx, q, *in.ParentID)
			if err != nil {
				return err
			}
			if parent == nil || parent.SessionID != sessionID {
				return notFound("task", *in.ParentID)
			}
		}
		var err error
		out, err = insertTask(ctx, q, sessionID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertTask(ctx context.Context, q querier, sessionID string, in models.CreateTaskInput) (*models.Task, error) {
	t := &models.Task{
		ID:        newID(),
		SessionID: sessionID,
		ParentID:  in.ParentID,
		Title:     strings.TrimSpace(in.Title),
		Scope:     in.Scope,
		Status:    models.TaskPending,
		AgentType: in.AgentType,
		CreatedAt: now(),
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO tasks ("+taskCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.SessionID, nullableString(t.ParentID), t.Title, nullableString(t.Scope),
		string(t.Status), agentValue(t.AgentType), nil, nil, t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTask returns a task by ID, or nil if it does not exist.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := getTask(ctx, s.db, id)
	return t, storageErr("get_task", err)
}

func getTask(ctx context.Context, q querier, id string) (*models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, "SELECT "+taskCols+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListTasks returns a session's tasks in creation order.
func (s *Store) ListTasks(ctx context.Context, sessionID string) ([]models.Task, error) {
	var out []models.Task
	err := s.withReadTx(ctx, "list_tasks", func(q querier) error {
		sess, err := getSession(ctx, q, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return notFound("session", sessionID)
		}
		out, err = listTasks(ctx, q, sessionID)
		return err
	})
	return out, err
}

func listTasks(ctx context.Context, q querier, sessionID string) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE session_id = ? ORDER BY created_at ASC, rowid ASC", sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTask)
}

// UpdateTask records an agent's report on a task. A status change must be a
// legal edge of pending -> running -> completed | failed, and the owning
// session must still be active.
func (s *Store) UpdateTask(ctx context.Context, id string, in models.UpdateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var out *models.Task
	err := s.withWriteTx(ctx, "update_task", func(q querier) error {
		cur, err := getTask(ctx, q, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return notFound("task", id)
		}
		if err := requireActiveSession(ctx, q, cur.SessionID); err != nil {
			return err
		}
		if in.IsEmpty() {
			out = cur
			return nil
		}

		b := newUpdate("tasks")
		if in.Status != nil {
			if err := models.CanTransitionTask(cur.Status, *in.Status); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
			}
			b.set("status", string(*in.Status))
		}
		if in.AgentType != nil {
			b.set("agent_type", agentValue(*in.AgentType))
		}
		if in.WorktreePath != nil {
			b.set("worktree_path", *in.WorktreePath)
		}
		if in.Branch != nil {
			b.set("branch", *in.Branch)
		}
		if _, err := b.exec(ctx, q, id); err != nil {
			return err
		}
		out, err = getTask(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireActiveSession(ctx context.Context, q querier, sessionID string) error {
	sess, err := getSession(ctx, q, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return notFound("session", sessionID)
	}
	if sess.Status != models.SessionActive {
		return fmt.Errorf("%w: session %q is %s", ErrSessionNotActive, sessionID, sess.Status)
	}
	return nil
}

func agentValue(a models.AgentType) any {
	if a == models.AgentNone {
		return nil
	}
	return string(a)
}
