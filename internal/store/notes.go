package store

import (
	"context"

	"github.com/HendryAvila/manifest/internal/models"
)

// AddNote attaches a note to a task of an active session or to a feature.
// Task notes are folded into the history entry when the session is squashed.
func (s *Store) AddNote(ctx context.Context, in models.AddNoteInput) (*models.ImplementationNote, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	n := models.ImplementationNote{
		ID:           newID(),
		FeatureID:    in.FeatureID,
		TaskID:       in.TaskID,
		Content:      in.Content,
		FilesChanged: models.MergeFiles(in.FilesChanged),
		CreatedAt:    now(),
	}
	err := s.withWriteTx(ctx, "add_note", func(q querier) error {
		if in.TaskID != nil {
			t, err := getTask(ctx, q, *in.TaskID)
			if err != nil {
				return err
			}
			if t == nil {
				return notFound("task", *in.TaskID)
			}
			if err := requireActiveSession(ctx, q, t.SessionID); err != nil {
				return err
			}
		} else if err := requireFeature(ctx, q, *in.FeatureID); err != nil {
			return err
		}

		files, err := encodeList(n.FilesChanged)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			"INSERT INTO implementation_notes ("+noteCols+") VALUES (?, ?, ?, ?, ?, ?)",
			n.ID, nullableString(n.FeatureID), nullableString(n.TaskID), n.Content, files, n.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListFeatureNotes returns a feature's notes in creation order.
func (s *Store) ListFeatureNotes(ctx context.Context, featureID string) ([]models.ImplementationNote, error) {
	var out []models.ImplementationNote
	err := s.withReadTx(ctx, "list_feature_notes", func(q querier) error {
		if err := requireFeature(ctx, q, featureID); err != nil {
			return err
		}
		var err error
		out, err = queryNotes(ctx, q, "feature_id = ?", featureID)
		return err
	})
	return out, err
}

// ListTaskNotes returns a task's notes in creation order.
func (s *Store) ListTaskNotes(ctx context.Context, taskID string) ([]models.ImplementationNote, error) {
	var out []models.ImplementationNote
	err := s.withReadTx(ctx, "list_task_notes", func(q querier) error {
		t, err := getTask(ctx, q, taskID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("task", taskID)
		}
		out, err = queryNotes(ctx, q, "task_id = ?", taskID)
		return err
	})
	return out, err
}

// sessionTaskNotes returns the notes of every task in a session.
func sessionTaskNotes(ctx context.Context, q querier, sessionID string) ([]models.ImplementationNote, error) {
	return queryNotes(ctx, q, "task_id IN (SELECT id FROM tasks WHERE session_id = ?)", sessionID)
}

func queryNotes(ctx context.Context, q querier, where string, args ...any) ([]models.ImplementationNote, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+noteCols+" FROM implementation_notes WHERE "+where+" ORDER BY created_at ASC, rowid ASC", args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNote)
}
