package store

import (
	"context"

	"github.com/HendryAvila/manifest/internal/models"
)

// FeatureHistory returns a feature's history entries, newest first.
func (s *Store) FeatureHistory(ctx context.Context, featureID string) ([]models.FeatureHistory, error) {
	var out []models.FeatureHistory
	err := s.withReadTx(ctx, "feature_history", func(q querier) error {
		if err := requireFeature(ctx, q, featureID); err != nil {
			return err
		}
		rows, err := q.QueryContext(ctx,
			"SELECT "+historyCols+" FROM feature_history WHERE feature_id = ? ORDER BY created_at DESC, rowid DESC",
			featureID)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanHistory)
		return err
	})
	return out, err
}

// AppendHistory records a history entry that did not come from a session
// squash, such as an import or a backfill.
func (s *Store) AppendHistory(ctx context.Context, in models.AppendHistoryInput) (*models.FeatureHistory, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if err := validJSON("details", in.Details); err != nil {
		return nil, err
	}
	h := models.FeatureHistory{
		ID:           newID(),
		FeatureID:    ptr(in.FeatureID),
		Summary:      in.Summary,
		FilesChanged: models.MergeFiles(in.FilesChanged),
		Author:       in.Author,
		Details:      in.Details,
		CreatedAt:    now(),
	}
	err := s.withWriteTx(ctx, "append_history", func(q querier) error {
		if err := requireFeature(ctx, q, in.FeatureID); err != nil {
			return err
		}
		return insertHistory(ctx, q, h)
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func insertHistory(ctx context.Context, q querier, h models.FeatureHistory) error {
	files, err := encodeList(h.FilesChanged)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO feature_history ("+historyCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		h.ID, nullableString(h.FeatureID), nullableString(h.SessionID), h.Summary, files,
		nullableString(h.Author), nullableString(h.Details), h.CreatedAt)
	return err
}
