package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/manifest/internal/models"
)

// siblingOrder is the canonical ordering of features that share a parent.
const siblingOrder = " ORDER BY priority ASC, created_at ASC, rowid ASC"

// CreateFeature inserts a feature. The project must exist; a parent, when
// given, must exist in the same project and must not be the subject of an
// active session, since gaining a child would end its leaf status.
func (s *Store) CreateFeature(ctx context.Context, in models.CreateFeatureInput) (*models.Feature, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	ts := now()
	f := &models.Feature{
		ID:             newID(),
		ProjectID:      in.ProjectID,
		ParentID:       in.ParentID,
		Title:          strings.TrimSpace(in.Title),
		Details:        in.Details,
		DesiredDetails: in.DesiredDetails,
		State:          models.FeatureProposed,
		Version:        1,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if in.State != nil {
		f.State = *in.State
	}
	if in.Priority != nil {
		f.Priority = *in.Priority
	}
	if f.DesiredDetails != nil && *f.DesiredDetails == "" {
		f.DesiredDetails = nil
	}

	err := s.withWriteTx(ctx, "create_feature", func(q querier) error {
		p, err := getProject(ctx, q, in.ProjectID)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound("project", in.ProjectID)
		}
		if in.ParentID != nil {
			if err := checkParent(ctx, q, in.ProjectID, *in.ParentID); err != nil {
				return err
			}
		}
		return insertFeature(ctx, q, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func insertFeature(ctx context.Context, q querier, f *models.Feature) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO features ("+featureCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		f.ID, f.ProjectID, nullableString(f.ParentID), f.Title, nullableString(f.Details),
		nullableString(f.DesiredDetails), string(f.State), f.Priority, f.Version, f.CreatedAt, f.UpdatedAt)
	return err
}

// CreateFeatureTree creates a planned forest of features under parentID, or
// as roots when parentID is nil. Planned features start specified. Either the
// whole forest is created or nothing is. The created features are returned
// depth-first, each parent before its children.
func (s *Store) CreateFeatureTree(ctx context.Context, projectID string, parentID *string, features []models.ProposedFeature) ([]models.Feature, error) {
	if projectID == "" {
		return nil, invalidInput(errors.New("'project_id' is required"))
	}
	if len(features) == 0 {
		return nil, invalidInput(errors.New("at least one proposed feature is required"))
	}
	for _, p := range features {
		if err := p.Validate(); err != nil {
			return nil, invalidInput(err)
		}
	}

	out := make([]models.Feature, 0, models.CountProposed(features))
	err := s.withWriteTx(ctx, "create_feature_tree", func(q querier) error {
		out = out[:0]
		if err := requireProject(ctx, q, projectID); err != nil {
			return err
		}
		if parentID != nil {
			if err := checkParent(ctx, q, projectID, *parentID); err != nil {
				return err
			}
		}

		var create func(parent *string, nodes []models.ProposedFeature) error
		create = func(parent *string, nodes []models.ProposedFeature) error {
			for _, n := range nodes {
				ts := now()
				f := &models.Feature{
					ID:        newID(),
					ProjectID: projectID,
					ParentID:  parent,
					Title:     strings.TrimSpace(n.Title),
					Details:   n.Details,
					State:     models.FeatureSpecified,
					Priority:  n.Priority,
					Version:   1,
					CreatedAt: ts,
					UpdatedAt: ts,
				}
				if err := insertFeature(ctx, q, f); err != nil {
					return err
				}
				out = append(out, *f)
				if err := create(&f.ID, n.Children); err != nil {
					return err
				}
			}
			return nil
		}
		return create(parentID, features)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkParent validates parentID as a parent for a feature in projectID.
func checkParent(ctx context.Context, q querier, projectID, parentID string) error {
	parent, err := getFeature(ctx, q, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("%w: parent %q does not exist", ErrInvalidParent, parentID)
	}
	if parent.ProjectID != projectID {
		return fmt.Errorf("%w: parent %q belongs to another project", ErrInvalidParent, parentID)
	}
	active, err := activeSession(ctx, q, parentID)
	if err != nil {
		return err
	}
	if active != nil {
		return fmt.Errorf("%w: parent %q has an active session", ErrInvalidParent, parentID)
	}
	return nil
}

// GetFeature returns a feature by ID, or nil if it does not exist.
func (s *Store) GetFeature(ctx context.Context, id string) (*models.Feature, error) {
	f, err := getFeature(ctx, s.db, id)
	return f, storageErr("get_feature", err)
}

func getFeature(ctx context.Context, q querier, id string) (*models.Feature, error) {
	f, err := scanFeature(q.QueryRowContext(ctx, "SELECT "+featureCols+" FROM features WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

// ListFeatures returns every feature of a project in sibling order.
func (s *Store) ListFeatures(ctx context.Context, projectID string) ([]models.Feature, error) {
	var out []models.Feature
	err := s.withReadTx(ctx, "list_features", func(q querier) error {
		if err := requireProject(ctx, q, projectID); err != nil {
			return err
		}
		var err error
		out, err = queryFeatures(ctx, q, "project_id = ?", projectID)
		return err
	})
	return out, err
}

// ListRoots returns the parentless features of a project.
func (s *Store) ListRoots(ctx context.Context, projectID string) ([]models.Feature, error) {
	var out []models.Feature
	err := s.withReadTx(ctx, "list_roots", func(q querier) error {
		if err := requireProject(ctx, q, projectID); err != nil {
			return err
		}
		var err error
		out, err = queryFeatures(ctx, q, "project_id = ? AND parent_id IS NULL", projectID)
		return err
	})
	return out, err
}

// ListChildren returns the direct children of a feature.
func (s *Store) ListChildren(ctx context.Context, featureID string) ([]models.Feature, error) {
	var out []models.Feature
	err := s.withReadTx(ctx, "list_children", func(q querier) error {
		if err := requireFeature(ctx, q, featureID); err != nil {
			return err
		}
		var err error
		out, err = queryFeatures(ctx, q, "parent_id = ?", featureID)
		return err
	})
	return out, err
}

func queryFeatures(ctx context.Context, q querier, where string, args ...any) ([]models.Feature, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+featureCols+" FROM features WHERE "+where+siblingOrder, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFeature)
}

// IsLeaf reports whether no feature names id as its parent. It is always
// computed from the live table.
func (s *Store) IsLeaf(ctx context.Context, id string) (bool, error) {
	var leaf bool
	err := s.withReadTx(ctx, "is_leaf", func(q querier) error {
		if err := requireFeature(ctx, q, id); err != nil {
			return err
		}
		var err error
		leaf, err = isLeaf(ctx, q, id)
		return err
	})
	return leaf, err
}

func isLeaf(ctx context.Context, q querier, id string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM features WHERE parent_id = ?)", id).Scan(&exists)
	return exists == 0, err
}

// UpdateFeature applies a partial update; only non-nil fields are written and
// every applied update bumps the feature version. A non-nil ParentID moves the
// feature: an empty string makes it a root, otherwise the new parent must be
// in the same project, must not be the feature or one of its descendants, and
// must not have an active session.
func (s *Store) UpdateFeature(ctx context.Context, id string, in models.UpdateFeatureInput) (*models.Feature, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var out *models.Feature
	err := s.withWriteTx(ctx, "update_feature", func(q querier) error {
		cur, err := getFeature(ctx, q, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return notFound("feature", id)
		}
		if in.IsEmpty() {
			out = cur
			return nil
		}

		b := newUpdate("features")
		if in.ParentID != nil {
			if *in.ParentID == "" {
				b.set("parent_id", nil)
			} else {
				if err := checkReparent(ctx, q, cur, *in.ParentID); err != nil {
					return err
				}
				b.set("parent_id", *in.ParentID)
			}
		}
		if in.Title != nil {
			b.set("title", strings.TrimSpace(*in.Title))
		}
		if in.Details != nil {
			b.set("details", *in.Details)
		}
		if in.DesiredDetails != nil {
			b.set("desired_details", nullIfEmpty(*in.DesiredDetails))
		}
		if in.State != nil {
			b.set("state", string(*in.State))
		}
		if in.Priority != nil {
			b.set("priority", *in.Priority)
		}
		b.set("updated_at", now()).setRaw("version = version + 1")
		if _, err := b.exec(ctx, q, id); err != nil {
			return err
		}

		out, err = getFeature(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkReparent(ctx context.Context, q querier, f *models.Feature, parentID string) error {
	if parentID == f.ID {
		return fmt.Errorf("%w: a feature cannot be its own parent", ErrInvalidParent)
	}
	if err := checkParent(ctx, q, f.ProjectID, parentID); err != nil {
		return err
	}
	// Walk up from the new parent; meeting f means the move would close a cycle.
	seen := map[string]bool{}
	cur := parentID
	for cur != "" && !seen[cur] {
		if cur == f.ID {
			return fmt.Errorf("%w: %q is a descendant of %q", ErrInvalidParent, parentID, f.ID)
		}
		seen[cur] = true
		var parent sql.NullString
		err := q.QueryRowContext(ctx, "SELECT parent_id FROM features WHERE id = ?", cur).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return err
		}
		cur = parent.String
	}
	return nil
}

// DeleteFeature removes a feature. Descendants, their sessions, tasks and
// notes cascade; history rows survive with a null feature reference.
func (s *Store) DeleteFeature(ctx context.Context, id string) error {
	return s.withWriteTx(ctx, "delete_feature", func(q querier) error {
		res, err := q.ExecContext(ctx, "DELETE FROM features WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("feature", id)
		}
		return nil
	})
}

func requireProject(ctx context.Context, q querier, id string) error {
	var exists int
	if err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return notFound("project", id)
	}
	return nil
}

func requireFeature(ctx context.Context, q querier, id string) error {
	var exists int
	if err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM features WHERE id = ?)", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return notFound("feature", id)
	}
	return nil
}
