package store

import (
	"context"

	"github.com/HendryAvila/manifest/internal/models"
)

// forest indexes one project's features by parent so trees can be assembled
// from a single query.
type forest struct {
	byID     map[string]models.Feature
	children map[string][]string
	roots    []string
}

func newForest(features []models.Feature) *forest {
	fr := &forest{
		byID:     make(map[string]models.Feature, len(features)),
		children: make(map[string][]string),
	}
	for _, f := range features {
		fr.byID[f.ID] = f
	}
	// features arrive in sibling order, so appending keeps each list ordered.
	for _, f := range features {
		if f.ParentID == nil {
			fr.roots = append(fr.roots, f.ID)
			continue
		}
		fr.children[*f.ParentID] = append(fr.children[*f.ParentID], f.ID)
	}
	return fr
}

// build assembles the subtree under id. visited guards against cycles in
// corrupted data: a node is emitted at most once.
func (fr *forest) build(id string, visited map[string]bool) *models.TreeNode {
	if visited[id] {
		return nil
	}
	visited[id] = true
	node := &models.TreeNode{Feature: fr.byID[id], Children: []*models.TreeNode{}}
	for _, cid := range fr.children[id] {
		if child := fr.build(cid, visited); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// ProjectTree returns the full feature forest of a project, roots and
// children in sibling order.
func (s *Store) ProjectTree(ctx context.Context, projectID string) ([]*models.TreeNode, error) {
	var features []models.Feature
	err := s.withReadTx(ctx, "project_tree", func(q querier) error {
		if err := requireProject(ctx, q, projectID); err != nil {
			return err
		}
		var err error
		features, err = queryFeatures(ctx, q, "project_id = ?", projectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	fr := newForest(features)
	visited := make(map[string]bool, len(features))
	out := make([]*models.TreeNode, 0, len(fr.roots))
	for _, id := range fr.roots {
		if node := fr.build(id, visited); node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

// FeatureTree returns the subtree rooted at featureID.
func (s *Store) FeatureTree(ctx context.Context, featureID string) (*models.TreeNode, error) {
	var features []models.Feature
	err := s.withReadTx(ctx, "feature_tree", func(q querier) error {
		f, err := getFeature(ctx, q, featureID)
		if err != nil {
			return err
		}
		if f == nil {
			return notFound("feature", featureID)
		}
		features, err = queryFeatures(ctx, q, "project_id = ?", f.ProjectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newForest(features).build(featureID, map[string]bool{}), nil
}
