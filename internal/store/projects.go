package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/manifest/internal/models"
)

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, in models.CreateProjectInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	ts := now()
	p := &models.Project{
		ID:           newID(),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Instructions: in.Instructions,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	err := s.withWriteTx(ctx, "create_project", func(q querier) error {
		_, err := q.ExecContext(ctx,
			"INSERT INTO projects ("+projectCols+") VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, p.Name, nullableString(p.Description), nullableString(p.Instructions), p.CreatedAt, p.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns a project by ID, or nil if it does not exist.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := getProject(ctx, s.db, id)
	return p, storageErr("get_project", err)
}

func getProject(ctx context.Context, q querier, id string) (*models.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, "SELECT "+projectCols+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectCols+" FROM projects ORDER BY name, created_at")
	if err != nil {
		return nil, storageErr("list_projects", err)
	}
	out, err := collect(rows, scanProject)
	return out, storageErr("list_projects", err)
}

// UpdateProject applies a partial update. Only non-nil fields are written.
func (s *Store) UpdateProject(ctx context.Context, id string, in models.UpdateProjectInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var out *models.Project
	err := s.withWriteTx(ctx, "update_project", func(q querier) error {
		b := newUpdate("projects")
		if in.Name != nil {
			b.set("name", strings.TrimSpace(*in.Name))
		}
		if in.Description != nil {
			b.set("description", *in.Description)
		}
		if in.Instructions != nil {
			b.set("instructions", *in.Instructions)
		}
		if !b.empty() {
			b.set("updated_at", now())
			ok, err := b.exec(ctx, q, id)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("project", id)
			}
		}
		p, err := getProject(ctx, q, id)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound("project", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProject removes a project. Directories and features cascade; history
// rows of its features survive with a null feature reference.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.withWriteTx(ctx, "delete_project", func(q querier) error {
		res, err := q.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("project", id)
		}
		return nil
	})
}

// ─── Directories ─────────────────────────────────────────────────────────────

// AddDirectory binds a path to a project. When the new directory is primary,
// any existing primary of that project is demoted in the same transaction.
func (s *Store) AddDirectory(ctx context.Context, projectID string, in models.AddDirectoryInput) (*models.ProjectDirectory, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	d := &models.ProjectDirectory{
		ID:        newID(),
		ProjectID: projectID,
		Path:      cleanPath(in.Path),
		GitRemote: in.GitRemote,
		IsPrimary: in.IsPrimary,
		CreatedAt: now(),
	}
	err := s.withWriteTx(ctx, "add_directory", func(q querier) error {
		p, err := getProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound("project", projectID)
		}
		if d.IsPrimary {
			if _, err := q.ExecContext(ctx,
				"UPDATE project_directories SET is_primary = 0 WHERE project_id = ?", projectID); err != nil {
				return err
			}
		}
		_, err = q.ExecContext(ctx,
			"INSERT INTO project_directories ("+directoryCols+") VALUES (?, ?, ?, ?, ?, ?)",
			d.ID, d.ProjectID, d.Path, nullableString(d.GitRemote), boolInt(d.IsPrimary), d.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RemoveDirectory deletes a directory binding.
func (s *Store) RemoveDirectory(ctx context.Context, id string) error {
	return s.withWriteTx(ctx, "remove_directory", func(q querier) error {
		res, err := q.ExecContext(ctx, "DELETE FROM project_directories WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("directory", id)
		}
		return nil
	})
}

// ListDirectories returns a project's directories, primary first.
func (s *Store) ListDirectories(ctx context.Context, projectID string) ([]models.ProjectDirectory, error) {
	out, err := listDirectories(ctx, s.db, projectID)
	return out, storageErr("list_directories", err)
}

func listDirectories(ctx context.Context, q querier, projectID string) ([]models.ProjectDirectory, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+directoryCols+" FROM project_directories WHERE project_id = ? ORDER BY is_primary DESC, path",
		projectID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDirectory)
}

// GetProjectWithDirectories returns a project and its directories, or nil.
func (s *Store) GetProjectWithDirectories(ctx context.Context, id string) (*models.ProjectWithDirectories, error) {
	var out *models.ProjectWithDirectories
	err := s.withReadTx(ctx, "get_project_with_directories", func(q querier) error {
		p, err := getProject(ctx, q, id)
		if err != nil || p == nil {
			return err
		}
		dirs, err := listDirectories(ctx, q, id)
		if err != nil {
			return err
		}
		out = &models.ProjectWithDirectories{Project: *p, Directories: dirs}
		return nil
	})
	return out, err
}

// FindProjectByDirectory returns the project owning path: a registered
// directory equal to path or an ancestor of it. The longest match wins.
// Returns nil when no directory matches.
func (s *Store) FindProjectByDirectory(ctx context.Context, path string) (*models.ProjectWithDirectories, error) {
	path = cleanPath(path)
	rows, err := s.db.QueryContext(ctx,
		"SELECT project_id, path FROM project_directories ORDER BY length(path) DESC, path")
	if err != nil {
		return nil, storageErr("find_project_by_directory", err)
	}

	var projectID string
	func() {
		defer rows.Close()
		for rows.Next() {
			var pid, dir string
			if err = rows.Scan(&pid, &dir); err != nil {
				return
			}
			if pathWithin(path, dir) {
				projectID = pid
				return
			}
		}
		err = rows.Err()
	}()
	if err != nil {
		return nil, storageErr("find_project_by_directory", err)
	}
	if projectID == "" {
		return nil, nil
	}
	return s.GetProjectWithDirectories(ctx, projectID)
}

func pathWithin(path, dir string) bool {
	if path == dir {
		return true
	}
	if dir == string(filepath.Separator) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

func cleanPath(p string) string {
	return filepath.Clean(strings.TrimSpace(p))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
