package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"steelloop/internal/domain"
	"steelloop/internal/lifecycle"
	"steelloop/internal/ports"
)

var (
	_ ports.ProjectRepository = (*Store)(nil)
	_ ports.FileRepository    = (*Store)(nil)
)

var projectColumns = []string{"id", "owner_id", "name", "status", "source_folder_id", "source_provider", "created_at", "updated_at"}

func scanProject(row rowScanner) (domain.Project, error) {
	var (
		p                  domain.Project
		status             string
		folder, provider   sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &status, &folder, &provider, &createdAt, &updated); err != nil {
		return domain.Project{}, err
	}
	p.Status = domain.ProjectStatus(status)
	p.SourceFolderID = folder.String
	p.SourceProvider = domain.Provider(provider.String)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, project domain.Project) error {
	if project.ID == "" {
		return fmt.Errorf("create project: id is required")
	}
	ts := now()
	_, err := s.exec(ctx, sq.Insert("projects").
		Columns(projectColumns...).
		Values(project.ID, project.OwnerID, project.Name, string(project.Status),
			nullableString(project.SourceFolderID), nullableString(string(project.SourceProvider)), ts, ts))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject loads a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row, err := s.queryRow(ctx, sq.Select(projectColumns...).From("projects").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Project{}, err
	}
	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, notFound("project", id, err)
	}
	return p, nil
}

// ListProjects returns a user's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	rows, err := s.query(ctx, sq.Select(projectColumns...).From("projects").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return collect(rows, scanProject)
}

// LinkSourceFolder attaches a cloud folder to a project.
func (s *Store) LinkSourceFolder(ctx context.Context, id string, provider domain.Provider, folderID string) error {
	res, err := s.exec(ctx, sq.Update("projects").
		Set("source_folder_id", folderID).
		Set("source_provider", string(provider)).
		Set("updated_at", now()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("link source folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// TransitionProject moves a project along its lifecycle.
func (s *Store) TransitionProject(ctx context.Context, id string, to domain.ProjectStatus) error {
	return s.transition(ctx, "projects", "project", id, string(to), toStrings(lifecycle.ProjectSources(to)))
}

var fileColumns = []string{"id", "project_id", "file_name", "file_type", "cloud_file_id", "provider", "extracted_text", "created_at", "updated_at"}

func scanFile(row rowScanner) (domain.ProjectFile, error) {
	var (
		f                  domain.ProjectFile
		fileType, provider string
		text               sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&f.ID, &f.ProjectID, &f.FileName, &fileType, &f.CloudFileID, &provider, &text, &createdAt, &updated); err != nil {
		return domain.ProjectFile{}, err
	}
	f.FileType = domain.FileType(fileType)
	f.Provider = domain.Provider(provider)
	f.ExtractedText = stringPtr(text)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updated)
	return f, nil
}

// UpsertFile inserts a file or refreshes its name and type on the natural key
// (project, cloud file id, provider). Extracted text is never overwritten here.
func (s *Store) UpsertFile(ctx context.Context, file domain.ProjectFile) (domain.ProjectFile, error) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	ts := now()
	_, err := s.exec(ctx, sq.Insert("project_files").
		Columns(fileColumns...).
		Values(file.ID, file.ProjectID, file.FileName, string(file.FileType), file.CloudFileID,
			string(file.Provider), file.ExtractedText, ts, ts).
		Suffix(`ON CONFLICT (project_id, cloud_file_id, provider) DO UPDATE SET
			file_name = excluded.file_name,
			file_type = excluded.file_type,
			updated_at = excluded.updated_at`))
	if err != nil {
		return domain.ProjectFile{}, fmt.Errorf("upsert project file: %w", err)
	}

	row, err := s.queryRow(ctx, sq.Select(fileColumns...).From("project_files").Where(sq.Eq{
		"project_id":    file.ProjectID,
		"cloud_file_id": file.CloudFileID,
		"provider":      string(file.Provider),
	}))
	if err != nil {
		return domain.ProjectFile{}, err
	}
	stored, err := scanFile(row)
	if err != nil {
		return domain.ProjectFile{}, fmt.Errorf("reload project file: %w", err)
	}
	return stored, nil
}

// ListFiles returns a project's files in discovery order.
func (s *Store) ListFiles(ctx context.Context, projectID string) ([]domain.ProjectFile, error) {
	rows, err := s.query(ctx, sq.Select(fileColumns...).From("project_files").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("created_at", "file_name"))
	if err != nil {
		return nil, fmt.Errorf("list project files: %w", err)
	}
	return collect(rows, scanFile)
}

// SetExtractedText stores the text of a file.
func (s *Store) SetExtractedText(ctx context.Context, fileID, text string) error {
	res, err := s.exec(ctx, sq.Update("project_files").
		Set("extracted_text", text).
		Set("updated_at", now()).
		Where(sq.Eq{"id": fileID}))
	if err != nil {
		return fmt.Errorf("set extracted text: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project file %s: %w", fileID, domain.ErrNotFound)
	}
	return nil
}
