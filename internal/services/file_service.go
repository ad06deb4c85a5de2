package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dateja/sqlitedb/internal/database"
)

// ErrNotFound is returned when no metadata is recorded for a file.
var ErrNotFound = errors.New("file metadata not found")

// FileService records and looks up bookkeeping for ingested files.
type FileService struct {
	repo *database.FileRepository
}

// NewFileService creates a new FileService over the metadata database.
func NewFileService(ctx *database.Context) *FileService {
	return &FileService{repo: database.NewFileRepository(ctx)}
}

// Record stores metadata for a freshly ingested file.
func (s *FileService) Record(ctx context.Context, record database.FileRecord) error {
	if record.FileID == "" {
		return fmt.Errorf("record file metadata: empty file id")
	}
	if record.Kind == "" {
		return fmt.Errorf("record file metadata %s: empty kind", record.FileID)
	}
	return s.repo.Save(ctx, record)
}

// Get returns the metadata recorded for fileID.
func (s *FileService) Get(ctx context.Context, fileID string) (*database.FileRecord, error) {
	record, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	return record, nil
}

// ListByProject returns the files uploaded for a project, oldest first.
func (s *FileService) ListByProject(ctx context.Context, projectID string) ([]database.FileRecord, error) {
	return s.repo.ListByProject(ctx, projectID)
}

// Forget drops the metadata of fileID. Missing records are not an error.
func (s *FileService) Forget(ctx context.Context, fileID string) error {
	if err := s.repo.Delete(ctx, fileID); err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	return nil
}
