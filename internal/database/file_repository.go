package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqldb "github.com/dateja/sqlitedb/internal/database/sqlc"
)

type FileRepository struct {
	ctx *Context
}

func NewFileRepository(dbCtx *Context) *FileRepository {
	return &FileRepository{ctx: dbCtx}
}

// Save inserts the record or replaces the one stored for the same file id.
func (r *FileRepository) Save(ctx context.Context, record FileRecord) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return fmt.Errorf("file repository: missing database context")
	}

	return queries.UpsertFileMetadata(ctx, sqldb.UpsertFileMetadataParams{
		FileUuid:    record.FileID,
		ProjectUuid: nullString(record.ProjectID),
		UserUuid:    nullString(record.UserID),
		FileName:    nullString(record.FileName),
		FileKind:    record.Kind,
		FileSize:    record.SizeBytes,
	})
}

func (r *FileRepository) FindByID(ctx context.Context, fileID string) (*FileRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("file repository: missing database context")
	}

	row, err := queries.FindFileMetadata(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record := mapFileRow(row)
	return &record, nil
}

func (r *FileRepository) ListByProject(ctx context.Context, projectID string) ([]FileRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("file repository: missing database context")
	}

	rows, err := queries.ListFileMetadataByProject(ctx, nullString(projectID))
	if err != nil {
		return nil, err
	}

	result := make([]FileRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, mapFileRow(row))
	}
	return result, nil
}

// Delete removes the record for fileID, returning ErrNotFound when none exists.
func (r *FileRepository) Delete(ctx context.Context, fileID string) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return fmt.Errorf("file repository: missing database context")
	}

	n, err := queries.DeleteFileMetadata(ctx, fileID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	return nil
}
