package sqldb

import (
	"context"
	"database/sql"
)

const upsertFileMetadata = `INSERT INTO file_metadata (file_uuid, project_uuid, user_uuid, file_name, file_kind, file_size)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (file_uuid) DO UPDATE SET
    project_uuid = excluded.project_uuid,
    user_uuid    = excluded.user_uuid,
    file_name    = excluded.file_name,
    file_kind    = excluded.file_kind,
    file_size    = excluded.file_size`

type UpsertFileMetadataParams struct {
	FileUuid    string
	ProjectUuid sql.NullString
	UserUuid    sql.NullString
	FileName    sql.NullString
	FileKind    string
	FileSize    int64
}

func (q *Queries) UpsertFileMetadata(ctx context.Context, arg UpsertFileMetadataParams) error {
	_, err := q.db.ExecContext(ctx, upsertFileMetadata,
		arg.FileUuid,
		arg.ProjectUuid,
		arg.UserUuid,
		arg.FileName,
		arg.FileKind,
		arg.FileSize,
	)
	return err
}

const findFileMetadata = `SELECT id, file_uuid, project_uuid, user_uuid, file_name, file_kind, file_size, created_at
FROM file_metadata
WHERE file_uuid = ?`

func (q *Queries) FindFileMetadata(ctx context.Context, fileUuid string) (FileMetadatum, error) {
	row := q.db.QueryRowContext(ctx, findFileMetadata, fileUuid)
	var i FileMetadatum
	err := row.Scan(
		&i.ID,
		&i.FileUuid,
		&i.ProjectUuid,
		&i.UserUuid,
		&i.FileName,
		&i.FileKind,
		&i.FileSize,
		&i.CreatedAt,
	)
	return i, err
}

const listFileMetadataByProject = `SELECT id, file_uuid, project_uuid, user_uuid, file_name, file_kind, file_size, created_at
FROM file_metadata
WHERE project_uuid = ?
ORDER BY created_at, id`

func (q *Queries) ListFileMetadataByProject(ctx context.Context, projectUuid sql.NullString) ([]FileMetadatum, error) {
	rows, err := q.db.QueryContext(ctx, listFileMetadataByProject, projectUuid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FileMetadatum
	for rows.Next() {
		var i FileMetadatum
		if err := rows.Scan(
			&i.ID,
			&i.FileUuid,
			&i.ProjectUuid,
			&i.UserUuid,
			&i.FileName,
			&i.FileKind,
			&i.FileSize,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteFileMetadata = `DELETE FROM file_metadata WHERE file_uuid = ?`

func (q *Queries) DeleteFileMetadata(ctx context.Context, fileUuid string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteFileMetadata, fileUuid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
