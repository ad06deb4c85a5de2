package database

import sqldb "github.com/dateja/sqlitedb/internal/database/sqlc"

func mapFileRow(row sqldb.FileMetadatum) FileRecord {
	return FileRecord{
		ID:        row.ID,
		FileID:    row.FileUuid,
		ProjectID: optionalString(row.ProjectUuid),
		UserID:    optionalString(row.UserUuid),
		FileName:  optionalString(row.FileName),
		Kind:      row.FileKind,
		SizeBytes: row.FileSize,
		CreatedAt: optionalTime(row.CreatedAt),
	}
}
