package sqldb

import (
	"database/sql"
)

// FileMetadatum mirrors a row of the file_metadata table.
type FileMetadatum struct {
	ID          int64
	FileUuid    string
	ProjectUuid sql.NullString
	UserUuid    sql.NullString
	FileName    sql.NullString
	FileKind    string
	FileSize    int64
	CreatedAt   sql.NullTime
}
