package database

import "time"

// FileRecord describes one ingested file. It is bookkeeping only: the backing
// database file remains the source of truth for existence.
type FileRecord struct {
	ID        int64
	FileID    string
	ProjectID string
	UserID    string
	FileName  string
	Kind      string
	SizeBytes int64
	CreatedAt time.Time
}
