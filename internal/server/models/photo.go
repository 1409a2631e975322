package models

import "time"

// Photo is the final-object metadata record written once an upload session
// completes. The bytes themselves live in object storage under StorageKey.
type Photo struct {
	ID         string    `db:"id"`
	AlbumID    string    `db:"album_id"`
	UserID     string    `db:"user_id"`
	FileName   string    `db:"file_name"`
	MimeType   string    `db:"mime_type"`
	SizeBytes  int64     `db:"size_bytes"`
	StorageKey string    `db:"storage_key"`
	Checksum   string    `db:"checksum"` // hex-encoded SHA-256 of the assembled object
	CreatedAt  time.Time `db:"created_at"`
}
