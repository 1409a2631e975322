// Package models defines server-side data models persisted in the database.
package models

import "time"

// SessionStatus is the lifecycle state of an upload session.
type SessionStatus string

const (
	// StatusPending: session created, no chunks received yet.
	StatusPending SessionStatus = "pending"
	// StatusUploading: at least one but not all chunks received.
	StatusUploading SessionStatus = "uploading"
	// StatusAssembling: all chunks present, final object being built.
	StatusAssembling SessionStatus = "assembling"
	// StatusCompleted: terminal, the assembled object is stored.
	StatusCompleted SessionStatus = "completed"
	// StatusFailed: terminal, assembly failed; chunk blobs are retained.
	StatusFailed SessionStatus = "failed"
	// StatusExpired: terminal, reclaimed by the TTL sweep.
	StatusExpired SessionStatus = "expired"
)

// Terminal reports whether no further transitions leave this state.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// AcceptsChunks reports whether uploadChunk calls are allowed in this state.
func (s SessionStatus) AcceptsChunks() bool {
	return s == StatusPending || s == StatusUploading
}

// UploadSession tracks one chunked-upload attempt from start to
// completion, failure, or expiry. FileName, MimeType, FileSize, AlbumID,
// ChunkSize, TotalChunks and UserID are fixed at creation; only ChunkCount,
// Status, StorageKey and UpdatedAt change afterwards.
type UploadSession struct {
	ID          string        `db:"id"`
	UserID      string        `db:"user_id"`
	AlbumID     string        `db:"album_id"`
	FileName    string        `db:"file_name"`
	MimeType    string        `db:"mime_type"`
	FileSize    int64         `db:"file_size"`
	ChunkSize   int64         `db:"chunk_size"`
	TotalChunks int           `db:"total_chunks"`
	ChunkCount  int           `db:"chunk_count"`
	Status      SessionStatus `db:"status"`

	// StorageKey is the object-storage key of the assembled object; empty
	// until the session completes.
	StorageKey string `db:"storage_key"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// ExpiresAt is fixed at creation (no sliding on activity); the sweep
	// reclaims non-terminal sessions past this point.
	ExpiresAt time.Time `db:"expires_at"`
}

// ExpectedChunkLen returns the byte length chunk index must have: full
// ChunkSize for every chunk but the last, which carries the remainder.
func (s *UploadSession) ExpectedChunkLen(index int) int64 {
	if index == s.TotalChunks-1 {
		return s.FileSize - s.ChunkSize*int64(s.TotalChunks-1)
	}
	return s.ChunkSize
}
