// Package blob defines the byte-store contract used for upload chunks and
// assembled objects, with S3, filesystem and in-memory implementations.
package blob

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store is a path-addressed byte store. Chunk keys are partitioned by
// session id, so concurrent sessions never contend on the same keys.
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ChunkKey returns the storage key for one chunk of a session.
func ChunkKey(sessionID string, index int) string {
	return fmt.Sprintf("uploads/%s/chunks/%d", sessionID, index)
}

// ObjectKey returns a fresh destination key for an assembled object. The
// random segment keeps same-named files in one album from colliding.
func ObjectKey(albumID, fileName string) string {
	return fmt.Sprintf("albums/%s/%s/%s", albumID, uuid.New(), fileName)
}
