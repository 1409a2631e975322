package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/albumvault/internal/server/models"
)

// ChunkReceipt is the outcome of recording a chunk arrival.
type ChunkReceipt struct {
	// Duplicate is true when the chunk index was already marked; the call
	// is idempotent and ChunkCount is unchanged in that case.
	Duplicate bool
	// ChunkCount is the session's received-chunk cardinality after the call.
	ChunkCount int
}

// Repository is the session Metadata Store contract. All mutations of a
// session row are conditional updates so that concurrent chunk arrivals,
// assembly and the expiry sweep never race each other.
type Repository interface {
	// Create inserts a new session in state pending. The id must be unique.
	Create(ctx context.Context, session *models.UploadSession) error

	// GetByID returns the full session row, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.UploadSession, error)

	// ChunkIndices returns the received chunk indices in ascending order.
	ChunkIndices(ctx context.Context, id string) ([]int, error)

	// MarkChunkReceived atomically records one chunk arrival: it inserts the
	// index into the received set (no-op if present), increments the counter
	// and moves a pending session to uploading. Returns common.ErrInvalidState
	// if the session no longer accepts chunks, leaving the set untouched.
	MarkChunkReceived(ctx context.Context, id string, index int) (*ChunkReceipt, error)

	// BeginAssembly transitions uploading -> assembling, but only when all
	// chunks are present. Exactly one caller observes true; concurrent
	// duplicates observe false and must not assemble.
	BeginAssembly(ctx context.Context, id string) (bool, error)

	// MarkCompleted transitions assembling -> completed and records the
	// assembled object's storage key.
	MarkCompleted(ctx context.Context, id string, storageKey string) error

	// MarkFailed transitions assembling -> failed.
	MarkFailed(ctx context.Context, id string) error

	// ExpireStale moves every pending or uploading session whose expires_at
	// is before now to expired and returns the affected sessions. Sessions
	// in assembling are left alone so expiry never races finalization.
	ExpireStale(ctx context.Context, now time.Time) ([]*models.UploadSession, error)
}
