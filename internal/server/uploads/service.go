// Package uploads implements the chunked-upload session manager: session
// lifecycle, chunk bookkeeping, assembly of the final object and TTL-based
// reclamation of abandoned sessions.
package uploads

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/albumvault/internal/common"
	"github.com/dmitrijs2005/albumvault/internal/logging"
	"github.com/dmitrijs2005/albumvault/internal/server/blob"
	sc "github.com/dmitrijs2005/albumvault/internal/server/config"
	"github.com/dmitrijs2005/albumvault/internal/server/models"
	"github.com/dmitrijs2005/albumvault/internal/server/repositories/photos"
	"github.com/dmitrijs2005/albumvault/internal/server/repositories/sessions"
)

// Service owns upload sessions for their whole lifetime. All session
// mutations go through conditional updates in the sessions repository, so
// concurrent chunk arrivals, assembly and the expiry sweep coordinate
// through the metadata store rather than in-process locks; the manager
// survives restarts and scales horizontally.
type Service struct {
	sessions sessions.Repository
	photos   photos.Repository
	blobs    blob.Store
	logger   logging.Logger

	sessionTTL   time.Duration
	minChunkSize int64
	maxChunkSize int64
	maxFileSize  int64
	allowedMime  map[string]struct{}

	now func() time.Time
}

func NewService(sr sessions.Repository, pr photos.Repository, bs blob.Store, l logging.Logger, cfg *sc.Config) *Service {
	allowed := make(map[string]struct{}, len(cfg.AllowedMimeTypes))
	for _, m := range cfg.AllowedMimeTypes {
		allowed[m] = struct{}{}
	}
	return &Service{
		sessions:     sr,
		photos:       pr,
		blobs:        bs,
		logger:       l.With("module", "uploads"),
		sessionTTL:   cfg.SessionTTL,
		minChunkSize: cfg.MinChunkSize,
		maxChunkSize: cfg.MaxChunkSize,
		maxFileSize:  cfg.MaxFileSize,
		allowedMime:  allowed,
		now:          time.Now,
	}
}

// StartRequest carries the client-declared parameters for a new session.
type StartRequest struct {
	FileName    string
	FileSize    int64
	MimeType    string
	AlbumID     string
	ChunkSize   int64
	TotalChunks int
	UserID      string
}

// TotalChunksFor computes the chunk count a file of fileSize splits into.
func TotalChunksFor(fileSize, chunkSize int64) int {
	return int((fileSize + chunkSize - 1) / chunkSize)
}

func (s *Service) validateStart(req *StartRequest) error {
	if req.FileName == "" {
		return fmt.Errorf("%w: file_name is required", common.ErrValidation)
	}
	if req.AlbumID == "" {
		return fmt.Errorf("%w: album_id is required", common.ErrValidation)
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}
	if req.FileSize <= 0 {
		return fmt.Errorf("%w: file_size must be positive", common.ErrValidation)
	}
	if req.FileSize > s.maxFileSize {
		return fmt.Errorf("%w: file_size %d exceeds limit %d", common.ErrValidation, req.FileSize, s.maxFileSize)
	}
	if _, ok := s.allowedMime[req.MimeType]; !ok {
		return fmt.Errorf("%w: unsupported mime type %q", common.ErrValidation, req.MimeType)
	}
	if req.ChunkSize < s.minChunkSize || req.ChunkSize > s.maxChunkSize {
		return fmt.Errorf("%w: chunk_size %d outside [%d, %d]",
			common.ErrValidation, req.ChunkSize, s.minChunkSize, s.maxChunkSize)
	}
	// The declared chunk count must match exactly; a mismatch means the
	// client and server disagree about the chunking and every index check
	// after this point would be wrong.
	if want := TotalChunksFor(req.FileSize, req.ChunkSize); req.TotalChunks != want {
		return fmt.Errorf("%w: total_chunks mismatch: declared %d, expected %d for file_size %d and chunk_size %d",
			common.ErrValidation, req.TotalChunks, want, req.FileSize, req.ChunkSize)
	}
	return nil
}

// StartSession validates the request and persists a new session in state
// pending. ExpiresAt is fixed here and never extended.
func (s *Service) StartSession(ctx context.Context, req *StartRequest) (*models.UploadSession, error) {
	if err := s.validateStart(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &models.UploadSession{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		AlbumID:     req.AlbumID,
		FileName:    req.FileName,
		MimeType:    req.MimeType,
		FileSize:    req.FileSize,
		ChunkSize:   req.ChunkSize,
		TotalChunks: req.TotalChunks,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: creating session: %v", common.ErrStorage, err)
	}

	s.logger.Info(ctx, "session started",
		"session_id", session.ID, "album_id", session.AlbumID,
		"file_size", session.FileSize, "total_chunks", session.TotalChunks)
	return session, nil
}

// ChunkResult reports the outcome of one chunk upload.
type ChunkResult struct {
	Accepted      bool
	Duplicate     bool
	UploadedCount int
	TotalChunks   int
	// Status is the session state after this chunk: uploading while chunks
	// remain, completed when this call performed assembly, assembling when
	// a concurrent request owns it.
	Status models.SessionStatus
}

// UploadChunk stores one chunk and records its arrival. Chunks may arrive
// in any order; re-uploading a received index overwrites the blob and is
// otherwise a no-op. The call that records the last outstanding chunk
// claims assembly and runs it synchronously.
func (s *Service) UploadChunk(ctx context.Context, sessionID string, index int, data []byte) (*ChunkResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: loading session: %v", common.ErrStorage, err)
	}

	if !session.Status.AcceptsChunks() {
		return nil, fmt.Errorf("%w: session %s is %s", common.ErrInvalidState, sessionID, session.Status)
	}
	if index < 0 || index >= session.TotalChunks {
		return nil, fmt.Errorf("%w: chunk %d not in [0, %d)", common.ErrOutOfRange, index, session.TotalChunks)
	}
	if want := session.ExpectedChunkLen(index); int64(len(data)) != want {
		return nil, fmt.Errorf("%w: chunk %d has %d bytes, expected %d", common.ErrSizeMismatch, index, len(data), want)
	}

	// Blob first, metadata second: a crash in between leaves an unmarked
	// blob that the client's retry simply overwrites.
	if err := s.blobs.Write(ctx, blob.ChunkKey(sessionID, index), data); err != nil {
		return nil, err
	}

	receipt, err := s.sessions.MarkChunkReceived(ctx, sessionID, index)
	if err != nil {
		if errors.Is(err, common.ErrInvalidState) || errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: recording chunk: %v", common.ErrStorage, err)
	}

	result := &ChunkResult{
		Accepted:      true,
		Duplicate:     receipt.Duplicate,
		UploadedCount: receipt.ChunkCount,
		TotalChunks:   session.TotalChunks,
		Status:        models.StatusUploading,
	}

	if receipt.ChunkCount < session.TotalChunks {
		return result, nil
	}

	claimed, err := s.sessions.BeginAssembly(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: claiming assembly: %v", common.ErrStorage, err)
	}
	if !claimed {
		// A concurrent request observed completion first and owns assembly.
		result.Status = models.StatusAssembling
		return result, nil
	}

	if err := s.assemble(ctx, session); err != nil {
		return nil, err
	}
	result.Status = models.StatusCompleted
	return result, nil
}

// assemble builds the final object and resolves the session either to
// completed or failed. Chunk blobs are deleted only after completion; on
// failure they are retained for inspection.
func (s *Service) assemble(ctx context.Context, session *models.UploadSession) error {
	if err := s.buildObject(ctx, session); err != nil {
		if markErr := s.sessions.MarkFailed(ctx, session.ID); markErr != nil {
			s.logger.Error(ctx, "marking session failed", "session_id", session.ID, "error", markErr.Error())
		}
		s.logger.Error(ctx, "assembly failed", "session_id", session.ID, "error", err.Error())
		return err
	}
	s.cleanupChunks(ctx, session)
	return nil
}

func (s *Service) buildObject(ctx context.Context, session *models.UploadSession) error {
	assembled := make([]byte, 0, session.FileSize)
	for i := 0; i < session.TotalChunks; i++ {
		data, err := s.blobs.Read(ctx, blob.ChunkKey(session.ID, i))
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", common.ErrAssembly, i, err)
		}
		if int64(len(data)) != session.ExpectedChunkLen(i) {
			return fmt.Errorf("%w: chunk %d has %d bytes, expected %d",
				common.ErrAssembly, i, len(data), session.ExpectedChunkLen(i))
		}
		assembled = append(assembled, data...)
	}
	if int64(len(assembled)) != session.FileSize {
		return fmt.Errorf("%w: assembled %d bytes, expected %d", common.ErrAssembly, len(assembled), session.FileSize)
	}

	key := blob.ObjectKey(session.AlbumID, session.FileName)
	if err := s.blobs.Write(ctx, key, assembled); err != nil {
		return fmt.Errorf("%w: writing object: %v", common.ErrAssembly, err)
	}

	sum := sha256.Sum256(assembled)
	photo := &models.Photo{
		ID:         uuid.NewString(),
		AlbumID:    session.AlbumID,
		UserID:     session.UserID,
		FileName:   session.FileName,
		MimeType:   session.MimeType,
		SizeBytes:  session.FileSize,
		StorageKey: key,
		Checksum:   hex.EncodeToString(sum[:]),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return fmt.Errorf("%w: saving photo record: %v", common.ErrAssembly, err)
	}
	if err := s.sessions.MarkCompleted(ctx, session.ID, key); err != nil {
		return fmt.Errorf("%w: finalizing session: %v", common.ErrAssembly, err)
	}

	s.logger.Info(ctx, "session completed", "session_id", session.ID, "storage_key", key)
	return nil
}

func (s *Service) cleanupChunks(ctx context.Context, session *models.UploadSession) {
	for i := 0; i < session.TotalChunks; i++ {
		if err := s.blobs.Delete(ctx, blob.ChunkKey(session.ID, i)); err != nil {
			s.logger.Warn(ctx, "chunk cleanup failed", "session_id", session.ID, "chunk", i, "error", err.Error())
		}
	}
}

// StatusSnapshot is a read-only view of a session for polling clients.
type StatusSnapshot struct {
	Session *models.UploadSession
	// MissingChunks lists the indices a resuming client still needs to send.
	MissingChunks []int
}

// GetSessionStatus returns the last durably-committed state of a session.
func (s *Service) GetSessionStatus(ctx context.Context, sessionID string) (*StatusSnapshot, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: loading session: %v", common.ErrStorage, err)
	}

	indices, err := s.sessions.ChunkIndices(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading chunk indices: %v", common.ErrStorage, err)
	}

	received := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		received[idx] = struct{}{}
	}
	missing := make([]int, 0)
	for i := 0; i < session.TotalChunks; i++ {
		if _, ok := received[i]; !ok {
			missing = append(missing, i)
		}
	}

	return &StatusSnapshot{Session: session, MissingChunks: missing}, nil
}

// ExpireStaleSessions reclaims every non-terminal session past its TTL and
// deletes its chunk blobs. Cleanup problems for one session are logged and
// do not stop the sweep.
func (s *Service) ExpireStaleSessions(ctx context.Context) (int, error) {
	expired, err := s.sessions.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: expiring sessions: %v", common.ErrStorage, err)
	}

	for _, session := range expired {
		s.cleanupChunks(ctx, session)
		s.logger.Info(ctx, "session expired",
			"session_id", session.ID, "received", session.ChunkCount, "total", session.TotalChunks)
	}
	return len(expired), nil
}
