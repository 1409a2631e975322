package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/albumvault/internal/common"
	"github.com/dmitrijs2005/albumvault/internal/dbx"
	"github.com/dmitrijs2005/albumvault/internal/server/models"
)

// PostgresRepository implements the session Metadata Store over *sql.DB.
// It needs the full DB handle (not just dbx.DBTX) because chunk bookkeeping
// runs inside its own transaction.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, album_id, file_name, mime_type, file_size,
		chunk_size, total_chunks, chunk_count, status, storage_key,
		created_at, updated_at, expires_at`

func scanSession(row interface {
	Scan(dest ...any) error
}) (*models.UploadSession, error) {
	s := &models.UploadSession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.AlbumID, &s.FileName, &s.MimeType, &s.FileSize,
		&s.ChunkSize, &s.TotalChunks, &s.ChunkCount, &s.Status, &s.StorageKey,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session row in state pending.
func (r *PostgresRepository) Create(ctx context.Context, session *models.UploadSession) error {
	query := `
		INSERT INTO upload_sessions
			(id, user_id, album_id, file_name, mime_type, file_size,
			 chunk_size, total_chunks, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.AlbumID, session.FileName,
		session.MimeType, session.FileSize, session.ChunkSize,
		session.TotalChunks, session.Status, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the full session row.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.UploadSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM upload_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// ChunkIndices returns the received chunk indices in ascending order.
func (r *PostgresRepository) ChunkIndices(ctx context.Context, id string) ([]int, error) {
	query := `SELECT chunk_index FROM session_chunks WHERE session_id = $1 ORDER BY chunk_index`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		result = append(result, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkChunkReceived records one chunk arrival inside a single transaction.
// The ON CONFLICT DO NOTHING insert makes re-uploads idempotent; the
// conditional counter update is the optimistic check that keeps last-chunk
// detection race-free and rolls the insert back if the session stopped
// accepting chunks concurrently.
func (r *PostgresRepository) MarkChunkReceived(ctx context.Context, id string, index int) (*ChunkReceipt, error) {
	receipt := &ChunkReceipt{}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		insert := `
			INSERT INTO session_chunks (session_id, chunk_index)
			VALUES ($1, $2)
			ON CONFLICT (session_id, chunk_index) DO NOTHING
		`
		res, err := tx.ExecContext(ctx, insert, id, index)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}

		if n == 0 {
			// Already marked: report the unchanged cardinality.
			receipt.Duplicate = true
			var status models.SessionStatus
			query := `SELECT chunk_count, status FROM upload_sessions WHERE id = $1`
			err := tx.QueryRowContext(ctx, query, id).Scan(&receipt.ChunkCount, &status)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return common.ErrNotFound
				}
				return fmt.Errorf("db error: %w", err)
			}
			if !status.AcceptsChunks() {
				return fmt.Errorf("%w: session %s is %s", common.ErrInvalidState, id, status)
			}
			return nil
		}

		update := `
			UPDATE upload_sessions
			SET chunk_count = chunk_count + 1, status = 'uploading', updated_at = now()
			WHERE id = $1 AND status IN ('pending', 'uploading')
			RETURNING chunk_count
		`
		err = tx.QueryRowContext(ctx, update, id).Scan(&receipt.ChunkCount)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Session went terminal between the chunk insert and the
				// counter update; the rollback discards the insert.
				return fmt.Errorf("%w: session %s does not accept chunks", common.ErrInvalidState, id)
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// BeginAssembly claims the assembling transition. The chunk_count guard means
// only a complete session can transition and only one caller wins.
func (r *PostgresRepository) BeginAssembly(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE upload_sessions
		SET status = 'assembling', updated_at = now()
		WHERE id = $1 AND status = 'uploading' AND chunk_count = total_chunks
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// MarkCompleted finishes a successful assembly.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, storageKey string) error {
	query := `
		UPDATE upload_sessions
		SET status = 'completed', storage_key = $2, updated_at = now()
		WHERE id = $1 AND status = 'assembling'
	`
	return r.execExpectingOneRow(ctx, query, id, storageKey)
}

// MarkFailed records a failed assembly.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE upload_sessions
		SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'assembling'
	`
	return r.execExpectingOneRow(ctx, query, id)
}

func (r *PostgresRepository) execExpectingOneRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrInvalidState
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// ExpireStale reclaims past-TTL pending/uploading sessions. Sessions in
// assembling are never selected, so expiry is deferred until assembly
// resolves.
func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time) ([]*models.UploadSession, error) {
	query := `
		UPDATE upload_sessions
		SET status = 'expired', updated_at = now()
		WHERE status IN ('pending', 'uploading') AND expires_at < $1
		RETURNING ` + sessionColumns

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
