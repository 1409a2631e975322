package photos

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/albumvault/internal/dbx"
	"github.com/dmitrijs2005/albumvault/internal/server/models"
)

// PostgresRepository implements photo metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a photo record.
func (r *PostgresRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, album_id, user_id, file_name, mime_type, size_bytes, storage_key, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		photo.ID, photo.AlbumID, photo.UserID, photo.FileName, photo.MimeType,
		photo.SizeBytes, photo.StorageKey, photo.Checksum, photo.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SelectByAlbum returns all photos in an album, newest first.
func (r *PostgresRepository) SelectByAlbum(ctx context.Context, albumID string) ([]*models.Photo, error) {
	query := `
		SELECT id, album_id, user_id, file_name, mime_type, size_bytes, storage_key, checksum, created_at
		FROM photos
		WHERE album_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Photo
	for rows.Next() {
		var item models.Photo
		if err := rows.Scan(&item.ID, &item.AlbumID, &item.UserID, &item.FileName,
			&item.MimeType, &item.SizeBytes, &item.StorageKey, &item.Checksum, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
