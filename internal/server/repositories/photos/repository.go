package photos

import (
	"context"

	"github.com/dmitrijs2005/albumvault/internal/server/models"
)

// Repository stores final-object metadata for assembled uploads.
type Repository interface {
	Create(ctx context.Context, photo *models.Photo) error
	SelectByAlbum(ctx context.Context, albumID string) ([]*models.Photo, error)
}
