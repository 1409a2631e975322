package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/albumvault/internal/server/repositories/photos"
	"github.com/dmitrijs2005/albumvault/internal/server/repositories/sessions"
)

// RepositoryManager vends repository implementations bound to one database
// and owns schema migrations for it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Sessions() sessions.Repository
	Photos() photos.Repository
	Conn() *sql.DB
	Close() error
}
