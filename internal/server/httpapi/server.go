// Package httpapi exposes the upload-session operations over HTTP/JSON for
// the web UI. Failures map onto statuses as: validation, bad index and size
// mismatch are 400, unknown session 404, wrong-state 409, everything
// infrastructure-level 500.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/albumvault/internal/logging"
	"github.com/dmitrijs2005/albumvault/internal/server/models"
	"github.com/dmitrijs2005/albumvault/internal/server/uploads"
)

// SessionManager is the part of the uploads service the HTTP layer calls.
type SessionManager interface {
	StartSession(ctx context.Context, req *uploads.StartRequest) (*models.UploadSession, error)
	UploadChunk(ctx context.Context, sessionID string, index int, data []byte) (*uploads.ChunkResult, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*uploads.StatusSnapshot, error)
	ExpireStaleSessions(ctx context.Context) (int, error)
}

type Server struct {
	address string
	uploads SessionManager
	db      *sql.DB
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, um SessionManager, db *sql.DB) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "http_server"),
		uploads: um,
		db:      db,
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.healthz)
	r.GET("/readyz", s.readyz)

	api := r.Group("/api")
	api.POST("/uploads", s.startSession)
	api.POST("/uploads/:id/chunks/:index", s.uploadChunk)
	api.GET("/uploads/:id", s.sessionStatus)

	r.POST("/internal/uploads/sweep", s.sweep)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readyz(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
