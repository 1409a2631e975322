// Package server initializes and runs the upload-session application server:
// database and object storage backends, the session manager service, the
// HTTP endpoint and the background expiry sweeper, with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/albumvault/internal/logging"
	"github.com/dmitrijs2005/albumvault/internal/server/blob"
	"github.com/dmitrijs2005/albumvault/internal/server/config"
	"github.com/dmitrijs2005/albumvault/internal/server/httpapi"
	"github.com/dmitrijs2005/albumvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/albumvault/internal/server/uploads"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	uploads *uploads.Service
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	rm, err := repomanager.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := blob.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := uploads.NewService(rm.Sessions(), rm.Photos(), store, logger, cfg)

	return &App{config: cfg, logger: logger, repos: rm, uploads: us}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.uploads, app.repos.Conn())

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runSweeper drives the periodic TTL sweep. An external cron hitting the
// sweep endpoint works too; the built-in ticker just makes a single-binary
// deployment self-sufficient.
func (app *App) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := app.uploads.ExpireStaleSessions(ctx)
			if err != nil {
				app.logger.Error(ctx, "expiry sweep failed", "error", err.Error())
				continue
			}
			if count > 0 {
				app.logger.Info(ctx, "expiry sweep finished", "expired", count)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runSweeper(ctx)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err.Error())
	}
}
