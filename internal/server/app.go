// Package server initializes and runs the AuthVault server: database
// bootstrap with migrations, the authentication core, the periodic cleanup
// job, the HTTP endpoint, and graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vposukhov/authvault/internal/logging"
	"github.com/vposukhov/authvault/internal/server/config"
	"github.com/vposukhov/authvault/internal/server/httpapi"
	"github.com/vposukhov/authvault/internal/server/repositories/repomanager"
	"github.com/vposukhov/authvault/internal/server/services"
	"github.com/vposukhov/authvault/internal/timex"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	authService *services.AuthService
	cleaner     *services.Cleaner
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	clock := timex.RealClock{}

	db, err := repomanager.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	limiter := services.NewRateLimiter(db, rm, cfg, clock, logger)
	authService := services.NewAuthService(db, rm, limiter, cfg, clock, logger)
	cleaner := services.NewCleaner(db, rm, cfg, clock, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		authService: authService,
		cleaner:     cleaner,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.authService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...")

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
		app.cleaner.Run(ctx)
	}()

	wg.Wait()
}
