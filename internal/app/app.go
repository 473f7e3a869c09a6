package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shaibs3/careportal/internal/accounts"
	"github.com/shaibs3/careportal/internal/archive"
	"github.com/shaibs3/careportal/internal/auth"
	"github.com/shaibs3/careportal/internal/config"
	"github.com/shaibs3/careportal/internal/database"
	"github.com/shaibs3/careportal/internal/events"
	"github.com/shaibs3/careportal/internal/handlers"
	"github.com/shaibs3/careportal/internal/router"
	"github.com/shaibs3/careportal/internal/storage"
	"github.com/shaibs3/careportal/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// App represents the main application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	db        database.Provider
	router    *router.Router
	server    *http.Server
}

func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(logger)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(context.Background(), cfg, logger, tel)
	if err != nil {
		return nil, err
	}

	guard := database.NewGuard("careportal-db", logger)

	disk, err := storage.NewDiskStore(filepath.Join(cfg.UploadRoot, cfg.ArchiveDir), archive.PublicPrefix, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	archiveMetrics, err := archive.NewMetrics(tel.Meter)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create archive metrics: %w", err)
	}
	archiveService := archive.NewService(archive.NewGormStore(db.DB(), guard), disk, logger,
		archive.WithParentValidation(cfg.ArchiveValidateParent),
		archive.WithMaxDepth(cfg.ArchiveMaxDepth),
		archive.WithMetrics(archiveMetrics),
	)
	accountService := accounts.NewService(db.DB(), guard, accounts.NewLogNotifier(logger), accounts.Config{
		FrontendURL:   cfg.FrontendURL,
		ResetTokenTTL: cfg.ResetTokenTTL,
	}, logger)
	eventService := events.NewService(db.DB(), guard, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	cookies := auth.NewCookieCodec(cfg.CookieSecret, cfg.CookieSecure, cfg.JWTExpiration)
	authn := auth.NewAuthenticator(tokens, cookies, logger)

	// Create handlers
	handlerList := []router.Handler{
		handlers.NewHealthHandler(db),
		handlers.NewAuthHandler(accountService, tokens, cookies, authn.Middleware),
		handlers.NewArchiveHandler(archiveService, disk, authn.Middleware, cfg.MaxUploadBytes),
		handlers.NewEventHandler(eventService, authn.Middleware),
		handlers.NewStaticHandler(cfg.UploadRoot),
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPSLimit), cfg.RPSBurst)
	appRouter := router.NewRouter(limiter, tel, logger, handlerList, router.WithAllowedOrigin(cfg.FrontendURL))

	return &App{
		config:    cfg,
		logger:    logger,
		telemetry: tel,
		db:        db,
		router:    appRouter,
		server:    appRouter.CreateServer(":" + cfg.Port),
	}, nil
}

// Migrate creates or updates the schema and exits
func Migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := openDatabase(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	return db.Close()
}

// openDatabase creates the provider, checks it answers and migrates the schema
func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger, tel *telemetry.Telemetry) (database.Provider, error) {
	factory := database.NewDbProviderFactory(logger, tel)
	db, err := factory.CreateProvider(cfg.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}
	if err := database.Migrate(ctx, db.DB()); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready", zap.String("db_type", db.Type().String()))
	return db, nil
}

// Handler exposes the HTTP surface without starting a listener
func (app *App) Handler() http.Handler {
	return app.router
}

// Start starts the application server
func (app *App) start() error {
	app.logger.Info("starting server", zap.String("port", app.config.Port))

	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the application
func (app *App) stop() error {
	app.logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server forced to shutdown", zap.Error(err))
		errs = append(errs, err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", zap.Error(err))
		errs = append(errs, err)
	}
	if err := app.telemetry.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	app.logger.Info("server exited gracefully")
	return nil
}

// Run starts the application and waits for shutdown signals
func (app *App) Run() error {
	if err := app.start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	return app.stop()
}
