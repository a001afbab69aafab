package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/veridianhq/veridian/internal/iam/authz"
	httpapi "github.com/veridianhq/veridian/internal/iam/http"
	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/internal/iam/store/drivers/sqlite"
	"github.com/veridianhq/veridian/pkg/jwtx"
	"github.com/veridianhq/veridian/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the IAM service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer jwtx.Signer
	engine *authz.Engine

	// Services
	authService         *service.AuthenticateService
	adminService        *service.AdminService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "iam-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initAuthz(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("iam service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down iam service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("iam service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSigner loads the Ed25519 signing key, falling back to an ephemeral key
// when no path is configured. Ephemeral keys invalidate all tokens on
// restart, which is acceptable for dev and test deployments only.
func (app *Application) initSigner() error {
	if app.cfg.SigningKeyPath == "" {
		signer, err := jwtx.NewEphemeralSigner(app.cfg.SigningKeyID)
		if err != nil {
			return fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		app.signer = signer
		app.logger.Warn("using ephemeral signing key; tokens will not survive restarts")
		return nil
	}

	pemKey, err := os.ReadFile(app.cfg.SigningKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read signing key: %w", err)
	}
	signer, err := jwtx.NewSignerFromPEM(app.cfg.SigningKeyID, pemKey)
	if err != nil {
		return fmt.Errorf("failed to parse signing key: %w", err)
	}
	app.signer = signer
	return nil
}

// initAuthz resolves the root tenant. Installation settings in the database
// win over the environment so a promoted tenant survives restarts.
func (app *Application) initAuthz() error {
	rootTenantID := app.cfg.RootTenantID

	settings, err := app.db.Tenants().GetSystemSettings(context.Background())
	switch {
	case err == nil && settings.RootTenantID != "":
		rootTenantID = settings.RootTenantID
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to load system settings: %w", err)
	}

	app.engine = &authz.Engine{RootTenantID: rootTenantID}
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.authService = &service.AuthenticateService{
		Store:          app.db,
		Signer:         app.signer,
		Mailer:         &service.LogMailer{Logger: app.logger},
		Issuer:         app.cfg.Issuer,
		PortalTokenTTL: app.cfg.PortalTokenTTL,
		ResetTokenTTL:  app.cfg.ResetTokenTTL,
		StateTTL:       app.cfg.StateTTL,
	}

	app.adminService = &service.AdminService{
		Store:  app.db,
		Engine: app.engine,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db, app.logger, app.cfg.HousekeepingInterval,
	)
}

// initHTTP wires the router and the HTTP server.
func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(app.signer, BuildVersion, app.db, app.logger)
	app.router.AuthService = app.authService
	app.router.AdminService = app.adminService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
