package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyfold/identity/internal/identity/obs"
	"github.com/keyfold/identity/internal/identity/service"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/internal/identity/store/drivers/postgres"
	"github.com/keyfold/identity/internal/identity/store/drivers/sqlite"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/slogx"
	"github.com/keyfold/identity/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the identity services with their store, key material and
// observability.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	metrics *obs.Metrics

	Authorization  *service.AuthorizationService
	Authentication *service.AuthenticationService
	Applications   *service.ApplicationService
	Users          *service.UserService
	housekeeping   *service.HousekeepingService

	metricsServer *http.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initMetricsServer()

	return app, nil
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseDSN)
	case "sqlite", "":
		db, err = sqlite.NewStore(app.cfg.DatabaseDSN)
	default:
		return fmt.Errorf("unknown database driver %q", app.cfg.DatabaseDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app.db = db
	return nil
}

func (app *Application) initServices() error {
	signingKey, err := cryptox.LoadKeyMaterial(app.cfg.SigningKeyFile, "IDENTITY_SIGNING_KEY")
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	tokenKey, err := cryptox.LoadKeyMaterial(app.cfg.TokenKeyFile, "IDENTITY_TOKEN_KEY")
	if err != nil {
		return fmt.Errorf("failed to load token encryption key: %w", err)
	}
	secretKey, err := cryptox.LoadKeyMaterial(app.cfg.SecretKeyFile, "IDENTITY_SECRET_KEY")
	if err != nil {
		return fmt.Errorf("failed to load secret encryption key: %w", err)
	}

	codec, err := tokenx.NewCodec(signingKey)
	if err != nil {
		return err
	}
	alg, err := tokenx.NewAESAlgorithm(tokenKey)
	if err != nil {
		return err
	}
	registry, err := tokenx.NewRegistry(alg)
	if err != nil {
		return err
	}
	envelope, err := tokenx.NewEnvelope(registry, tokenx.AlgorithmAES)
	if err != nil {
		return err
	}
	secrets, err := cryptox.NewCipher(secretKey)
	if err != nil {
		return err
	}

	app.metrics = obs.NewMetrics(prometheus.DefaultRegisterer)
	issuer := &service.TokenIssuer{Codec: codec, Envelope: envelope}

	app.Authorization = &service.AuthorizationService{
		Store:   app.db,
		Tokens:  issuer,
		Secrets: secrets,
		Metrics: app.metrics,
		CodeTTL: app.cfg.CodeTTL,
	}
	app.Authentication = &service.AuthenticationService{
		Store:   app.db,
		Metrics: app.metrics,
	}
	app.Applications = &service.ApplicationService{
		Store:   app.db,
		Secrets: secrets,
	}
	app.Users = &service.UserService{Store: app.db}
	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.metrics, app.cfg.HousekeepingInterval)

	return nil
}

func (app *Application) initMetricsServer() {
	if app.cfg.MetricsListenAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	app.metricsServer = &http.Server{
		Addr:              app.cfg.MetricsListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run starts the background workers and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()
	app.logger.Info("identity service starting", "version", BuildVersion)

	serverErrors := make(chan error, 1)
	if app.metricsServer != nil {
		go func() {
			serverErrors <- app.metricsServer.ListenAndServe()
		}()
		app.logger.Info("metrics listener started", "addr", app.cfg.MetricsListenAddr)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	}

	return app.Shutdown()
}

// Shutdown stops the workers and closes the store.
func (app *Application) Shutdown() error {
	app.housekeeping.Stop()

	if app.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			app.logger.Error("metrics server shutdown failed", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	app.logger.Info("identity service stopped")
	return nil
}
