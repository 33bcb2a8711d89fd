package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/auth"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/catalog"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/events"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
	credentialpg "github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential/postgres"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/export"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/hardware"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/relay"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport/rest"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/upstream"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/user"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Credentials credential.Repository
	Bus         *events.EventBus
	Router      *chi.Mux
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	figure.NewFigure(deps.Config.AppName, "", true).Print()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server",
		"address", addr,
		"upstream", deps.Config.Upstream.Endpoint(),
		"credential_backend", deps.Config.Credentials.Backend)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.Bus.Drain(ctx); err != nil {
			deps.Logger.Warn("Audit events still in flight at shutdown", "error", err)
		}
		if deps.DB != nil {
			if err := deps.DB.Close(); err != nil {
				deps.Logger.Error("Database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(logger.Options{Level: config.Logging.Level, Format: config.Logging.Format})

	deps := &Dependencies{
		Config: config,
		Logger: log,
		Router: chi.NewRouter(),
	}

	health := map[string]rest.Checker{}
	switch config.Credentials.Backend {
	case "database":
		db, err := initDB(config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		gdb, err := openGorm(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.DB = db
		deps.Credentials = credentialpg.NewRepository(gdb)
	default:
		store, err := credential.NewFileStore(config.Credentials.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
		log.Info("credential file loaded", "path", config.Credentials.File, "records", store.Len())
		deps.Credentials = store
	}
	health["credentials"] = deps.Credentials

	tokens, err := auth.NewJWTTokenService(config.Security.JWTSecret, config.Security.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to build token service: %w", err)
	}

	gateway, err := upstream.NewGateway(upstream.Config{
		Endpoint: config.Upstream.Endpoint(),
		Timeout:  config.Upstream.Timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream gateway: %w", err)
	}

	deps.Bus = events.NewEventBus(log)
	events.RegisterAuditLog(deps.Bus, log)

	relaySvc := relay.NewService(relay.GatewayClients(gateway), log, relay.Options{
		EnforceLocationScope: config.Relay.EnforceLocationScope,
		Events:               deps.Bus,
	})

	base := transport.NewBaseHandler(log)
	authHandler := auth.NewHandler(base,
		auth.NewService(deps.Credentials, tokens, log),
		auth.NewResolver(tokens, deps.Credentials, log),
		relaySvc,
		tokens.TTL(),
		auth.SecureMode(config.Security.SecureCookies))

	rest.RegisterAllRoutes(deps.Router, rest.Deps{
		Auth:           authHandler,
		Hardware:       hardware.NewHandler(base, relaySvc),
		Users:          user.NewHandler(base, relaySvc),
		Catalog:        catalog.NewHandler(base, relaySvc),
		Export:         export.NewHandler(base, relaySvc),
		Health:         health,
		AllowedOrigins: config.Server.Origins(),
		OpenAPIPath:    config.Server.OpenAPIPath,
		Logger:         log,
	})

	return deps, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm shares the sqlx pool with gorm.
func openGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}
