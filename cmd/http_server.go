package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/auth"
	authpg "github.com/frahmantamala/number-provisioning/internal/auth/postgres"
	"github.com/frahmantamala/number-provisioning/internal/core/events"
	"github.com/frahmantamala/number-provisioning/internal/number"
	numberpg "github.com/frahmantamala/number-provisioning/internal/number/postgres"
	"github.com/frahmantamala/number-provisioning/internal/observability"
	"github.com/frahmantamala/number-provisioning/internal/transport"
	"github.com/frahmantamala/number-provisioning/internal/transport/rest"
	"github.com/frahmantamala/number-provisioning/internal/transport/swagger"
	"github.com/frahmantamala/number-provisioning/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.EventBus.Drain(ctx); err != nil {
			deps.Logger.Warn("Event handlers still running at shutdown", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
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
	log := logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gormDB, err := openGorm(db, config.Observability.Logging.Level == "debug")
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	if config.Observability.Metrics.Enabled {
		metrics = newMetrics()
	}
	bus := newEventBus(log, metrics)

	numberService := number.NewService(
		newPaymentRegistry(config.Gateways, log),
		numberpg.NewNumberRepository(gormDB),
		newActivator(config.Provisioning, log),
		log,
		number.WithPublisher(bus),
		number.WithMetrics(metrics),
	)

	authService := auth.NewService(
		authpg.NewRepository(gormDB),
		auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.AccessTokenDuration),
		log,
	)

	base := transport.NewBaseHandler(log)
	routes := rest.Dependencies{
		Base:           base,
		Health:         rest.NewHealthHandler(map[string]rest.Pinger{"postgres": db}),
		Numbers:        number.NewHandler(base, numberService),
		RequireAccount: auth.RequireAccount(authService, base),
		AllowedOrigins: config.Server.AllowedOrigins,
	}

	if config.Server.OpenAPIPath != "" {
		doc, err := swagger.Load(context.Background(), config.Server.OpenAPIPath)
		if err != nil {
			log.Warn("OpenAPI document unavailable, swagger disabled", "path", config.Server.OpenAPIPath, "error", err)
		} else {
			routes.OpenAPI = doc
		}
	}
	if metrics != nil {
		routes.Metrics = metrics.Handler()
		routes.MetricsPath = config.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, routes)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   router,
		EventBus: bus,
		Metrics:  metrics,
		Logger:   log,
	}, nil
}
