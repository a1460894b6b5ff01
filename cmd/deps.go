package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/core/events"
	"github.com/frahmantamala/number-provisioning/internal/observability"
	"github.com/frahmantamala/number-provisioning/internal/paymentgateway"
	"github.com/frahmantamala/number-provisioning/internal/provisioning"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm layers gorm over the already-open pool so both share connections.
func openGorm(db *sqlx.DB, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}

func newMetrics() *observability.Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return observability.NewMetrics(registry)
}

func newPaymentRegistry(cfg internal.GatewaysConfig, logger *slog.Logger) *paymentgateway.Registry {
	return paymentgateway.NewRegistry().
		Register(paymentgateway.TagCapture, paymentgateway.NewCaptureVerifier(paymentgateway.CaptureConfig{
			BaseURL:    cfg.Capture.BaseURL,
			SecretKey:  cfg.Capture.SecretKey,
			Timeout:    cfg.Capture.Timeout,
			MaxRetries: cfg.Capture.MaxRetries,
		}, logger)).
		Register(paymentgateway.TagOrder, paymentgateway.NewOrderVerifier(paymentgateway.OrderConfig{
			BaseURL:      cfg.Order.BaseURL,
			ClientID:     cfg.Order.ClientID,
			ClientSecret: cfg.Order.ClientSecret,
			Timeout:      cfg.Order.Timeout,
			MaxRetries:   cfg.Order.MaxRetries,
		}, logger))
}

func newActivator(cfg internal.ProvisioningConfig, logger *slog.Logger) *provisioning.Client {
	return provisioning.NewClient(provisioning.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}, logger)
}

var observedEvents = []string{
	events.EventTypeNumberProvisioned,
	events.EventTypeProvisioningDeferred,
	events.EventTypeProvisioningCompleted,
	events.EventTypeProvisioningFailed,
}

// newEventBus returns a bus whose subscribers log and count every domain event.
func newEventBus(logger *slog.Logger, metrics *observability.Metrics) *events.EventBus {
	bus := events.NewEventBus(logger)
	for _, eventType := range observedEvents {
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			metrics.EventObserved(event.EventType())
			logger.Info("domain event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"payload", event.Payload())
			return nil
		})
	}
	return bus
}
