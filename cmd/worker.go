package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/frahmantamala/number-provisioning/internal/provisioning"
	provisioningpg "github.com/frahmantamala/number-provisioning/internal/provisioning/postgres"
	"github.com/frahmantamala/number-provisioning/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for background processing",
	Long:  `Start and manage worker pools that complete work deferred by the HTTP server.`,
}

var provisioningWorkerCmd = &cobra.Command{
	Use:   "provisioning",
	Short: "Start the provisioning retry worker pool",
	Long:  `Retry telecom activations that failed during provisioning, with exponential backoff`,
	Run: func(cmd *cobra.Command, args []string) {
		startProvisioningWorker()
	},
}

var provisioningStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provisioning outbox counts by status",
	Run: func(cmd *cobra.Command, args []string) {
		showProvisioningStatus()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	maxAttempts  int
	pollInterval time.Duration
)

func startProvisioningWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	metrics := newMetrics()
	bus := newEventBus(log, metrics)

	workerConfig := provisioning.WorkerConfig{
		MaxWorkers:   getIntFlag(maxWorkers, config.Provisioning.MaxWorkers),
		JobQueueSize: getIntFlag(jobQueueSize, config.Provisioning.JobQueueSize),
		MaxAttempts:  getIntFlag(maxAttempts, config.Provisioning.MaxAttempts),
		PollInterval: config.Provisioning.PollInterval,
		BatchSize:    config.Provisioning.BatchSize,
	}
	if pollInterval > 0 {
		workerConfig.PollInterval = pollInterval
	}

	retrier := provisioning.NewRetrier(
		provisioningpg.NewOutboxRepository(db),
		newActivator(config.Provisioning, log),
		workerConfig,
		log,
		provisioning.WithPublisher(bus),
		provisioning.WithMetrics(metrics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("provisioning worker is running. Press Ctrl+C to stop.")
	if err := retrier.Run(ctx); err != nil {
		log.Error("provisioning worker stopped with error", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bus.Drain(drainCtx); err != nil {
		log.Warn("shutdown timeout reached, forcing exit", "error", err)
	}
	log.Info("provisioning worker pool shutdown complete")
}

func showProvisioningStatus() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	counts, err := provisioningpg.NewOutboxRepository(db).CountByStatus(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to count tasks: %v\n", err)
		os.Exit(1)
	}

	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("%-12s %d\n", status, counts[status])
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	provisioningWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	provisioningWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	provisioningWorkerCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Attempts before a task is left for manual review (overrides config)")
	provisioningWorkerCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "How often to look for due tasks (overrides config)")

	provisioningWorkerCmd.AddCommand(provisioningStatusCmd)
	workerCmd.AddCommand(provisioningWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
