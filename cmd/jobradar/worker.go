package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	hhttp "jobradar/internal/handler/http"
	"jobradar/internal/infra/db"
	"jobradar/internal/infra/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scheduled collection and digest daemon",
	Long: `worker runs the cron scheduler: periodic feed collection at the
configured interval and the daily digest at the configured time.
Schedules come from the config file and are read at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker() error {
	logger := initLogger()

	database := db.Open()
	defer closeDatabase(logger, database)

	// serveプロセス側がマイグレーションを実行する。揃うまで待つ。
	if err := waitForMigrations(logger, database); err != nil {
		return err
	}

	store, err := loadStore()
	if err != nil {
		return err
	}

	workerMetrics := worker.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := worker.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	pipe, err := buildPipeline(logger, database, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	sched := worker.NewScheduler(store, &pipe.CollectSvc, pipe.DigestSvc, workerConfig, workerMetrics, healthServer, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")

	sched.Stop()
	// 送信済みジョブの埋め込み生成を待ってから落とす
	pipe.Hook.Wait()
	cancel()
	logger.Info("worker stopped")
	return nil
}

// startMetricsServer exposes the Prometheus registry on its own port so
// the scrape target stays up even while a job run is in flight.
func startMetricsServer(ctx context.Context, logger *slog.Logger) {
	port := 9090
	if v := os.Getenv("WORKER_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			port = p
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", hhttp.MetricsHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		}
	}()
}
