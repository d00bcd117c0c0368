package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jobradar/internal/infra/db"
	appcfg "jobradar/internal/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jobradar",
	Short: "Personal job-posting radar",
	Long: `jobradar collects job postings from RSS/Atom feeds and feed-reader
APIs, scores them against a personal search profile with an LLM, and
delivers a daily email digest of the relevant ones.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .envはローカル開発用。既存の環境変数が優先される。
		return appcfg.LoadDotenv()
	},
}

// Execute runs the root command. Subcommands report failures through
// RunE, so a non-nil error here already carries the message.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(),
		"path to the YAML config file")
}

func defaultConfigPath() string {
	if p := os.Getenv("JOBRADAR_CONFIG"); p != "" {
		return p
	}
	return "jobradar.yaml"
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// loadStore opens the YAML config store, creating the file with defaults
// when it does not exist yet.
func loadStore() (*appcfg.Store, error) {
	store, err := appcfg.NewStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return store, nil
}

// openDatabase opens the database and runs migrations. Migrations are
// idempotent, so every long-running command may call this safely.
func openDatabase(logger *slog.Logger) (*sql.DB, error) {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		closeDatabase(logger, database)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database, nil
}

func closeDatabase(logger *slog.Logger, database *sql.DB) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", slog.Any("error", err))
	}
}

// waitForMigrations blocks until the schema exists. Used by the worker,
// which may start before the serve process has migrated.
func waitForMigrations(logger *slog.Logger, database *sql.DB) error {
	const probe = "SELECT 1 FROM sources LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return nil
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("migrations did not complete in time")
}
