package main

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the digest email now",
	Long: `digest sends one digest of the relevant postings stored since the
last successful send. Postings without new matches produce a skipped
record and no email.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDigest()
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}

func runDigest() error {
	logger := initLogger()

	database, err := openDatabase(logger)
	if err != nil {
		return err
	}
	defer closeDatabase(logger, database)

	store, err := loadStore()
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(logger, database, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	record, err := pipe.DigestSvc.Send(ctx)
	if err != nil {
		return err
	}

	logger.Info("digest finished",
		slog.String("status", string(record.Status)),
		slog.Int("jobs", record.JobCount),
		slog.String("recipient", record.Recipient))
	return nil
}
