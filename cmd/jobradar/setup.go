package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	pgRepo "jobradar/internal/infra/adapter/persistence/postgres"
	srcUC "jobradar/internal/usecase/source"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initialize the config file and database schema",
	Long: `setup writes a starter config file when none exists, runs the
database migrations (including the seed sources), and imports the
rss_feeds entries from the config file as sources.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup()
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup() error {
	logger := initLogger()

	store, err := loadStore()
	if err != nil {
		return err
	}
	logger.Info("config file ready", slog.String("path", store.Path()))

	database, err := openDatabase(logger)
	if err != nil {
		return err
	}
	defer closeDatabase(logger, database)
	logger.Info("database migrated")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 設定ファイルの rss_feeds をソース表に取り込む。再実行しても重複しない。
	svc := srcUC.Service{Repo: pgRepo.NewSourceRepo(database)}
	app := store.Get()
	provider := app.ResolveProvider()
	imported := 0
	for _, feed := range app.RSSFeeds {
		err := svc.Create(ctx, srcUC.CreateInput{
			Name:     feed.Name,
			FeedURL:  feed.URL,
			Provider: provider,
			Category: feed.Category,
		})
		if errors.Is(err, srcUC.ErrDuplicateSource) {
			continue
		}
		if err != nil {
			logger.Warn("skipping feed", slog.String("name", feed.Name), slog.Any("error", err))
			continue
		}
		imported++
	}
	logger.Info("setup completed",
		slog.Int("feeds_in_config", len(app.RSSFeeds)),
		slog.Int("imported", imported))
	return nil
}
