package main

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var fetchReanalyze bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one collection cycle now",
	Long: `fetch syncs the active sources to the feed provider, pulls new
entries, scores them, and stores the results. With --reanalyze it
instead re-runs analysis over already-stored relevant postings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch()
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchReanalyze, "reanalyze", false,
		"re-run analysis on stored postings instead of collecting new ones")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch() error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if fetchReanalyze {
		stats, err := pipe.CollectSvc.Reanalyze(ctx)
		if err != nil {
			return err
		}
		logger.Info("reanalysis completed",
			slog.Int64("analyzed", stats.Analyzed),
			slog.Int64("analysis_errors", stats.AnalysisErrors),
			slog.Duration("duration", stats.Duration))
		return nil
	}

	if err := pipe.CollectSvc.SyncSources(ctx); err != nil {
		// 同期失敗は致命的ではない。既存の購読分で収集は続けられる。
		logger.Warn("source sync failed", slog.Any("error", err))
	}

	stats, err := pipe.CollectSvc.Run(ctx)
	if err != nil {
		return err
	}
	// 保留中の埋め込み生成を flush してから終了する
	pipe.Hook.Wait()

	logger.Info("collection completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("entries", stats.Entries),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicated", stats.Duplicated),
		slog.Int64("rejected", stats.Rejected),
		slog.Int64("analyzed", stats.Analyzed),
		slog.Int64("relevance_errors", stats.RelevanceErrors),
		slog.Int64("analysis_errors", stats.AnalysisErrors),
		slog.Duration("duration", stats.Duration))
	return nil
}
