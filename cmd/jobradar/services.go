package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	pgRepo "jobradar/internal/infra/adapter/persistence/postgres"
	"jobradar/internal/infra/analyzer"
	"jobradar/internal/infra/db"
	"jobradar/internal/infra/feedreader"
	"jobradar/internal/infra/fetcher"
	"jobradar/internal/infra/mailer"
	appcfg "jobradar/internal/pkg/config"
	"jobradar/internal/usecase/collect"
	digestUC "jobradar/internal/usecase/digest"
	jobUC "jobradar/internal/usecase/job"
	searchUC "jobradar/internal/usecase/search"
	srcUC "jobradar/internal/usecase/source"
)

// pipeline wires the repositories, providers, and usecase services shared
// by serve, worker, fetch, and digest.
type pipeline struct {
	JobSvc     jobUC.Service
	SrcSvc     srcUC.Service
	SearchSvc  searchUC.Service
	CollectSvc collect.Service
	DigestSvc  *digestUC.Service
	Hook       *searchUC.EmbeddingHook
}

// buildPipeline constructs the full collection and delivery pipeline from
// the config file and environment. Optional stages (embeddings, content
// fetching) degrade to disabled instead of failing startup.
func buildPipeline(logger *slog.Logger, database *sql.DB, store *appcfg.Store) (*pipeline, error) {
	app := store.Get()

	srcRepo := pgRepo.NewSourceRepo(database)
	jobRepo := pgRepo.NewJobRepo(database)
	embRepo := pgRepo.NewJobEmbeddingRepo(database)
	digestRepo := pgRepo.NewDigestRepo(database)

	provider := app.ResolveProvider()
	feedClient, err := feedreader.New(provider, feedreader.LoadConfig())
	if err != nil {
		return nil, fmt.Errorf("create feed client: %w", err)
	}
	logger.Info("feed provider resolved", slog.String("provider", string(provider)))

	anaCfg, err := analyzer.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load analyzer config: %w", err)
	}
	applyAnalysisOverrides(&anaCfg, app)

	an, err := analyzer.New(anaCfg)
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}
	logger.Info("analyzer initialized",
		slog.String("type", anaCfg.Type),
		slog.String("model", anaCfg.Model),
		slog.String("filter_model", anaCfg.FilterModel))

	// 埋め込みは任意機能。失敗してもパイプライン自体は動かす。
	embedder, err := analyzer.NewEmbedder(anaCfg)
	if err != nil {
		logger.Warn("embeddings disabled", slog.Any("error", err))
		embedder = nil
	}

	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("content fetching disabled due to configuration error", slog.Any("error", err))
		fetchCfg = fetcher.DefaultConfig()
		fetchCfg.Enabled = false
	}
	var contentFetcher collect.ContentFetcher
	if fetchCfg.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(fetchCfg)
		logger.Info("content fetching enabled",
			slog.Int("threshold", fetchCfg.Threshold),
			slog.Int("parallelism", fetchCfg.Parallelism),
			slog.Duration("timeout", fetchCfg.Timeout))
	}

	searchSvc := searchUC.NewService(jobRepo, embRepo, embedder, anaCfg.Type)
	if expander, ok := an.(searchUC.QueryExpander); ok {
		searchSvc.Expander = expander
	}
	if embedder != nil {
		// スキーマのベクトル幅とモデルの次元数が食い違うと全ての
		// INSERTが失敗する。既知モデルは起動時点で弾く。
		schemaDim := db.EmbeddingDim()
		if dim, ok := analyzer.KnownEmbeddingDim(anaCfg.EmbeddingModel); ok && dim != schemaDim {
			return nil, fmt.Errorf(
				"embedding model %s produces %d-dimensional vectors but the job_embeddings column is vector(%d); set EMBEDDING_DIM=%d and recreate the table, or pick a model matching the schema",
				anaCfg.EmbeddingModel, dim, schemaDim, dim)
		}
		searchSvc.ExpectedDim = schemaDim
	}
	hook := searchUC.NewEmbeddingHook(&searchSvc, embedder != nil)

	collectSvc := collect.NewService(
		srcRepo,
		jobRepo,
		feedClient,
		contentFetcher,
		an,
		hook,
		collect.Config{
			ScoreThreshold:     app.RelevanceThreshold,
			ContentParallelism: fetchCfg.Parallelism,
			ContentThreshold:   fetchCfg.Threshold,
		},
	)
	collectSvc.Cursor = readerCursor{store}

	mailers, recipients := buildMailers(logger, app)
	digestSvc := digestUC.NewService(jobRepo, digestRepo, mailers, recipients)

	return &pipeline{
		JobSvc:     jobUC.Service{Repo: jobRepo},
		SrcSvc:     srcUC.Service{Repo: srcRepo},
		SearchSvc:  searchSvc,
		CollectSvc: collectSvc,
		DigestSvc:  digestSvc,
		Hook:       hook,
	}, nil
}

// readerCursor adapts the YAML config store to collect.FetchCursor: the
// reader fetch high-water mark lives in the config file so restarts do not
// re-pull the reader's history.
type readerCursor struct{ store *appcfg.Store }

func (c readerCursor) LastReaderFetch() time.Time {
	raw := c.store.Get().LastReaderFetch
	if raw == "" {
		return time.Time{}
	}
	mark, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		slog.Warn("invalid last_reader_fetch in config file, ignoring",
			slog.String("value", raw))
		return time.Time{}
	}
	return mark
}

func (c readerCursor) SetLastReaderFetch(t time.Time) error {
	return c.store.SetLastReaderFetch(t.UTC().Format(time.RFC3339))
}

// applyAnalysisOverrides overlays the config-file analysis settings onto
// the env-derived analyzer config. The file wins where a field is set.
func applyAnalysisOverrides(cfg *analyzer.Config, app appcfg.AppConfig) {
	if app.Analysis.Model != "" {
		cfg.Model = app.Analysis.Model
	}
	if app.Analysis.FilterModel != "" {
		cfg.FilterModel = app.Analysis.FilterModel
	}
	if app.Analysis.Temperature > 0 {
		cfg.Temperature = app.Analysis.Temperature
	}
	if app.Analysis.NumPredict > 0 {
		cfg.MaxTokens = app.Analysis.NumPredict
	}
	if len(app.Keywords) > 0 {
		cfg.Profile.Keywords = app.Keywords
	}
	if app.RecruitmentFilters.RequiredDegree != "" {
		cfg.Profile.RequiredDegree = app.RecruitmentFilters.RequiredDegree
	}
	if app.RecruitmentFilters.CitizenshipRequirement != "" {
		cfg.Profile.CitizenshipRequirement = app.RecruitmentFilters.CitizenshipRequirement
	}
}

// buildMailers creates the ordered provider list for digest delivery:
// the configured primary first, then Resend as a fallback when the
// primary is Gmail and a Resend API key is present. A misconfigured
// mailer degrades to noop so collection keeps working without delivery.
func buildMailers(logger *slog.Logger, app appcfg.AppConfig) ([]mailer.Mailer, []string) {
	cfg, err := mailer.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("mail delivery disabled due to configuration error", slog.Any("error", err))
		return []mailer.Mailer{mailer.NewNoOp()}, nil
	}

	// 設定ファイルの宛先・差出人が環境変数より優先
	if app.Email.Recipient != "" {
		cfg.Recipients = []string{app.Email.Recipient}
	}
	if app.Email.Sender != "" {
		cfg.From = app.Email.Sender
	}

	primary, err := mailer.New(cfg)
	if err != nil {
		logger.Warn("mail provider unavailable, digests will be recorded but not sent",
			slog.String("provider", string(cfg.Provider)),
			slog.Any("error", err))
		return []mailer.Mailer{mailer.NewNoOp()}, cfg.Recipients
	}

	mailers := []mailer.Mailer{primary}
	if cfg.Provider == mailer.ProviderGmail && cfg.ResendAPIKey != "" {
		fallbackCfg := cfg
		fallbackCfg.Provider = mailer.ProviderResend
		fallback, err := mailer.New(fallbackCfg)
		if err != nil {
			logger.Warn("resend fallback unavailable", slog.Any("error", err))
		} else {
			mailers = append(mailers, fallback)
			logger.Info("resend fallback enabled")
		}
	}

	logger.Info("mail delivery configured",
		slog.String("provider", primary.Name()),
		slog.Int("providers", len(mailers)),
		slog.Int("recipients", len(cfg.Recipients)))
	return mailers, cfg.Recipients
}
