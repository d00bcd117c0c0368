package db

import (
	"database/sql"
	_ "embed"
	"fmt"

	"jobradar/pkg/config"
)

//go:embed seeds/sources.sql
var seedSourcesSQL string

// DefaultEmbeddingDim is the vector width of the default embedding model
// (nomic-embed-text).
const DefaultEmbeddingDim = 768

// EmbeddingDim returns the width of the job_embeddings vector column,
// from EMBEDDING_DIM. It must match the configured embedding model:
// the width is baked into the column type, and pgvector rejects inserts
// of any other width. Changing it after the table exists requires
// dropping job_embeddings and rebuilding the index.
func EmbeddingDim() int {
	dim := config.GetEnvInt("EMBEDDING_DIM", DefaultEmbeddingDim)
	if dim <= 0 {
		return DefaultEmbeddingDim
	}
	return dim
}

// MigrateUp creates the schema in dependency order and applies seed data.
// All statements are idempotent so the migration can run on every startup.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id              SERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    feed_url        TEXT NOT NULL UNIQUE,
    provider        VARCHAR(20) NOT NULL DEFAULT 'direct',
    category        TEXT,
    active          BOOLEAN DEFAULT TRUE,
    last_fetched_at TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
    id          SERIAL PRIMARY KEY,
    source_id   INTEGER REFERENCES sources(id),
    title       TEXT NOT NULL,
    url         TEXT NOT NULL,
    fingerprint VARCHAR(64) NOT NULL UNIQUE,
    company     TEXT,
    location    TEXT,
    description TEXT,
    content     TEXT,
    summary     TEXT,
    score       INTEGER NOT NULL DEFAULT 0,
    status      VARCHAR(20) NOT NULL DEFAULT 'new',
    posted_at   TIMESTAMPTZ,
    analyzed_at TIMESTAMPTZ,
    notified_at TIMESTAMPTZ,
    created_at  TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS digest_log (
    id        SERIAL PRIMARY KEY,
    sent_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    job_count INTEGER NOT NULL,
    recipient TEXT,
    status    VARCHAR(20) NOT NULL
)`); err != nil {
		return err
	}

	// pg_trgm拡張を有効化(ILIKE検索高速化用)
	// エラーを無視(既に存在する場合やスーパーユーザー権限がない場合)
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)

	// ILIKE検索用GINインデックス(キーワード検索高速化)
	// pg_trgm拡張がない場合はエラーになるため無視
	searchIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_jobs_title_gin ON jobs USING gin(title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_company_gin ON jobs USING gin(company gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_summary_gin ON jobs USING gin(summary gin_trgm_ops)`,
	}
	for _, idx := range searchIndexes {
		_, _ = db.Exec(idx)
	}

	indexes := []string{
		// ORDER BY posted_at DESC で使用(一覧・ダイジェスト共通)
		`CREATE INDEX IF NOT EXISTS idx_jobs_posted_at ON jobs(posted_at DESC)`,
		// ソース別絞り込み用
		`CREATE INDEX IF NOT EXISTS idx_jobs_source_id ON jobs(source_id)`,
		// ダイジェスト対象抽出用(WHERE status = 'analyzed' ORDER BY score DESC)
		`CREATE INDEX IF NOT EXISTS idx_jobs_status_score ON jobs(status, score DESC)`,
		// アクティブソース絞り込み用(WHERE active = TRUE)
		`CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(active) WHERE active = TRUE`,
		// ダイジェスト履歴の新しい順取得用
		`CREATE INDEX IF NOT EXISTS idx_digest_log_sent_at ON digest_log(sent_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// provider制約追加
	// PostgreSQL特有の制約構文のため、エラーを無視(既に存在する場合)
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_sources_provider'
    ) THEN
        ALTER TABLE sources ADD CONSTRAINT chk_sources_provider
        CHECK (provider IN ('miniflux', 'freshrss', 'direct'));
    END IF;
END $$;
`)

	// pgvector拡張を有効化
	// エラーを無視(既に存在する場合やスーパーユーザー権限がない場合)
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	// vector(N)は列型に次元数を焼き込む。違う幅のベクトルはINSERT時に
	// 拒否されるため、幅は設定中の埋め込みモデルと一致させる必要がある。
	// EMBEDDING_DIMで指定(既定はnomic-embed-textの768)。
	if _, err := db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS job_embeddings (
    id         SERIAL PRIMARY KEY,
    job_id     INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    provider   VARCHAR(50) NOT NULL,
    model      VARCHAR(100) NOT NULL,
    dimension  INT NOT NULL,
    embedding  vector(%d) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(job_id, provider, model)
)`, EmbeddingDim())); err != nil {
		return err
	}

	if _, err := db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_job_embeddings_job_id ON job_embeddings(job_id)`,
	); err != nil {
		return err
	}

	// IVFFlat ベクトル類似検索インデックス
	// エラーを無視(pgvector拡張がない場合にエラーとなるため)
	// lists=100 は <1M レコードに適した値
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_job_embeddings_vector
    ON job_embeddings USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	// シードデータの投入(重複は自動的にスキップ)
	if _, err := db.Exec(seedSourcesSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops the schema in reverse dependency order.
// Use with caution: this deletes all stored postings and history.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_job_embeddings_vector`,
		`DROP INDEX IF EXISTS idx_job_embeddings_job_id`,
		`DROP TABLE IF EXISTS job_embeddings CASCADE`,
		`DROP TABLE IF EXISTS digest_log CASCADE`,
		`DROP TABLE IF EXISTS jobs CASCADE`,
		`DROP TABLE IF EXISTS sources CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Note: the vector and pg_trgm extensions are left in place; other
	// databases on the same server may depend on them.

	return nil
}
