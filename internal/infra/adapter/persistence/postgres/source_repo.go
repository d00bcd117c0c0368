package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobradar/internal/domain/entity"
	"jobradar/internal/repository"
)

const sourceColumns = `id, name, feed_url, provider, category, active, last_fetched_at`

type SourceRepo struct{ db *sql.DB }

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

// scanSource reads one row of sourceColumns into a Source entity.
func scanSource(rows *sql.Rows) (*entity.Source, error) {
	var source entity.Source
	var provider string
	var category sql.NullString
	if err := rows.Scan(
		&source.ID, &source.Name, &source.FeedURL, &provider,
		&category, &source.Active, &source.LastFetchedAt,
	); err != nil {
		return nil, err
	}
	source.Provider = entity.Provider(provider)
	source.Category = category.String
	return &source, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	query := `
SELECT ` + sourceColumns + `
FROM sources
WHERE id = $1
LIMIT 1`
	var source entity.Source
	var provider string
	var category sql.NullString
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&source.ID, &source.Name, &source.FeedURL, &provider,
		&category, &source.Active, &source.LastFetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	source.Provider = entity.Provider(provider)
	source.Category = category.String
	return &source, nil
}

// GetByName retrieves a source by its exact name. Reader-backed providers
// deliver entries keyed by feed title, which is matched against this.
func (repo *SourceRepo) GetByName(ctx context.Context, name string) (*entity.Source, error) {
	query := `
SELECT ` + sourceColumns + `
FROM sources
WHERE name = $1
LIMIT 1`
	var source entity.Source
	var provider string
	var category sql.NullString
	err := repo.db.QueryRowContext(ctx, query, name).Scan(
		&source.ID, &source.Name, &source.FeedURL, &provider,
		&category, &source.Active, &source.LastFetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByName: %w", err)
	}
	source.Provider = entity.Provider(provider)
	source.Category = category.String
	return &source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	query := `
SELECT ` + sourceColumns + `
FROM sources
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	query := `
SELECT ` + sourceColumns + `
FROM sources
WHERE active = TRUE
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Search(ctx context.Context, keyword string) ([]*entity.Source, error) {
	query := `
SELECT ` + sourceColumns + `
FROM sources
WHERE name     ILIKE $1
   OR feed_url ILIKE $1
ORDER BY id ASC`
	param := "%" + keyword + "%"
	rows, err := repo.db.QueryContext(ctx, query, param)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, source *entity.Source) error {
	// 空のProviderはdirectとみなす（後方互換性）
	if source.Provider == "" {
		source.Provider = entity.ProviderDirect
	}

	const query = `
INSERT INTO sources (name, feed_url, provider, category, active, last_fetched_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		source.Name, source.FeedURL, string(source.Provider),
		source.Category, source.Active, source.LastFetchedAt,
	).Scan(&source.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *SourceRepo) Update(ctx context.Context, source *entity.Source) error {
	if source.Provider == "" {
		source.Provider = entity.ProviderDirect
	}

	const query = `
UPDATE sources SET
       name            = $1,
       feed_url        = $2,
       provider        = $3,
       category        = $4,
       active          = $5,
       last_fetched_at = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, query,
		source.Name, source.FeedURL, string(source.Provider),
		source.Category, source.Active, source.LastFetchedAt, source.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *SourceRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM sources WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *SourceRepo) TouchFetchedAt(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE sources SET last_fetched_at = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}
