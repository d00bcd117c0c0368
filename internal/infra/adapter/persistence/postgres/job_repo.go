package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"jobradar/internal/domain/entity"
	"jobradar/internal/pkg/search"
	"jobradar/internal/repository"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

const jobColumns = `id, source_id, title, url, fingerprint, company, location, description, content,
       summary, score, status, posted_at, analyzed_at, notified_at, created_at`

type JobRepo struct {
	db           *sql.DB
	queryBuilder *JobQueryBuilder
}

func NewJobRepo(db *sql.DB) repository.JobRepository {
	return &JobRepo{
		db:           db,
		queryBuilder: NewJobQueryBuilder(),
	}
}

// scanJob reads one row of jobColumns into a Job entity.
func scanJob(rows *sql.Rows) (*entity.Job, error) {
	var job entity.Job
	var fingerprint string
	var status string
	var postedAt sql.NullTime
	if err := rows.Scan(
		&job.ID, &job.SourceID, &job.Title, &job.URL, &fingerprint,
		&job.Company, &job.Location, &job.Description, &job.Content,
		&job.Summary, &job.Score, &status,
		&postedAt, &job.AnalyzedAt, &job.NotifiedAt, &job.CreatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = entity.JobStatus(status)
	job.PostedAt = postedAt.Time
	return &job, nil
}

func (repo *JobRepo) ListWithSourcePaginated(ctx context.Context, filters repository.JobFilters, offset, limit int) ([]repository.JobWithSource, error) {
	whereClause, args := repo.queryBuilder.BuildWhereClause(nil, filters, "j")
	paramIndex := len(args) + 1
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
SELECT j.id, j.source_id, j.title, j.url, j.fingerprint, j.company, j.location, j.description, j.content,
       j.summary, j.score, j.status, j.posted_at, j.analyzed_at, j.notified_at, j.created_at,
       s.name AS source_name
FROM jobs j
INNER JOIN sources s ON j.source_id = s.id
%s
ORDER BY j.posted_at DESC
LIMIT $%d OFFSET $%d`, whereClause, paramIndex, paramIndex+1)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListWithSourcePaginated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.JobWithSource, 0, limit)
	for rows.Next() {
		var job entity.Job
		var fingerprint string
		var status string
		var postedAt sql.NullTime
		var sourceName string
		if err := rows.Scan(
			&job.ID, &job.SourceID, &job.Title, &job.URL, &fingerprint,
			&job.Company, &job.Location, &job.Description, &job.Content,
			&job.Summary, &job.Score, &status,
			&postedAt, &job.AnalyzedAt, &job.NotifiedAt, &job.CreatedAt,
			&sourceName,
		); err != nil {
			return nil, fmt.Errorf("ListWithSourcePaginated: Scan: %w", err)
		}
		job.Status = entity.JobStatus(status)
		job.PostedAt = postedAt.Time
		result = append(result, repository.JobWithSource{
			Job:        &job,
			SourceName: sourceName,
		})
	}
	return result, rows.Err()
}

// Count returns the number of postings matching the filters. Used for
// pagination metadata; the filters must match ListWithSourcePaginated.
func (repo *JobRepo) Count(ctx context.Context, filters repository.JobFilters) (int64, error) {
	whereClause, args := repo.queryBuilder.BuildWhereClause(nil, filters, "")
	query := "SELECT COUNT(*) FROM jobs " + whereClause

	var count int64
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (repo *JobRepo) Get(ctx context.Context, id int64) (*entity.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE id = $1
LIMIT 1`
	rows, err := repo.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	job, err := scanJob(rows)
	if err != nil {
		return nil, fmt.Errorf("Get: Scan: %w", err)
	}
	return job, rows.Err()
}

func (repo *JobRepo) GetWithSource(ctx context.Context, id int64) (*entity.Job, string, error) {
	const query = `
SELECT j.id, j.source_id, j.title, j.url, j.fingerprint, j.company, j.location, j.description, j.content,
       j.summary, j.score, j.status, j.posted_at, j.analyzed_at, j.notified_at, j.created_at,
       s.name AS source_name
FROM jobs j
INNER JOIN sources s ON j.source_id = s.id
WHERE j.id = $1
LIMIT 1`
	var job entity.Job
	var fingerprint string
	var status string
	var postedAt sql.NullTime
	var sourceName string
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.SourceID, &job.Title, &job.URL, &fingerprint,
		&job.Company, &job.Location, &job.Description, &job.Content,
		&job.Summary, &job.Score, &status,
		&postedAt, &job.AnalyzedAt, &job.NotifiedAt, &job.CreatedAt,
		&sourceName,
	)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("GetWithSource: %w", err)
	}
	job.Status = entity.JobStatus(status)
	job.PostedAt = postedAt.Time
	return &job, sourceName, nil
}

func (repo *JobRepo) Search(ctx context.Context, keywords []string, filters repository.JobFilters) ([]*entity.Job, error) {
	// No keywords and no filters -> empty result, not a full table dump
	if !hasConditions(keywords, filters) {
		return []*entity.Job{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	whereClause, args := repo.queryBuilder.BuildWhereClause(keywords, filters, "")

	query := fmt.Sprintf(`
SELECT `+jobColumns+`
FROM jobs
%s
ORDER BY posted_at DESC`, whereClause)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*entity.Job, 0, 100)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("Search: Scan: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (repo *JobRepo) Create(ctx context.Context, job *entity.Job) error {
	const query = `
INSERT INTO jobs
       (source_id, title, url, fingerprint, company, location, description, content,
        summary, score, status, posted_at, analyzed_at, notified_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		job.SourceID, job.Title, job.URL, job.Fingerprint(),
		job.Company, job.Location, job.Description, job.Content,
		job.Summary, job.Score, string(job.Status),
		job.PostedAt, job.AnalyzedAt, job.NotifiedAt, job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("Create: %w", entity.ErrDuplicateJob)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *JobRepo) Update(ctx context.Context, job *entity.Job) error {
	const query = `
UPDATE jobs SET
       source_id   = $1,
       title       = $2,
       url         = $3,
       fingerprint = $4,
       company     = $5,
       location    = $6,
       description = $7,
       content     = $8,
       summary     = $9,
       score       = $10,
       status      = $11,
       posted_at   = $12,
       analyzed_at = $13,
       notified_at = $14
WHERE id = $15`
	res, err := repo.db.ExecContext(ctx, query,
		job.SourceID, job.Title, job.URL, job.Fingerprint(),
		job.Company, job.Location, job.Description, job.Content,
		job.Summary, job.Score, string(job.Status),
		job.PostedAt, job.AnalyzedAt, job.NotifiedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *JobRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM jobs WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *JobRepo) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM jobs WHERE fingerprint = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, fingerprint).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("ExistsByFingerprint: %w", err)
	}
	return existsFlag, nil
}

// ExistsByFingerprintBatch はバッチで存在チェックを行い、N+1問題を解消する
func (repo *JobRepo) ExistsByFingerprintBatch(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	if len(fingerprints) == 0 {
		return make(map[string]bool), nil
	}

	// pgxドライバが[]stringを配列パラメータに変換する
	const query = `SELECT fingerprint FROM jobs WHERE fingerprint = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("ExistsByFingerprintBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var fingerprint string
		if err := rows.Scan(&fingerprint); err != nil {
			return nil, fmt.Errorf("ExistsByFingerprintBatch: Scan: %w", err)
		}
		result[fingerprint] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByFingerprintBatch: rows.Err: %w", err)
	}

	return result, nil
}

// ListUnnotified returns analyzed postings that have not been sent in a
// digest, best scored first.
func (repo *JobRepo) ListUnnotified(ctx context.Context, limit int) ([]*entity.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = $1
ORDER BY score DESC, posted_at DESC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, string(entity.JobStatusAnalyzed), limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnnotified: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*entity.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUnnotified: Scan: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (repo *JobRepo) MarkNotified(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	const query = `
UPDATE jobs SET
       status      = $1,
       notified_at = $2
WHERE id = ANY($3)`
	res, err := repo.db.ExecContext(ctx, query, string(entity.JobStatusNotified), at, ids)
	if err != nil {
		return fmt.Errorf("MarkNotified: %w", err)
	}
	if n, _ := res.RowsAffected(); n != int64(len(ids)) {
		return fmt.Errorf("MarkNotified: updated %d of %d rows", n, len(ids))
	}
	return nil
}

func (repo *JobRepo) CountByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	const query = `
SELECT status, COUNT(*)
FROM jobs
GROUP BY status
ORDER BY status ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make([]repository.StatusCount, 0, 4)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("CountByStatus: Scan: %w", err)
		}
		counts = append(counts, repository.StatusCount{
			Status: entity.JobStatus(status),
			Count:  count,
		})
	}
	return counts, rows.Err()
}

func (repo *JobRepo) CountBySource(ctx context.Context) ([]repository.SourceCount, error) {
	const query = `
SELECT s.id, s.name, COUNT(j.id)
FROM sources s
LEFT JOIN jobs j ON j.source_id = s.id
GROUP BY s.id, s.name
ORDER BY COUNT(j.id) DESC, s.id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make([]repository.SourceCount, 0, 10)
	for rows.Next() {
		var count repository.SourceCount
		if err := rows.Scan(&count.SourceID, &count.SourceName, &count.Count); err != nil {
			return nil, fmt.Errorf("CountBySource: Scan: %w", err)
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

// ScoreHistogram counts scored postings per score value. Only postings that
// passed analysis carry a meaningful score.
func (repo *JobRepo) ScoreHistogram(ctx context.Context) (map[int]int64, error) {
	const query = `
SELECT score, COUNT(*)
FROM jobs
WHERE status IN ($1, $2)
GROUP BY score`
	rows, err := repo.db.QueryContext(ctx, query,
		string(entity.JobStatusAnalyzed), string(entity.JobStatusNotified))
	if err != nil {
		return nil, fmt.Errorf("ScoreHistogram: %w", err)
	}
	defer func() { _ = rows.Close() }()

	histogram := make(map[int]int64)
	for rows.Next() {
		var score int
		var count int64
		if err := rows.Scan(&score, &count); err != nil {
			return nil, fmt.Errorf("ScoreHistogram: Scan: %w", err)
		}
		histogram[score] = count
	}
	return histogram, rows.Err()
}
