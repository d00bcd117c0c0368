package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"jobradar/internal/domain/entity"
	"jobradar/internal/repository"
)

// DigestRepo records digest send history in PostgreSQL.
type DigestRepo struct{ db *sql.DB }

func NewDigestRepo(db *sql.DB) repository.DigestRepository {
	return &DigestRepo{db: db}
}

func (repo *DigestRepo) Create(ctx context.Context, record *entity.DigestRecord) error {
	const query = `
INSERT INTO digest_log (sent_at, job_count, recipient, status)
VALUES ($1, $2, $3, $4)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		record.SentAt, record.JobCount, record.Recipient, string(record.Status),
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *DigestRepo) ListRecent(ctx context.Context, limit int) ([]*entity.DigestRecord, error) {
	if limit <= 0 {
		limit = 30
	}

	const query = `
SELECT id, sent_at, job_count, recipient, status
FROM digest_log
ORDER BY sent_at DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.DigestRecord, 0, limit)
	for rows.Next() {
		var record entity.DigestRecord
		var recipient sql.NullString
		var status string
		if err := rows.Scan(&record.ID, &record.SentAt, &record.JobCount, &recipient, &status); err != nil {
			return nil, fmt.Errorf("ListRecent: Scan: %w", err)
		}
		record.Recipient = recipient.String
		record.Status = entity.DigestStatus(status)
		records = append(records, &record)
	}
	return records, rows.Err()
}
