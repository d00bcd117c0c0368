package repository

import (
	"context"

	"jobradar/internal/domain/entity"
)

// DigestRepository records the digest send history.
type DigestRepository interface {
	Create(ctx context.Context, record *entity.DigestRecord) error
	// ListRecent returns the most recent digest records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*entity.DigestRecord, error)
}
