package repository

import (
	"context"
	"time"

	"jobradar/internal/domain/entity"
)

type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	// GetByName retrieves a source by its exact name.
	// Returns (nil, nil) if no source matches. Reader-backed providers
	// deliver entries keyed by feed title, which is matched against this.
	GetByName(ctx context.Context, name string) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListActive(ctx context.Context) ([]*entity.Source, error)
	Search(ctx context.Context, keyword string) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	Update(ctx context.Context, source *entity.Source) error
	Delete(ctx context.Context, id int64) error
	// TouchFetchedAt records the completion time of the latest fetch.
	TouchFetchedAt(ctx context.Context, id int64, t time.Time) error
}
