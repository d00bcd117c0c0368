// Package source provides HTTP handlers for feed source endpoints.
package source

import (
	"time"

	"jobradar/internal/domain/entity"
)

// DTO is the JSON representation of a feed source.
type DTO struct {
	ID            int64      `json:"id" example:"1"`
	Name          string     `json:"name" example:"HN Who is Hiring"`
	FeedURL       string     `json:"feed_url" example:"https://hnrss.org/whoishiring/jobs"`
	Provider      string     `json:"provider" example:"miniflux"`
	Category      string     `json:"category,omitempty" example:"tech"`
	Active        bool       `json:"active" example:"true"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
}

func toDTO(e *entity.Source) DTO {
	return DTO{
		ID:            e.ID,
		Name:          e.Name,
		FeedURL:       e.FeedURL,
		Provider:      string(e.Provider),
		Category:      e.Category,
		Active:        e.Active,
		LastFetchedAt: e.LastFetchedAt,
	}
}
