// Package job provides HTTP handlers for job posting endpoints.
// It includes handlers for listing, searching, retrieving, updating, and
// deleting postings, plus the semantic search and stats endpoints.
package job

import (
	"time"

	"jobradar/internal/domain/entity"
)

// DTO represents the JSON structure for job posting data transfer.
type DTO struct {
	ID         int64      `json:"id" example:"1"`
	SourceID   int64      `json:"source_id" example:"1"`
	SourceName string     `json:"source_name,omitempty" example:"HN Who is Hiring"`
	Title      string     `json:"title" example:"Senior Go Engineer"`
	URL        string     `json:"url" example:"https://example.com/jobs/1"`
	Company    string     `json:"company,omitempty" example:"Example Corp"`
	Location   string     `json:"location,omitempty" example:"Remote (EU)"`
	Score      int        `json:"score" example:"8"`
	Status     string     `json:"status" example:"analyzed"`
	Summary    string     `json:"summary,omitempty" example:"## 求人概要\n..."`
	PostedAt   time.Time  `json:"posted_at" example:"2026-08-20T10:00:00Z"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" example:"2026-08-20T12:00:00Z"`
}

// toDTO converts a posting and its source name into the transfer shape.
func toDTO(j *entity.Job, sourceName string) DTO {
	return DTO{
		ID:         j.ID,
		SourceID:   j.SourceID,
		SourceName: sourceName,
		Title:      j.Title,
		URL:        j.URL,
		Company:    j.Company,
		Location:   j.Location,
		Score:      j.Score,
		Status:     string(j.Status),
		Summary:    j.Summary,
		PostedAt:   j.PostedAt,
		AnalyzedAt: j.AnalyzedAt,
		NotifiedAt: j.NotifiedAt,
		CreatedAt:  j.CreatedAt,
	}
}
