package job

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"jobradar/internal/domain/entity"
	"jobradar/internal/repository"
)

// parseFilters builds posting filters from query parameters. All filters
// are optional; an empty query yields the zero filter set.
//
// Supported parameters:
//   - status:    processing status (new, analyzed, notified, rejected)
//   - min_score: minimum relevance score (0-10)
//   - source_id: numeric source ID
//   - from, to:  posted-at date range (RFC 3339 or 2006-01-02)
func parseFilters(r *http.Request) (repository.JobFilters, error) {
	var filters repository.JobFilters
	q := r.URL.Query()

	if statusStr := q.Get("status"); statusStr != "" {
		status := entity.JobStatus(statusStr)
		if !status.Valid() {
			return filters, fmt.Errorf("invalid status: %q", statusStr)
		}
		filters.Status = &status
	}

	if scoreStr := q.Get("min_score"); scoreStr != "" {
		score, err := strconv.Atoi(scoreStr)
		if err != nil {
			return filters, errors.New("invalid min_score: must be an integer")
		}
		if score < entity.MinScore || score > entity.MaxScore {
			return filters, fmt.Errorf("invalid min_score: must be between %d and %d", entity.MinScore, entity.MaxScore)
		}
		filters.MinScore = &score
	}

	if sourceIDStr := q.Get("source_id"); sourceIDStr != "" {
		sourceID, err := strconv.ParseInt(sourceIDStr, 10, 64)
		if err != nil {
			return filters, errors.New("invalid source_id: must be a valid integer")
		}
		if sourceID <= 0 {
			return filters, errors.New("invalid source_id: must be positive")
		}
		filters.SourceID = &sourceID
	}

	if fromStr := q.Get("from"); fromStr != "" {
		from, err := parseDate(fromStr)
		if err != nil {
			return filters, fmt.Errorf("invalid from date: %w", err)
		}
		filters.From = &from
	}

	if toStr := q.Get("to"); toStr != "" {
		to, err := parseDate(toStr)
		if err != nil {
			return filters, fmt.Errorf("invalid to date: %w", err)
		}
		filters.To = &to
	}

	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return filters, errors.New("invalid date range: from date must be before or equal to to date")
	}

	return filters, nil
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}
