// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"fmt"
	"strings"

	"jobradar/internal/pkg/search"
	"jobradar/internal/repository"
)

// JobQueryBuilder builds WHERE clauses for job listing and search.
// The builder is shared between COUNT and SELECT queries so both always
// apply the same conditions. PostgreSQL-specific: ILIKE and $N placeholders.
type JobQueryBuilder struct{}

// NewJobQueryBuilder creates a new query builder instance.
func NewJobQueryBuilder() *JobQueryBuilder {
	return &JobQueryBuilder{}
}

// BuildWhereClause builds the WHERE clause and argument list for the given
// keywords and filters. Keywords use AND logic; each keyword matches title,
// company, or summary case-insensitively. Returns an empty clause when no
// conditions apply.
func (qb *JobQueryBuilder) BuildWhereClause(keywords []string, filters repository.JobFilters, tableAlias string) (clause string, args []interface{}) {
	col := func(name string) string {
		if tableAlias != "" {
			return tableAlias + "." + name
		}
		return name
	}

	var conditions []string
	paramIndex := 1

	for _, keyword := range keywords {
		conditions = append(conditions, fmt.Sprintf(
			"(%s ILIKE $%d OR %s ILIKE $%d OR %s ILIKE $%d)",
			col("title"), paramIndex, col("company"), paramIndex, col("summary"), paramIndex))
		args = append(args, search.EscapeILIKE(keyword))
		paramIndex++
	}

	if filters.SourceID != nil {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", col("source_id"), paramIndex))
		args = append(args, *filters.SourceID)
		paramIndex++
	}

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", col("status"), paramIndex))
		args = append(args, string(*filters.Status))
		paramIndex++
	}

	if filters.MinScore != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", col("score"), paramIndex))
		args = append(args, *filters.MinScore)
		paramIndex++
	}

	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", col("posted_at"), paramIndex))
		args = append(args, *filters.From)
		paramIndex++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", col("posted_at"), paramIndex))
		args = append(args, *filters.To)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// hasConditions reports whether the keyword/filter combination would
// produce at least one WHERE condition.
func hasConditions(keywords []string, filters repository.JobFilters) bool {
	return len(keywords) > 0 ||
		filters.SourceID != nil ||
		filters.Status != nil ||
		filters.MinScore != nil ||
		filters.From != nil ||
		filters.To != nil
}
