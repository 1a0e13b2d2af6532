package handlers

import (
	"strings"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// parseListQuery reads the camelCase list parameters. Every malformed
// parameter is reported, not just the first. Empty values count as absent.
func parseListQuery(c *gin.Context) (models.ListQuery, error) {
	var (
		q      models.ListQuery
		fields []models.FieldError
	)

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			fields = append(fields, models.FieldError{Field: "status", Message: err.Error()})
		} else {
			q.Status = &status
		}
	}
	if raw := c.Query("priority"); raw != "" {
		priority, err := models.ParsePriority(raw)
		if err != nil {
			fields = append(fields, models.FieldError{Field: "priority", Message: err.Error()})
		} else {
			q.Priority = &priority
		}
	}
	if raw := c.Query("title"); raw != "" {
		q.Title = &raw
	}
	if raw := c.Query("tag"); raw != "" {
		q.Tag = &raw
	}

	timeParams := []struct {
		name string
		dst  **time.Time
	}{
		{"dueBefore", &q.DueBefore},
		{"dueAfter", &q.DueAfter},
		{"createdBefore", &q.CreatedBefore},
		{"createdAfter", &q.CreatedAfter},
	}
	for _, p := range timeParams {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		// an unencoded '+' offset arrives as a space
		t, err := time.Parse(time.RFC3339Nano, strings.ReplaceAll(raw, " ", "+"))
		if err != nil {
			fields = append(fields, models.FieldError{Field: p.name, Message: "must be an RFC 3339 timestamp"})
			continue
		}
		t = t.UTC()
		*p.dst = &t
	}

	q.SortBy = c.Query("sortBy")
	q.SortOrder = c.Query("sortOrder")

	if len(fields) > 0 {
		return q, &models.ValidationError{Fields: fields}
	}
	return q, nil
}
