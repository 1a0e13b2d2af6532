package repositories

import (
	"strings"
	"time"

	"task-tracker/backend/internal/models"
)

const selectTaskColumns = "SELECT id, title, description, status, priority, due_date, created_at, updated_at FROM tasks"

// sortColumns is the closed set of columns a list may be ordered by. Only
// values from this map are ever written into the statement text.
var sortColumns = map[string]string{
	"title":      "title",
	"priority":   "priority",
	"status":     "status",
	"due_date":   "due_date",
	"dueDate":    "due_date",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
}

type predicate struct {
	clause string
	arg    interface{}
}

// TaskQueryBuilder assembles a list statement from optional criteria. Each
// predicate carries exactly one bound value, kept next to its clause so the
// argument order cannot drift from the clause order.
type TaskQueryBuilder struct {
	predicates []predicate
	orderBy    string
}

func NewTaskQueryBuilder() *TaskQueryBuilder {
	return &TaskQueryBuilder{}
}

func (b *TaskQueryBuilder) where(clause string, arg interface{}) *TaskQueryBuilder {
	b.predicates = append(b.predicates, predicate{clause: clause, arg: arg})
	return b
}

func (b *TaskQueryBuilder) WithStatus(s models.Status) *TaskQueryBuilder {
	return b.where("status = ?", s.String())
}

func (b *TaskQueryBuilder) WithPriority(p models.Priority) *TaskQueryBuilder {
	return b.where("priority = ?", p.String())
}

// WithTitleContaining matches a substring of the title. LIKE metacharacters
// in the value are escaped so they match literally.
func (b *TaskQueryBuilder) WithTitleContaining(s string) *TaskQueryBuilder {
	return b.where(`title LIKE ? ESCAPE '\'`, "%"+escapeLike(s)+"%")
}

func (b *TaskQueryBuilder) WithTag(tag string) *TaskQueryBuilder {
	return b.where("id IN (SELECT task_id FROM task_tags WHERE tag = ?)", tag)
}

func (b *TaskQueryBuilder) DueBefore(t time.Time) *TaskQueryBuilder {
	return b.where("due_date <= ?", FormatTime(t))
}

func (b *TaskQueryBuilder) DueAfter(t time.Time) *TaskQueryBuilder {
	return b.where("due_date >= ?", FormatTime(t))
}

func (b *TaskQueryBuilder) CreatedBefore(t time.Time) *TaskQueryBuilder {
	return b.where("created_at <= ?", FormatTime(t))
}

func (b *TaskQueryBuilder) CreatedAfter(t time.Time) *TaskQueryBuilder {
	return b.where("created_at >= ?", FormatTime(t))
}

// SortBy orders by field when it is in the allow-list and is a no-op
// otherwise. Any order other than "desc" sorts ascending.
func (b *TaskQueryBuilder) SortBy(field, order string) *TaskQueryBuilder {
	column, ok := sortColumns[field]
	if !ok {
		return b
	}
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}
	b.orderBy = column + " " + direction + ", id ASC"
	return b
}

// Build returns the statement and its arguments in placeholder order.
func (b *TaskQueryBuilder) Build() (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(selectTaskColumns)

	args := make([]interface{}, 0, len(b.predicates))
	for i, p := range b.predicates {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(p.clause)
		args = append(args, p.arg)
	}

	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}

	return sb.String(), args
}

// BuildListQuery applies every present criterion of q in a fixed order.
func BuildListQuery(q models.ListQuery) (string, []interface{}) {
	b := NewTaskQueryBuilder()
	if q.Status != nil {
		b.WithStatus(*q.Status)
	}
	if q.Priority != nil {
		b.WithPriority(*q.Priority)
	}
	if q.Title != nil {
		b.WithTitleContaining(*q.Title)
	}
	if q.Tag != nil {
		b.WithTag(*q.Tag)
	}
	if q.DueBefore != nil {
		b.DueBefore(*q.DueBefore)
	}
	if q.DueAfter != nil {
		b.DueAfter(*q.DueAfter)
	}
	if q.CreatedBefore != nil {
		b.CreatedBefore(*q.CreatedBefore)
	}
	if q.CreatedAfter != nil {
		b.CreatedAfter(*q.CreatedAfter)
	}
	if q.SortBy != "" {
		b.SortBy(q.SortBy, q.SortOrder)
	}
	return b.Build()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
