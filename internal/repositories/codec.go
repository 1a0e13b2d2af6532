package repositories

import (
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
)

// TimeLayout is RFC3339 with a fixed nine digit fraction. Every stored
// timestamp is UTC in this layout, so string order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TaskRow is the flat text representation of a task in the tasks table.
type TaskRow struct {
	ID          string  `gorm:"column:id"`
	Title       string  `gorm:"column:title"`
	Description string  `gorm:"column:description"`
	Status      string  `gorm:"column:status"`
	Priority    string  `gorm:"column:priority"`
	DueDate     *string `gorm:"column:due_date"`
	CreatedAt   string  `gorm:"column:created_at"`
	UpdatedAt   string  `gorm:"column:updated_at"`
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// EncodeTask converts a task into its row form. Tags are stored separately.
func EncodeTask(task models.Task) TaskRow {
	return TaskRow{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status.String(),
		Priority:    task.Priority.String(),
		DueDate:     formatOptionalTime(task.DueDate),
		CreatedAt:   FormatTime(task.CreatedAt),
		UpdatedAt:   FormatTime(task.UpdatedAt),
	}
}

// DecodeTask rebuilds a task from its row and tag relation rows. Any column
// that does not parse yields a DecodeError naming that column.
func DecodeTask(row TaskRow, tags []string) (models.Task, error) {
	id, err := uuid.FromString(row.ID)
	if err != nil {
		return models.Task{}, &DecodeError{Field: "id", Value: row.ID, Err: err}
	}

	status, err := models.ParseStatus(row.Status)
	if err != nil {
		return models.Task{}, &DecodeError{Field: "status", Value: row.Status, Err: err}
	}

	priority, err := models.ParsePriority(row.Priority)
	if err != nil {
		return models.Task{}, &DecodeError{Field: "priority", Value: row.Priority, Err: err}
	}

	var dueDate *time.Time
	if row.DueDate != nil {
		due, err := parseTime("due_date", *row.DueDate)
		if err != nil {
			return models.Task{}, err
		}
		dueDate = &due
	}

	createdAt, err := parseTime("created_at", row.CreatedAt)
	if err != nil {
		return models.Task{}, err
	}

	updatedAt, err := parseTime("updated_at", row.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}

	if tags == nil {
		tags = []string{}
	}

	return models.Task{
		ID:          id,
		Title:       row.Title,
		Description: row.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Tags:        tags,
	}, nil
}

func parseTime(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, &DecodeError{Field: field, Value: raw, Err: err}
	}
	return t.UTC(), nil
}
