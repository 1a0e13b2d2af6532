package services

import (
	"context"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
)

// TaskService is the set of task operations the HTTP layer calls.
// *repositories.TaskRepository implements it directly.
type TaskService interface {
	CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (models.Task, error)
	ListTasks(ctx context.Context, q models.ListQuery) ([]models.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, req models.UpdateTaskRequest) (models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	AddTag(ctx context.Context, id uuid.UUID, tag string) error
	RemoveTag(ctx context.Context, id uuid.UUID, tag string) error
}
