package services

import (
	"context"
	"errors"
	"time"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

const DefaultTaskTTL = 30 * time.Minute

// CachedTaskService serves single-task reads from the cache and drops the
// cached entry on every mutation of that task. Lists always go to storage.
// Cache failures are logged and never fail the request.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	ttl         time.Duration
	logger      log.FieldLogger
}

func NewCachedTaskService(taskService TaskService, c cache.Cache, ttl time.Duration, logger log.FieldLogger) *CachedTaskService {
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &CachedTaskService{
		taskService: taskService,
		cache:       c,
		ttl:         ttl,
		logger:      logger,
	}
}

func taskKey(id uuid.UUID) string {
	return "task:" + id.String()
}

func (s *CachedTaskService) CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error) {
	task, err := s.taskService.CreateTask(ctx, req)
	if err != nil {
		return task, err
	}

	s.store(ctx, task)
	return task, nil
}

func (s *CachedTaskService) GetTask(ctx context.Context, id uuid.UUID) (models.Task, error) {
	var cached models.Task
	err := s.cache.Get(ctx, taskKey(id), &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithError(err).WithField("task_id", id.String()).Warn("task cache read failed")
	}

	task, err := s.taskService.GetTask(ctx, id)
	if err != nil {
		return task, err
	}

	s.store(ctx, task)
	return task, nil
}

func (s *CachedTaskService) ListTasks(ctx context.Context, q models.ListQuery) ([]models.Task, error) {
	return s.taskService.ListTasks(ctx, q)
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, id uuid.UUID, req models.UpdateTaskRequest) (models.Task, error) {
	task, err := s.taskService.UpdateTask(ctx, id, req)
	s.invalidate(ctx, id)
	return task, err
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	err := s.taskService.DeleteTask(ctx, id)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedTaskService) AddTag(ctx context.Context, id uuid.UUID, tag string) error {
	err := s.taskService.AddTag(ctx, id, tag)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedTaskService) RemoveTag(ctx context.Context, id uuid.UUID, tag string) error {
	err := s.taskService.RemoveTag(ctx, id, tag)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedTaskService) store(ctx context.Context, task models.Task) {
	if err := s.cache.Set(ctx, taskKey(task.ID), task, s.ttl); err != nil {
		s.logger.WithError(err).WithField("task_id", task.ID.String()).Warn("task cache write failed")
	}
}

// invalidate also runs after a failed call.
func (s *CachedTaskService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, taskKey(id)); err != nil {
		s.logger.WithError(err).WithField("task_id", id.String()).Warn("task cache invalidation failed")
	}
}
