package repositories

import (
	"context"
	"sort"
	"strings"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	insertTaskSQL = `INSERT INTO tasks (id, title, description, status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertTagSQL = `INSERT INTO task_tags (task_id, tag) VALUES (?, ?)
		ON CONFLICT (task_id, tag) DO NOTHING`
	// the WHERE clause also keeps SQLite from reading ON CONFLICT as a join
	attachTagSQL = `INSERT INTO task_tags (task_id, tag)
		SELECT CAST(? AS TEXT), CAST(? AS TEXT) WHERE EXISTS (SELECT 1 FROM tasks WHERE id = ?)
		ON CONFLICT (task_id, tag) DO NOTHING`
	// touchTaskSQL takes the write lock before anything is read, so
	// concurrent writers queue on the lock instead of failing to upgrade.
	touchTaskSQL = `UPDATE tasks SET updated_at = updated_at WHERE id = ?`

	// tagBatchSize keeps IN lists below SQLite's bound variable limit.
	tagBatchSize = 500
)

// TaskRepository stores tasks and their tags. Statements that touch more than
// one row run in a single transaction.
type TaskRepository struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, clock: time.Now}
}

// WithClock replaces the time source used for created_at and updated_at.
func (r *TaskRepository) WithClock(clock func() time.Time) *TaskRepository {
	r.clock = clock
	return r
}

func (r *TaskRepository) now() time.Time {
	return r.clock().UTC()
}

func (r *TaskRepository) CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error) {
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Task{}, &StorageError{Op: "generate task id", Err: err}
	}

	tags := uniqueTags(req.Tags)
	sort.Strings(tags)

	now := r.now()
	task := models.Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     utcPtr(req.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        tags,
	}
	row := EncodeTask(task)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(insertTaskSQL,
			row.ID, row.Title, row.Description, row.Status, row.Priority,
			row.DueDate, row.CreatedAt, row.UpdatedAt,
		).Error; err != nil {
			return err
		}
		return insertTags(tx, row.ID, task.Tags)
	})
	if err != nil {
		return models.Task{}, storageErr("create task", err)
	}

	return task, nil
}

func (r *TaskRepository) GetTask(ctx context.Context, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = loadTask(tx, id)
		return err
	})
	if err != nil {
		return models.Task{}, storageErr("get task", err)
	}
	return task, nil
}

// ListTasks returns the tasks matching q. A single undecodable row fails the
// whole call.
func (r *TaskRepository) ListTasks(ctx context.Context, q models.ListQuery) ([]models.Task, error) {
	query, args := BuildListQuery(q)

	tasks := []models.Task{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []TaskRow
		if err := tx.Raw(query, args...).Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		tags, err := fetchTags(tx, ids)
		if err != nil {
			return err
		}

		for _, row := range rows {
			task, err := DecodeTask(row, tags[row.ID])
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	return tasks, nil
}

// UpdateTask writes only the supplied columns and always advances updated_at.
// Tags are left as they are.
func (r *TaskRepository) UpdateTask(ctx context.Context, id uuid.UUID, req models.UpdateTaskRequest) (models.Task, error) {
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}

	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touched := tx.Exec(touchTaskSQL, id.String())
		if touched.Error != nil {
			return touched.Error
		}
		if touched.RowsAffected == 0 {
			return ErrNotFound
		}

		row, err := findRow(tx, id)
		if err != nil {
			return err
		}
		previous, err := parseTime("updated_at", row.UpdatedAt)
		if err != nil {
			return err
		}

		updatedAt := r.now()
		if !updatedAt.After(previous) {
			updatedAt = previous.Add(time.Nanosecond)
		}

		var sets []string
		var args []interface{}
		if req.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *req.Title)
		}
		if req.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *req.Description)
		}
		if req.Status != nil {
			sets = append(sets, "status = ?")
			args = append(args, req.Status.String())
		}
		if req.Priority != nil {
			sets = append(sets, "priority = ?")
			args = append(args, req.Priority.String())
		}
		if req.DueDate != nil {
			sets = append(sets, "due_date = ?")
			args = append(args, FormatTime(*req.DueDate))
		}
		sets = append(sets, "updated_at = ?")
		args = append(args, FormatTime(updatedAt), row.ID)

		if err := tx.Exec("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...).Error; err != nil {
			return err
		}

		task, err = loadTask(tx, id)
		return err
	})
	if err != nil {
		return models.Task{}, storageErr("update task", err)
	}
	return task, nil
}

// DeleteTask removes the task and its tags. Deleting a missing task succeeds.
func (r *TaskRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_tags WHERE task_id = ?", id.String()).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM tasks WHERE id = ?", id.String()).Error
	})
	return storageErr("delete task", err)
}

// AddTag attaches tag to an existing task. Attaching a tag twice is a no-op.
func (r *TaskRepository) AddTag(ctx context.Context, id uuid.UUID, tag string) error {
	if err := models.ValidateTag(tag); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted := tx.Exec(attachTagSQL, id.String(), tag, id.String())
		if inserted.Error != nil {
			return inserted.Error
		}
		if inserted.RowsAffected > 0 {
			return nil
		}

		// nothing inserted: either the tag was already there or the task is gone
		var count int64
		if err := tx.Raw("SELECT COUNT(*) FROM tasks WHERE id = ?", id.String()).Scan(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	})
	return storageErr("add tag", err)
}

func (r *TaskRepository) RemoveTag(ctx context.Context, id uuid.UUID, tag string) error {
	err := r.db.WithContext(ctx).
		Exec("DELETE FROM task_tags WHERE task_id = ? AND tag = ?", id.String(), tag).Error
	return storageErr("remove tag", err)
}

func findRow(tx *gorm.DB, id uuid.UUID) (TaskRow, error) {
	var rows []TaskRow
	if err := tx.Raw(selectTaskColumns+" WHERE id = ?", id.String()).Scan(&rows).Error; err != nil {
		return TaskRow{}, err
	}
	if len(rows) == 0 {
		return TaskRow{}, ErrNotFound
	}
	return rows[0], nil
}

func loadTask(tx *gorm.DB, id uuid.UUID) (models.Task, error) {
	row, err := findRow(tx, id)
	if err != nil {
		return models.Task{}, err
	}
	tags, err := fetchTags(tx, []string{row.ID})
	if err != nil {
		return models.Task{}, err
	}
	return DecodeTask(row, tags[row.ID])
}

type tagRow struct {
	TaskID string `gorm:"column:task_id"`
	Tag    string `gorm:"column:tag"`
}

// fetchTags loads the tags of every id, grouped by task id and sorted. Ids
// are queried tagBatchSize at a time.
func fetchTags(tx *gorm.DB, ids []string) (map[string][]string, error) {
	tags := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += tagBatchSize {
		end := start + tagBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		var rows []tagRow
		err := tx.Raw("SELECT task_id, tag FROM task_tags WHERE task_id IN ? ORDER BY task_id, tag", ids[start:end]).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			tags[row.TaskID] = append(tags[row.TaskID], row.Tag)
		}
	}
	return tags, nil
}

func insertTags(tx *gorm.DB, taskID string, tags []string) error {
	for _, tag := range tags {
		if err := tx.Exec(insertTagSQL, taskID, tag).Error; err != nil {
			return err
		}
	}
	return nil
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
