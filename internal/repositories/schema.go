package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// schema is portable between SQLite and PostgreSQL. Timestamps stay TEXT so
// both backends compare them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		due_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_tags (
		task_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		UNIQUE (task_id, tag)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_tags_tag ON task_tags(tag)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)`,
}

// EnsureSchema creates the task tables and indexes when they are missing.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	for _, stmt := range schema {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
