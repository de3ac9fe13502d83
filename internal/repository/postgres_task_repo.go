package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// Create はタスクを作成し、採番されたIDとタイムスタンプをtaskに書き戻す。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, assigner_id, assignee_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		task.Title, task.Description, task.Status, task.Priority, task.AssignerID, task.AssigneeID,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	task := &model.Task{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, status, priority, assigner_id, assignee_id, created_at, updated_at
		 FROM tasks WHERE id = $1`,
		id,
	).Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&task.AssignerID, &task.AssigneeID, &task.CreatedAt, &task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}

	return task, nil
}

// Update はタスクを上書き更新し、更新後のタイムスタンプをtaskに書き戻す。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, status = $3, priority = $4, assignee_id = $5, updated_at = now()
		 WHERE id = $6
		 RETURNING updated_at`,
		task.Title, task.Description, task.Status, task.Priority, task.AssigneeID, task.ID,
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return model.NewTaskNotFoundError(task.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// DeleteByID は指定IDのタスクを削除する。
func (r *PostgresTaskRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTaskNotFoundError(id)
	}
	return nil
}

// ListByAssignerID は指定ユーザーが作成したタスクの一覧を作成日時降順で返す。
func (r *PostgresTaskRepo) ListByAssignerID(ctx context.Context, assignerID int64) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, status, priority, assigner_id, assignee_id, created_at, updated_at
		 FROM tasks WHERE assigner_id = $1
		 ORDER BY created_at DESC`,
		assignerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks by assigner: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(
			&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
			&task.AssignerID, &task.AssigneeID, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}

	return tasks, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
