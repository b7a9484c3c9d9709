package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
)

// PostgresExecutor persists tasks in the tasks table.
type PostgresExecutor struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewPostgresExecutor creates a new task executor
func NewPostgresExecutor(db *database.PostgreSQL, logger *logger.Logger) *PostgresExecutor {
	return &PostgresExecutor{
		db:     db,
		logger: logger,
	}
}

const taskColumns = "task_id, title, description, status, priority, assigned_by_paralegal, assigned_to_user, created, updated"

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.AssignedByParalegal,
		&t.AssignedToUser,
		&t.Created,
		&t.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get fetches a task by ID
func (e *PostgresExecutor) Get(ctx context.Context, in Input) (*Task, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE task_id = $1
	`, taskColumns)

	task, err := scanTask(e.db.Pool().QueryRow(ctx, query, in.TaskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, in.TaskID)
		}
		e.logger.Errorf("Failed to get task: %v", err)
		return nil, err
	}
	return task, nil
}

// GetAll lists tasks with optional status/priority filters and pagination
func (e *PostgresExecutor) GetAll(ctx context.Context, in Input) ([]Task, int64, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if in.FilterStatus != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, in.FilterStatus)
		argIndex++
	}
	if in.FilterPriority != "" {
		where = append(where, fmt.Sprintf("priority = $%d", argIndex))
		args = append(args, in.FilterPriority)
		argIndex++
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tasks WHERE %s", whereClause)
	if err := e.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		e.logger.Errorf("Failed to count tasks: %v", err)
		return nil, 0, fmt.Errorf("database query error: %w", err)
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY created DESC
		LIMIT $%d OFFSET $%d
	`, taskColumns, whereClause, argIndex, argIndex+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := e.db.Pool().Query(ctx, query, args...)
	if err != nil {
		e.logger.Errorf("Failed to list tasks: %v", err)
		return nil, 0, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Create inserts a new task, defaulting status to "pending"
func (e *PostgresExecutor) Create(ctx context.Context, in Input) (*Task, error) {
	e.logger.Infof("Creating task: %s", in.Title)

	status := in.Status
	if status == "" {
		status = DefaultStatus
	}

	query := fmt.Sprintf(`
		INSERT INTO tasks (title, description, status, priority, assigned_by_paralegal, assigned_to_user)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, taskColumns)

	task, err := scanTask(e.db.Pool().QueryRow(ctx, query,
		in.Title, in.Description, status, in.Priority, in.AssignedByParalegal, in.AssignedToUser))
	if err != nil {
		e.logger.Errorf("Failed to create task: %v", err)
		return nil, err
	}
	return task, nil
}

// Update patches only the fields present in the input. Status values are not
// validated against allowed transitions.
func (e *PostgresExecutor) Update(ctx context.Context, in Input) (*Task, error) {
	e.logger.Infof("Updating task: %s", in.TaskID)

	setClauses := []string{"updated = CURRENT_TIMESTAMP"}
	args := []interface{}{}
	argIndex := 1

	addSet := func(column, value string) {
		if value == "" {
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	addSet("title", in.Title)
	addSet("description", in.Description)
	addSet("status", in.Status)
	addSet("priority", in.Priority)
	addSet("assigned_to_user", in.AssignedToUser)

	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s
		WHERE task_id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIndex, taskColumns)
	args = append(args, in.TaskID)

	task, err := scanTask(e.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, in.TaskID)
		}
		e.logger.Errorf("Failed to update task: %v", err)
		return nil, err
	}
	return task, nil
}

// Delete hard-deletes a task by ID
func (e *PostgresExecutor) Delete(ctx context.Context, in Input) error {
	e.logger.Infof("Deleting task: %s", in.TaskID)

	commandTag, err := e.db.Pool().Exec(ctx, `
		DELETE FROM tasks
		WHERE task_id = $1
	`, in.TaskID)
	if err != nil {
		e.logger.Errorf("Failed to delete task: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, in.TaskID)
	}
	return nil
}
