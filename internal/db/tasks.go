package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tgienger/taskdash/internal/models"
)

const taskColumns = `id, content, assigned_to, assigned_by, deadline, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (models.Task, error) {
	var t models.Task
	var status string
	err := s.Scan(&t.ID, &t.Content, &t.AssignedTo, &t.AssignedBy, &t.Deadline, &status, &t.CreatedAt)
	t.Status = models.Status(status)
	return t, err
}

// CreateTask assigns a new task from assigner to assignee. Both must be
// registered users.
func (db *DB) CreateTask(ctx context.Context, assigner, assignee, content string, deadline time.Time) (*models.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("task content is required")
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (id, content, assigned_to, assigned_by, deadline, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, content, NormalizeEmail(assignee), NormalizeEmail(assigner), deadline.UTC(), string(models.StatusPending))
	if isForeignKeyViolation(err) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	return db.GetTask(ctx, id)
}

// GetTask retrieves a task by ID
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns every task email is assignee or assigner of, ordered by
// deadline then created_at
func (db *DB) ListTasks(ctx context.Context, email string) ([]models.Task, error) {
	email = NormalizeEmail(email)
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE assigned_to = ? OR assigned_by = ?
		ORDER BY deadline ASC, created_at ASC
	`, email, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CompleteTask sets the final status of a pending task. Only the assignee
// may complete it.
func (db *DB) CompleteTask(ctx context.Context, actor, id string, status models.Status) error {
	if !status.Completed() {
		return errors.New("completion status must be Done or Delayed")
	}

	t, err := db.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.AssignedTo != NormalizeEmail(actor) {
		return ErrForbidden
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tasks SET status = ? WHERE id = ? AND status = ?
	`, string(status), id, string(models.StatusPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// DeleteTask deletes a task. Only the assigner may delete it.
func (db *DB) DeleteTask(ctx context.Context, actor, id string) error {
	t, err := db.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.AssignedBy != NormalizeEmail(actor) {
		return ErrForbidden
	}

	_, err = db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return err
}
