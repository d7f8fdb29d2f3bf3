package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/models"
)

var (
	ErrNotFound         = errors.New("task not found")
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrNoIdentity       = errors.New("no signed-in user")
)

// Backend is the task service the store is kept in sync with. Implementations
// act on behalf of one signed-in user.
type Backend interface {
	// CurrentUser returns the signed-in user, or nil when there is none
	CurrentUser(ctx context.Context) (*models.User, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	MarkDone(ctx context.Context, id string, status models.Status) error
	RemoveTask(ctx context.Context, id string) error
}

// Service runs user actions against the backend and reconciles the store
type Service struct {
	store   *Store
	backend Backend
	now     func() time.Time
	log     *log.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service that keeps store in sync with backend
func NewService(store *Store, backend Backend, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		backend: backend,
		now:     time.Now,
		log:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the store the service writes to
func (s *Service) Store() *Store {
	return s.store
}

// Refresh reloads the current user and the task list. With no signed-in
// user the store is left untouched and ErrNoIdentity is returned. A list
// fetched before a local MarkDone or RemoveTask completed is discarded.
func (s *Service) Refresh(ctx context.Context) error {
	rev := s.store.Revision()

	user, err := s.backend.CurrentUser(ctx)
	if err != nil {
		s.log.Error("load current user", "err", err)
		return fmt.Errorf("load current user: %w", err)
	}
	if user == nil {
		s.log.Debug("no identity, skipping refresh")
		return ErrNoIdentity
	}

	list, err := s.backend.ListTasks(ctx)
	if err != nil {
		s.log.Error("load tasks", "err", err)
		return fmt.Errorf("load tasks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.store.Reset(list, user, rev) {
		// A MarkDone or RemoveTask landed while the list was in flight
		s.log.Debug("discarding stale refresh", "user", user.Email)
		return nil
	}
	s.log.Debug("refreshed", "user", user.Email, "tasks", len(list))
	return nil
}

// MarkDone completes task id. The status is decided now, against the
// task's deadline, and only written to the store once the backend accepts
// it. On failure the store is unchanged.
func (s *Service) MarkDone(ctx context.Context, id string) (models.Status, error) {
	task, ok := s.store.Task(id)
	if !ok {
		return "", ErrNotFound
	}
	if task.Status.Completed() {
		return task.Status, ErrAlreadyCompleted
	}

	status := CompletionStatus(task.Deadline, s.now())
	if err := s.backend.MarkDone(ctx, id, status); err != nil {
		s.log.Error("mark task done", "id", id, "err", err)
		return "", fmt.Errorf("mark task %s done: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		s.log.Debug("dropping late mark-done result", "id", id)
		return "", err
	}

	s.store.SetStatus(id, status)
	s.log.Info("task completed", "id", id, "status", status)
	return status, nil
}

// RemoveTask deletes task id from the backend and then from the store. If
// the backend refuses, the store keeps the task.
func (s *Service) RemoveTask(ctx context.Context, id string) error {
	if _, ok := s.store.Task(id); !ok {
		return ErrNotFound
	}

	if err := s.backend.RemoveTask(ctx, id); err != nil {
		s.log.Error("remove task", "id", id, "err", err)
		return fmt.Errorf("remove task %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		s.log.Debug("dropping late remove result", "id", id)
		return err
	}

	s.store.Remove(id)
	s.log.Info("task removed", "id", id)
	return nil
}
