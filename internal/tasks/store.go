package tasks

import (
	"slices"
	"sync"

	"github.com/tgienger/taskdash/internal/models"
)

// Store owns the task list, the current user and the views derived from
// them. Every mutation goes through update, which recomputes the views, so
// the views can never go stale.
type Store struct {
	mu    sync.RWMutex
	tasks []models.Task
	user  *models.User
	views Views

	// rev counts local mutations so a refresh can tell its list is stale
	rev uint64
}

// NewStore creates an empty store with no user
func NewStore() *Store {
	return &Store{views: Views{AssignedToMe: []models.Task{}, AssignedByMe: []models.Task{}}}
}

// update applies fn under the write lock and re-derives the views. With no
// user the previous views are left as they were.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()
	if s.user != nil {
		s.views = Derive(s.tasks, s.user.Email)
	}
}

// Load replaces the whole task list
func (s *Store) Load(tasks []models.Task) {
	s.update(func() {
		s.tasks = slices.Clone(tasks)
	})
}

// SetUser sets the identity the views are derived for. nil clears it and
// freezes the views.
func (s *Store) SetUser(u *models.User) {
	s.update(func() {
		if u == nil {
			s.user = nil
			return
		}
		cp := *u
		s.user = &cp
	})
}

// Reset replaces the task list and the user in a single update. It refuses
// and returns false when the store was mutated after rev was read.
func (s *Store) Reset(tasks []models.Task, u *models.User, rev uint64) bool {
	applied := false
	s.update(func() {
		if s.rev != rev {
			return
		}
		s.tasks = slices.Clone(tasks)
		s.user = nil
		if u != nil {
			cp := *u
			s.user = &cp
		}
		applied = true
	})
	return applied
}

// Revision returns the local mutation counter
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// User returns a copy of the current user, or nil
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

// Tasks returns a copy of the full task list
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Views returns copies of both derived views
func (s *Store) Views() Views {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Views{
		AssignedToMe: slices.Clone(s.views.AssignedToMe),
		AssignedByMe: slices.Clone(s.views.AssignedByMe),
	}
}

// Task looks up a task by id
func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return models.Task{}, false
	}
	return s.tasks[i], true
}

// SetStatus sets the status of task id. It reports false when the task is
// not in the store.
func (s *Store) SetStatus(id string, status models.Status) bool {
	found := false
	s.update(func() {
		if i := s.index(id); i >= 0 {
			s.tasks[i].Status = status
			s.rev++
			found = true
		}
	})
	return found
}

// Remove deletes task id and leaves every other task in place. It reports
// false when the task is not in the store.
func (s *Store) Remove(id string) bool {
	found := false
	s.update(func() {
		if i := s.index(id); i >= 0 {
			s.tasks = slices.Delete(s.tasks, i, i+1)
			s.rev++
			found = true
		}
	})
	return found
}

// index must be called with s.mu held
func (s *Store) index(id string) int {
	return slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
}
