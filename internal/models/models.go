package models

import "time"

// Status is the completion state of a task
type Status string

const (
	StatusPending Status = "Pending"
	StatusDone    Status = "Done"
	StatusDelayed Status = "Delayed"
)

// Completed reports whether the task has left the Pending state
func (s Status) Completed() bool {
	return s == StatusDone || s == StatusDelayed
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDone, StatusDelayed:
		return true
	}
	return false
}

// User is an account known to the task backend
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Task is a unit of work one user assigns to another
type Task struct {
	ID         string
	Content    string
	AssignedTo string // assignee email
	AssignedBy string // assigner email
	Deadline   time.Time
	Status     Status
	CreatedAt  time.Time
}
