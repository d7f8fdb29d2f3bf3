// Package tasks holds the task store, the views derived from it and the
// operations that mutate it on behalf of the signed-in user.
package tasks

import (
	"time"

	"github.com/tgienger/taskdash/internal/models"
)

// Views are the two projections of the task list for one user
type Views struct {
	AssignedToMe []models.Task
	AssignedByMe []models.Task
}

// Derive splits tasks into the ones assigned to email and the ones assigned
// by email. Relative order is preserved. A self-assigned task lands in both.
func Derive(tasks []models.Task, email string) Views {
	return Views{
		AssignedToMe: filter(tasks, func(t models.Task) bool { return t.AssignedTo == email }),
		AssignedByMe: filter(tasks, func(t models.Task) bool { return t.AssignedBy == email }),
	}
}

func filter(tasks []models.Task, keep func(models.Task) bool) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// CompletionStatus is the status a task gets when completed at now:
// Delayed if now is strictly after the deadline, Done otherwise.
func CompletionStatus(deadline, now time.Time) models.Status {
	if now.After(deadline) {
		return models.StatusDelayed
	}
	return models.StatusDone
}

// CanMarkDone reports whether the mark-done action should be offered
func CanMarkDone(t models.Task) bool {
	return !t.Status.Completed()
}

// CanRemove reports whether the remove action should be offered to email.
// This only gates the UI; the backend checks again.
func CanRemove(t models.Task, email string) bool {
	return email != "" && t.AssignedBy == email
}
