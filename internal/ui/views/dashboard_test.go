package views

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/db"
	"github.com/tgienger/taskdash/internal/models"
	"github.com/tgienger/taskdash/internal/tasks"
)

// fakeBackend implements tasks.Backend over an in-memory list
type fakeBackend struct {
	user      *models.User
	tasks     []models.Task
	userErr   error
	markErr   error
	removeErr error
}

func (f *fakeBackend) CurrentUser(context.Context) (*models.User, error) {
	return f.user, f.userErr
}

func (f *fakeBackend) ListTasks(context.Context) ([]models.Task, error) {
	return f.tasks, nil
}

func (f *fakeBackend) MarkDone(context.Context, string, models.Status) error {
	return f.markErr
}

func (f *fakeBackend) RemoveTask(context.Context, string) error {
	return f.removeErr
}

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestDashboard(t *testing.T, backend *fakeBackend) *DashboardView {
	t.Helper()
	if backend.user == nil && backend.userErr == nil {
		backend.user = &models.User{Email: "me@x.com"}
	}
	if backend.tasks == nil {
		backend.tasks = []models.Task{
			{ID: "t1", Content: "late report", AssignedTo: "me@x.com", AssignedBy: "boss@x.com", Deadline: now.Add(-time.Hour), Status: models.StatusPending},
			{ID: "t2", Content: "done already", AssignedTo: "me@x.com", AssignedBy: "boss@x.com", Deadline: now.Add(time.Hour), Status: models.StatusDone},
			{ID: "t3", Content: "delegated", AssignedTo: "intern@x.com", AssignedBy: "me@x.com", Deadline: now.Add(time.Hour), Status: models.StatusPending},
		}
	}

	logger := log.New(io.Discard)
	svc := tasks.NewService(tasks.NewStore(), backend, logger, tasks.WithClock(func() time.Time { return now }))
	v := NewDashboardView(svc, 60, logger)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	v.Update(v.refresh()())
	return v
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDashboardMarkDone(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	_, cmd := v.Update(runes("m"))
	if cmd == nil {
		t.Fatal("expected a command for mark done")
	}
	if !v.pending["t1"] {
		t.Error("task should be pending while the call is in flight")
	}

	v.Update(cmd())
	task, _ := v.svc.Store().Task("t1")
	if task.Status != models.StatusDelayed {
		t.Errorf("status = %s, want Delayed", task.Status)
	}
	if v.pending["t1"] {
		t.Error("pending flag not cleared")
	}
	if !strings.Contains(v.notice, "Delayed") {
		t.Errorf("notice = %q", v.notice)
	}
}

func TestDashboardMarkDoneHiddenForCompleted(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	if _, cmd := v.Update(runes("m")); cmd != nil {
		t.Error("mark done should not run for a completed task")
	}
}

func TestDashboardMarkDoneOnlyInAssignedToMe(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	if v.focus != SectionAssignedByMe {
		t.Fatal("tab should move focus to the second list")
	}
	if _, cmd := v.Update(runes("m")); cmd != nil {
		t.Error("mark done should not be offered on tasks assigned by me")
	}
}

func TestDashboardMarkDoneFailure(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{markErr: db.ErrForbidden})

	_, cmd := v.Update(runes("m"))
	v.Update(cmd())

	task, _ := v.svc.Store().Task("t1")
	if task.Status != models.StatusPending {
		t.Errorf("status = %s, want Pending", task.Status)
	}
	if v.err == "" {
		t.Error("expected an error message")
	}
}

func TestDashboardRemoveRequiresAssigner(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	// t1 was assigned by someone else
	v.Update(runes("d"))
	if v.confirmingDelete {
		t.Fatal("remove offered to the assignee")
	}

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	v.Update(runes("d"))
	if !v.confirmingDelete || v.deleteTargetID != "t3" {
		t.Fatalf("expected confirmation for t3, got %v %q", v.confirmingDelete, v.deleteTargetID)
	}

	_, cmd := v.Update(runes("y"))
	if cmd == nil {
		t.Fatal("expected a remove command")
	}
	v.Update(cmd())

	if _, ok := v.svc.Store().Task("t3"); ok {
		t.Error("task still in store after removal")
	}
	if got := len(v.svc.Store().Views().AssignedByMe); got != 0 {
		t.Errorf("AssignedByMe has %d tasks, want 0", got)
	}
}

func TestDashboardRemoveCancelled(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})
	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	v.Update(runes("d"))

	if _, cmd := v.Update(runes("n")); cmd != nil {
		t.Error("declining should not issue a command")
	}
	if v.confirmingDelete {
		t.Error("confirmation still open")
	}
	if _, ok := v.svc.Store().Task("t3"); !ok {
		t.Error("task removed after declining")
	}
}

func TestDashboardIgnoresStaleResults(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})
	v.pending["t1"] = true

	v.Update(markedDoneMsg{gen: v.gen + 1, id: "t1", status: models.StatusDone})
	if !v.pending["t1"] {
		t.Error("result from another dashboard was applied")
	}
}

func TestDashboardCloseDropsInFlightResult(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	_, cmd := v.Update(runes("m"))
	v.Close()
	msg := cmd()

	res, ok := msg.(markedDoneMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if !errors.Is(res.err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", res.err)
	}
	task, _ := v.svc.Store().Task("t1")
	if task.Status != models.StatusPending {
		t.Errorf("status changed after close: %s", task.Status)
	}
}

func TestDashboardSessionExpired(t *testing.T) {
	logger := log.New(io.Discard)
	svc := tasks.NewService(tasks.NewStore(), &fakeBackend{userErr: db.ErrInvalidToken}, logger)
	v := NewDashboardView(svc, 60, logger)

	_, cmd := v.Update(v.refresh()())
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(SessionExpired); !ok {
		t.Error("expected SessionExpired")
	}
}

func TestDashboardLayouts(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	wide := v.View()
	for _, want := range []string{"Tasks Assigned to Me (2)", "Tasks Assigned by Me (1)", "Assigned By", "boss@x.com", "intern@x.com"} {
		if !strings.Contains(wide, want) {
			t.Errorf("wide view missing %q", want)
		}
	}

	v.Update(tea.WindowSizeMsg{Width: 40, Height: 40})
	narrow := v.View()
	if strings.Contains(narrow, "Assigned By") {
		t.Error("narrow view should not render the table header")
	}
	for _, want := range []string{"late report", "by boss@x.com", "to intern@x.com"} {
		if !strings.Contains(narrow, want) {
			t.Errorf("narrow view missing %q", want)
		}
	}
}

func TestDashboardLogout(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})

	_, cmd := v.Update(runes("L"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(LoggedOut); !ok {
		t.Error("expected LoggedOut")
	}
	if v.ctx.Err() == nil {
		t.Error("logout should cancel in-flight work")
	}
}

func TestDashboardHelpFollowsKeyMap(t *testing.T) {
	v := newTestDashboard(t, &fakeBackend{})
	v.keys.Done.SetHelp("x", "finish")

	if view := v.View(); !strings.Contains(view, "x finish") {
		t.Error("help line does not use the binding's help text")
	}

	v.Update(runes("?"))
	popup := v.View()
	for _, want := range []string{"finish", "switch list", "log out"} {
		if !strings.Contains(popup, want) {
			t.Errorf("help popup missing %q", want)
		}
	}
}
