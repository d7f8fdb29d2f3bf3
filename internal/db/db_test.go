package db

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgienger/taskdash/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func mustUser(t *testing.T, database *DB, email string) *models.User {
	t.Helper()
	u, err := database.CreateUser(context.Background(), email, "", "secret")
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return u
}

func TestSettings(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	v, err := database.GetSetting(ctx, "missing")
	if err != nil || v != "" {
		t.Fatalf("GetSetting(missing) = %q, %v", v, err)
	}
	if err := database.SetSetting(ctx, "k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := database.SetSetting(ctx, "k", "two"); err != nil {
		t.Fatal(err)
	}
	if v, _ := database.GetSetting(ctx, "k"); v != "two" {
		t.Errorf("GetSetting = %q, want two", v)
	}
	if err := database.DeleteSetting(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if v, _ := database.GetSetting(ctx, "k"); v != "" {
		t.Errorf("GetSetting after delete = %q", v)
	}
}

func TestCreateUser(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	u, err := database.CreateUser(ctx, "  Alice@X.com ", "Alice", "pw")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Email != "alice@x.com" {
		t.Errorf("Email = %s, want normalized", u.Email)
	}
	if u.PasswordHash == "pw" {
		t.Error("password stored in clear text")
	}

	if _, err := database.CreateUser(ctx, "alice@x.com", "", "pw"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate CreateUser error = %v, want ErrEmailTaken", err)
	}
	if _, err := database.CreateUser(ctx, "not-an-email", "", "pw"); err == nil {
		t.Error("expected error for invalid email")
	}
}

func TestLoginAndToken(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	mustUser(t, database, "a@x.com")

	if _, err := database.Login(ctx, "a@x.com", "wrong", time.Hour); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := database.Login(ctx, "nobody@x.com", "secret", time.Hour); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}

	token, err := database.Login(ctx, "A@x.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	u, err := database.UserFromToken(ctx, token)
	if err != nil {
		t.Fatalf("UserFromToken failed: %v", err)
	}
	if u.Email != "a@x.com" {
		t.Errorf("token user = %s", u.Email)
	}

	if _, err := database.UserFromToken(ctx, token+"x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token error = %v", err)
	}

	expired, err := database.Login(ctx, "a@x.com", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := database.UserFromToken(ctx, expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v", err)
	}
}

func TestSigningKey(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	key, err := database.signingKey(ctx)
	if err != nil {
		t.Fatalf("signingKey failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(string(key))
	if err != nil {
		t.Fatalf("stored key is not base64: %v", err)
	}
	if len(raw) != signingKeyBytes {
		t.Errorf("key has %d random bytes, want %d", len(raw), signingKeyBytes)
	}

	again, err := database.signingKey(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(key) {
		t.Error("signing key changed between calls")
	}
}

func TestTaskLifecycle(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	mustUser(t, database, "a@x.com")
	mustUser(t, database, "b@x.com")
	mustUser(t, database, "c@x.com")

	deadline := time.Date(2026, 11, 1, 17, 0, 0, 0, time.UTC)
	task, err := database.CreateTask(ctx, "b@x.com", "a@x.com", "write report", deadline)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Status != models.StatusPending {
		t.Errorf("new task status = %s", task.Status)
	}
	if !task.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", task.Deadline, deadline)
	}
	if _, err := database.CreateTask(ctx, "b@x.com", "ghost@x.com", "x", deadline); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("unknown assignee error = %v", err)
	}

	other, err := database.CreateTask(ctx, "a@x.com", "c@x.com", "review", deadline.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	list, err := database.ListTasks(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != other.ID || list[1].ID != task.ID {
		t.Fatalf("ListTasks order wrong: %+v", list)
	}
	if list, _ := database.ListTasks(ctx, "c@x.com"); len(list) != 1 {
		t.Errorf("c sees %d tasks, want 1", len(list))
	}

	// only the assignee completes
	if err := database.CompleteTask(ctx, "b@x.com", task.ID, models.StatusDone); !errors.Is(err, ErrForbidden) {
		t.Errorf("assigner completing error = %v", err)
	}
	if err := database.CompleteTask(ctx, "a@x.com", task.ID, models.StatusPending); err == nil {
		t.Error("completing with Pending should fail")
	}
	if err := database.CompleteTask(ctx, "a@x.com", task.ID, models.StatusDelayed); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if err := database.CompleteTask(ctx, "a@x.com", task.ID, models.StatusDone); !errors.Is(err, ErrNotPending) {
		t.Errorf("second completion error = %v", err)
	}
	got, _ := database.GetTask(ctx, task.ID)
	if got.Status != models.StatusDelayed {
		t.Errorf("status = %s, want Delayed", got.Status)
	}

	// only the assigner deletes
	if err := database.DeleteTask(ctx, "a@x.com", task.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("assignee deleting error = %v", err)
	}
	if err := database.DeleteTask(ctx, "b@x.com", task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := database.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTask after delete error = %v", err)
	}
	if err := database.DeleteTask(ctx, "b@x.com", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestClient(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	mustUser(t, database, "a@x.com")
	mustUser(t, database, "b@x.com")
	task, err := database.CreateTask(ctx, "b@x.com", "a@x.com", "ship it", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	anon := NewClient(database, "")
	if u, err := anon.CurrentUser(ctx); u != nil || err != nil {
		t.Errorf("anonymous CurrentUser = %v, %v", u, err)
	}
	if _, err := anon.ListTasks(ctx); err == nil {
		t.Error("anonymous ListTasks should fail")
	}

	token, err := database.Login(ctx, "a@x.com", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(database, token)
	list, err := c.ListTasks(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTasks = %v, %v", list, err)
	}
	if err := c.RemoveTask(ctx, task.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("assignee RemoveTask error = %v", err)
	}
	if err := c.MarkDone(ctx, task.ID, models.StatusDone); err != nil {
		t.Errorf("MarkDone failed: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	database := newTestDB(t)
	creds := database.Credentials()

	if tok, err := creds.Token(); tok != "" || err != nil {
		t.Fatalf("initial Token = %q, %v", tok, err)
	}
	if err := creds.SaveToken("abc"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := creds.Token(); tok != "abc" {
		t.Errorf("Token = %q", tok)
	}
	if err := creds.ClearToken(); err != nil {
		t.Fatal(err)
	}
	if tok, _ := creds.Token(); tok != "" {
		t.Errorf("Token after clear = %q", tok)
	}
}
