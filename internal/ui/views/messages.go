package views

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tgienger/taskdash/internal/models"
	"github.com/tgienger/taskdash/internal/session"
)

// Accounts is what the login and register screens need from the backend
type Accounts interface {
	Login(ctx context.Context, email, password string, ttl time.Duration) (string, error)
	CreateUser(ctx context.Context, email, name, password string) (*models.User, error)
}

// Navigate asks the app to switch to another route
type Navigate struct {
	Route session.Route
	// Notice is shown on the destination screen
	Notice string
}

// LoggedIn carries a freshly issued access token
type LoggedIn struct {
	Token string
}

// LoggedOut signals the user asked to sign out
type LoggedOut struct{}

// SessionExpired signals the stored token was rejected by the backend
type SessionExpired struct{}

func navigate(r session.Route, notice string) tea.Cmd {
	return func() tea.Msg { return Navigate{Route: r, Notice: notice} }
}
