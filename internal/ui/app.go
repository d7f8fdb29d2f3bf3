package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/config"
	"github.com/tgienger/taskdash/internal/db"
	"github.com/tgienger/taskdash/internal/session"
	"github.com/tgienger/taskdash/internal/tasks"
	"github.com/tgienger/taskdash/internal/ui/views"
)

// closer is implemented by views that own in-flight work
type closer interface {
	Close()
}

// App routes between the login, register and dashboard screens
type App struct {
	db    *db.DB
	gate  *session.Gate
	cfg   *config.Config
	log   *log.Logger
	route session.Route
	view  tea.Model

	width  int
	height int
}

// NewApp creates a new application
func NewApp(database *db.DB, gate *session.Gate, cfg *config.Config, logger *log.Logger) *App {
	return &App{
		db:   database,
		gate: gate,
		cfg:  cfg,
		log:  logger,
	}
}

// Route returns the screen currently shown
func (a *App) Route() session.Route {
	return a.route
}

func (a *App) Init() tea.Cmd {
	return a.navigate(session.RouteRoot, "")
}

// navigate tears down the current view and shows the route the gate allows
func (a *App) navigate(requested session.Route, notice string) tea.Cmd {
	if c, ok := a.view.(closer); ok {
		c.Close()
	}

	a.route = a.gate.Resolve(requested)
	a.log.Debug("navigate", "requested", requested, "route", a.route)

	switch a.route {
	case session.RouteRegister:
		a.view = views.NewRegisterView(a.db, a.log)
	case session.RouteDashboard:
		a.view = a.newDashboard()
	default:
		a.view = views.NewLoginView(a.db, a.cfg.TokenTTL, a.log, notice)
	}

	// Initialize the new view with window size
	width, height := a.width, a.height
	return tea.Batch(
		a.view.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: width, Height: height}
		},
	)
}

func (a *App) newDashboard() *views.DashboardView {
	token, err := a.gate.Token()
	if err != nil {
		a.log.Error("read credential token", "err", err)
	}
	svc := tasks.NewService(tasks.NewStore(), db.NewClient(a.db, token), a.log)
	return views.NewDashboardView(svc, a.cfg.NarrowWidth, a.log)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.Navigate:
		return a, a.navigate(msg.Route, msg.Notice)

	case views.LoggedIn:
		if err := a.gate.SignIn(msg.Token); err != nil {
			a.log.Error("persist credential token", "err", err)
			return a, a.navigate(session.RouteLogin, "Could not save session: "+err.Error())
		}
		return a, a.navigate(session.RouteDashboard, "")

	case views.LoggedOut:
		if err := a.gate.SignOut(); err != nil {
			a.log.Error("clear credential token", "err", err)
		}
		return a, a.navigate(session.RouteLogin, "Logged out.")

	case views.SessionExpired:
		if err := a.gate.SignOut(); err != nil {
			a.log.Error("clear credential token", "err", err)
		}
		return a, a.navigate(session.RouteLogin, "Your session has expired. Please log in again.")
	}

	if a.view == nil {
		return a, nil
	}
	var cmd tea.Cmd
	_, cmd = a.view.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.view == nil {
		return ""
	}
	return a.view.View()
}
