package views

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/db"
	"github.com/tgienger/taskdash/internal/session"
	"github.com/tgienger/taskdash/internal/ui/keys"
	"github.com/tgienger/taskdash/internal/ui/styles"
)

// RegisterView creates a new account and returns to the login screen
type RegisterView struct {
	accounts Accounts
	log      *log.Logger
	form     form
	keys     keys.KeyMap

	width  int
	height int

	// Lifetime of the in-flight request
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64

	submitting bool
	err        string
}

func NewRegisterView(accounts Accounts, logger *log.Logger) *RegisterView {
	s := styles.NewStyles()
	f := newForm(s, "Create Account", "Register",
		"Tab: next • Ctrl+S: register • Esc: back to login • Ctrl+C: quit",
		newField("Email", "you@example.com", false),
		newField("Name", "Your name (optional)", false),
		newField("Password", "password", true),
		newField("Confirm password", "password", true),
	)
	f.updateFocus()
	ctx, cancel := context.WithCancel(context.Background())

	return &RegisterView{
		accounts: accounts,
		log:      logger,
		form:     f,
		keys:     keys.DefaultKeyMap(),
		ctx:      ctx,
		cancel:   cancel,
		gen:      generation.Add(1),
	}
}

type registerResultMsg struct {
	gen   uint64
	email string
	err   error
}

func (v *RegisterView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *RegisterView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case registerResultMsg:
		if msg.gen != v.gen {
			return v, nil
		}
		v.submitting = false
		if msg.err != nil {
			v.err = registerError(msg.err)
			return v, nil
		}
		return v, navigate(session.RouteLogin, "Account created for "+msg.email+". Please log in.")

	case tea.KeyMsg:
		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			return v, navigate(session.RouteLogin, "")
		}
		if v.submitting {
			return v, nil
		}

		submit, cmd := v.form.update(msg)
		if submit {
			return v, v.submit()
		}
		return v, cmd
	}

	return v, nil
}

func (v *RegisterView) submit() tea.Cmd {
	email := v.form.value(0)
	name := v.form.value(1)
	password := v.form.fields[2].input.Value()
	confirm := v.form.fields[3].input.Value()

	switch {
	case email == "" || password == "":
		v.err = "Email and password are required"
		return nil
	case password != confirm:
		v.err = "Passwords do not match"
		return nil
	}
	v.err = ""
	v.submitting = true

	ctx, gen, accounts, logger := v.ctx, v.gen, v.accounts, v.log
	return func() tea.Msg {
		u, err := accounts.CreateUser(ctx, email, name, password)
		if err != nil {
			logger.Warn("registration failed", "email", email, "err", err)
			return registerResultMsg{gen: gen, err: err}
		}
		logger.Info("user registered", "email", u.Email)
		return registerResultMsg{gen: gen, email: u.Email}
	}
}

// Close abandons a registration still in flight
func (v *RegisterView) Close() {
	v.cancel()
}

func registerError(err error) string {
	if errors.Is(err, db.ErrEmailTaken) {
		return "That email is already registered"
	}
	return "Registration failed: " + err.Error()
}

func (v *RegisterView) View() string {
	return v.form.view(v.width, v.height, "", v.err)
}
