package views

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/db"
	"github.com/tgienger/taskdash/internal/session"
	"github.com/tgienger/taskdash/internal/ui/keys"
	"github.com/tgienger/taskdash/internal/ui/styles"
)

// LoginView asks for email and password and issues an access token
type LoginView struct {
	accounts Accounts
	ttl      time.Duration
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
	notice     string
	err        string
}

func NewLoginView(accounts Accounts, ttl time.Duration, logger *log.Logger, notice string) *LoginView {
	s := styles.NewStyles()
	f := newForm(s, "Sign In", "Log In",
		"Tab: next • Ctrl+S: log in • Ctrl+R: register • Ctrl+C: quit",
		newField("Email", "you@example.com", false),
		newField("Password", "password", true),
	)
	f.updateFocus()
	ctx, cancel := context.WithCancel(context.Background())

	return &LoginView{
		accounts: accounts,
		ttl:      ttl,
		log:      logger,
		form:     f,
		keys:     keys.DefaultKeyMap(),
		notice:   notice,
		ctx:      ctx,
		cancel:   cancel,
		gen:      generation.Add(1),
	}
}

type loginResultMsg struct {
	gen   uint64
	token string
	err   error
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case loginResultMsg:
		if msg.gen != v.gen {
			return v, nil
		}
		v.submitting = false
		if msg.err != nil {
			v.err = loginError(msg.err)
			return v, nil
		}
		token := msg.token
		return v, func() tea.Msg { return LoggedIn{Token: token} }

	case tea.KeyMsg:
		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit
		case key.Matches(msg, v.keys.Register):
			return v, navigate(session.RouteRegister, "")
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

func (v *LoginView) submit() tea.Cmd {
	email, password := v.form.value(0), v.form.fields[1].input.Value()
	if email == "" || password == "" {
		v.err = "Email and password are required"
		return nil
	}
	v.err = ""
	v.submitting = true

	ctx, gen, accounts, ttl, logger := v.ctx, v.gen, v.accounts, v.ttl, v.log
	return func() tea.Msg {
		token, err := accounts.Login(ctx, email, password, ttl)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return loginResultMsg{gen: gen, err: ctxErr}
		}
		if err != nil {
			logger.Warn("login failed", "email", email, "err", err)
		}
		return loginResultMsg{gen: gen, token: token, err: err}
	}
}

// Close abandons a login still in flight
func (v *LoginView) Close() {
	v.cancel()
}

func loginError(err error) string {
	if errors.Is(err, db.ErrInvalidCredentials) {
		return "Invalid email or password"
	}
	return "Login failed: " + err.Error()
}

func (v *LoginView) View() string {
	errText := v.err
	if v.submitting {
		errText = ""
	}
	return v.form.view(v.width, v.height, v.notice, errText)
}
