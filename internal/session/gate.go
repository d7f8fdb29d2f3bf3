// Package session decides which screen a user may reach based on whether a
// credential token has been persisted.
package session

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Route is a navigable screen
type Route string

const (
	RouteRoot      Route = "/"
	RouteLogin     Route = "/login"
	RouteRegister  Route = "/register"
	RouteDashboard Route = "/dashboard"
)

// CredentialStore holds the persisted access token
type CredentialStore interface {
	// Token returns the stored token, or "" when there is none
	Token() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

// Gate tracks whether the user is authenticated and routes accordingly
type Gate struct {
	mu            sync.RWMutex
	creds         CredentialStore
	authenticated bool
	log           *log.Logger
}

// NewGate reads the persisted token once. A missing token, or one that
// cannot be read, leaves the gate unauthenticated.
func NewGate(creds CredentialStore, logger *log.Logger) *Gate {
	g := &Gate{creds: creds, log: logger}

	token, err := creds.Token()
	if err != nil {
		logger.Warn("read credential token", "err", err)
	}
	g.authenticated = err == nil && token != ""
	return g
}

// Authenticated reports the current flag
func (g *Gate) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

// SetAuthenticated overrides the flag
func (g *Gate) SetAuthenticated(v bool) {
	g.mu.Lock()
	g.authenticated = v
	g.mu.Unlock()
}

// Token returns the persisted token
func (g *Gate) Token() (string, error) {
	return g.creds.Token()
}

// SignIn persists token and marks the gate authenticated
func (g *Gate) SignIn(token string) error {
	if err := g.creds.SaveToken(token); err != nil {
		return err
	}
	g.SetAuthenticated(token != "")
	return nil
}

// SignOut forgets the token. The flag drops even if clearing fails.
func (g *Gate) SignOut() error {
	g.SetAuthenticated(false)
	return g.creds.ClearToken()
}

// Resolve maps a requested route to the one that is actually shown
func (g *Gate) Resolve(r Route) Route {
	authed := g.Authenticated()
	switch r {
	case RouteLogin, RouteRegister:
		return r
	case RouteDashboard:
		if authed {
			return RouteDashboard
		}
		return RouteLogin
	default:
		if authed {
			return RouteDashboard
		}
		return RouteLogin
	}
}
