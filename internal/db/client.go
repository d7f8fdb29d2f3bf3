package db

import (
	"context"
	"errors"

	"github.com/tgienger/taskdash/internal/models"
)

const accessTokenSetting = "access_token"

// Credentials persists the access token in the settings table
type Credentials struct {
	db *DB
}

// Credentials returns the token store backed by db
func (db *DB) Credentials() *Credentials {
	return &Credentials{db: db}
}

func (c *Credentials) Token() (string, error) {
	return c.db.GetSetting(context.Background(), accessTokenSetting)
}

func (c *Credentials) SaveToken(token string) error {
	return c.db.SetSetting(context.Background(), accessTokenSetting, token)
}

func (c *Credentials) ClearToken() error {
	return c.db.DeleteSetting(context.Background(), accessTokenSetting)
}

// Client acts on the database as the holder of an access token
type Client struct {
	db    *DB
	token string
}

// NewClient binds token to db
func NewClient(db *DB, token string) *Client {
	return &Client{db: db, token: token}
}

// CurrentUser returns the token's user. An empty token means nobody is
// signed in and yields nil without error.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.token == "" {
		return nil, nil
	}
	return c.db.UserFromToken(ctx, c.token)
}

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	u, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}
	return c.db.ListTasks(ctx, u.Email)
}

func (c *Client) MarkDone(ctx context.Context, id string, status models.Status) error {
	u, err := c.actor(ctx)
	if err != nil {
		return err
	}
	return c.db.CompleteTask(ctx, u.Email, id, status)
}

func (c *Client) RemoveTask(ctx context.Context, id string) error {
	u, err := c.actor(ctx)
	if err != nil {
		return err
	}
	return c.db.DeleteTask(ctx, u.Email, id)
}

func (c *Client) actor(ctx context.Context) (*models.User, error) {
	u, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("not signed in")
	}
	return u, nil
}
