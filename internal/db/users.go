package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/tgienger/taskdash/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	signingKeySetting = "signing_key"
	signingKeyBytes   = 32
)

// NormalizeEmail lowercases and trims an address before it is stored or compared
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new account
func (db *DB) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)
	`, email, strings.TrimSpace(name), string(hash))
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	return db.GetUserByEmail(ctx, email)
}

// GetUserByEmail retrieves a user by email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users WHERE email = ?
	`, NormalizeEmail(email)).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password and returns a signed access token valid for ttl
func (db *DB) Login(ctx context.Context, email, password string, ttl time.Duration) (string, error) {
	u, err := db.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUnknownUser) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	key, err := db.signingKey(ctx)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// UserFromToken verifies token and returns the user it was issued to
func (db *DB) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	key, err := db.signingKey(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return nil, ErrInvalidToken
	}

	u, err := db.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUnknownUser) {
		return nil, ErrInvalidToken
	}
	return u, err
}

// signingKey returns the HMAC key for access tokens, generating it on first use
func (db *DB) signingKey(ctx context.Context) ([]byte, error) {
	key, err := db.GetSetting(ctx, signingKeySetting)
	if err != nil {
		return nil, err
	}
	if key != "" {
		return []byte(key), nil
	}

	raw := make([]byte, signingKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	key = base64.StdEncoding.EncodeToString(raw)
	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, signingKeySetting, key)
	if err != nil {
		return nil, err
	}
	// Another process may have won the insert
	key, err = db.GetSetting(ctx, signingKeySetting)
	if err != nil {
		return nil, err
	}
	return []byte(key), nil
}
