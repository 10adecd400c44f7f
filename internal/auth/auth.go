// Package auth obtains the bearer token and reads its claims for display.
// Signatures are never checked here; the backend is the enforcement point.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/domain"
)

// ErrNoToken no token is stored.
var ErrNoToken = errors.New("not logged in")

const loginPath = "/auth/login"

// Claims carried by the backend-issued token.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the user id, falling back to the registered subject.
func (c *Claims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// ExpiresIn returns the time left until expiry; ok is false when the token has no expiry.
func (c *Claims) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}

// Expired reports whether the token expiry is in the past.
func (c *Claims) Expired(now time.Time) bool {
	left, ok := c.ExpiresIn(now)
	return ok && left <= 0
}

// Inspect decodes the claims of token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	return claims, nil
}

// Requester sends one backend request.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (*clients.Envelope, error)
}

// Credentials login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges credentials for a token.
func Login(ctx context.Context, req Requester, creds Credentials) (string, error) {
	env, err := req.Do(ctx, http.MethodPost, loginPath, nil, creds)
	if err != nil {
		return "", errors.Wrap(err, "login")
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", errors.Wrap(err, "decode login response")
	}
	if data.Token == "" {
		return "", errors.New("login response carries no token")
	}
	return data.Token, nil
}
