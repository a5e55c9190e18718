package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
	"github.com/google/uuid"
)

const loginEndpoint = "/auth/login"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials are submitted by the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthService exchanges credentials for a backend token and keeps it in a
// server-side session.
type AuthService struct {
	transport domain.Transport
	sessions  domain.SessionRepository
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(t domain.Transport, sessions domain.SessionRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{transport: t, sessions: sessions, ttl: ttl, now: time.Now}
}

// Login authenticates against the backend and persists a new session.
func (a *AuthService) Login(ctx context.Context, c Credentials) (*domain.Session, error) {
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var resp loginResponse
	if err := a.transport.SendJSON(ctx, http.MethodPost, loginEndpoint, c, &resp); err != nil {
		var apiErr *backend.Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: backend returned no token")
	}

	role := resp.User.Role
	if !role.Valid() {
		role = domain.RoleUser
	}
	now := a.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Token:     resp.Token,
		UserID:    resp.User.ID,
		Name:      resp.User.Name,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	slog.Info("User logged in", "user_id", sess.UserID, "role", sess.Role)
	return sess, nil
}

// Resolve returns the live session id. Expired sessions are removed.
func (a *AuthService) Resolve(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	sess, err := a.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(a.now()) {
		if err := a.sessions.Delete(ctx, id); err != nil {
			slog.Warn("Failed to delete expired session", "error", err)
		}
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Logout deletes session id.
func (a *AuthService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return a.sessions.Delete(ctx, id)
}

type userSessionRevoker interface {
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// RevokeUser ends every session of userID when the session store supports
// it, e.g. after the account was deleted.
func (a *AuthService) RevokeUser(ctx context.Context, userID string) error {
	r, ok := a.sessions.(userSessionRevoker)
	if !ok || userID == "" {
		return nil
	}
	n, err := r.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	slog.Info("User sessions revoked", "user_id", userID, "sessions", n)
	return nil
}
