package factory

import (
	"errors"
	"fmt"

	"github.com/NewsPortal/internal/app"
	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
	"github.com/NewsPortal/internal/store"
	transport "github.com/NewsPortal/internal/transport/http"
	"github.com/NewsPortal/pkg/config"
)

// NewPortal creates the content services.
func NewPortal(s *store.Store, client *backend.Client, cfg *config.Config) (*app.Portal, error) {
	if s == nil {
		return nil, errors.New("store is nil")
	}
	if cfg.ItemsPerPage < 1 || cfg.ItemsPerPage > 100 {
		return nil, fmt.Errorf("invalid items per page: %d (must be 1-100)", cfg.ItemsPerPage)
	}
	return app.NewPortal(s, client, cfg.ItemsPerPage), nil
}

// NewAuthService creates the login service.
func NewAuthService(client *backend.Client, sessions domain.SessionRepository, cfg *config.Config) (*app.AuthService, error) {
	if sessions == nil {
		return nil, errors.New("session repository is nil")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("invalid session TTL: %s", cfg.SessionTTL)
	}
	return app.NewAuthService(client, sessions, cfg.SessionTTL), nil
}

// NewWarmer creates the hot collection warmer.
func NewWarmer(portal *app.Portal, cfg *config.Config) (*app.Warmer, error) {
	return app.NewWarmer(portal, cfg.WarmKeys)
}

// NewHandler creates the HTTP API handler.
func NewHandler(portal *app.Portal, auth *app.AuthService) *transport.Handler {
	return transport.NewHandler(portal, auth)
}
