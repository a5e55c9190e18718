package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NewsPortal/internal/infra/backend"
	"github.com/NewsPortal/internal/infra/queue"
	"github.com/NewsPortal/internal/store"
	"github.com/NewsPortal/pkg/config"
	"go.uber.org/fx"
)

// NewBackendClient creates the REST backend client.
func NewBackendClient(cfg *config.Config) (*backend.Client, error) {
	if cfg.BackendOrigin == "" {
		return nil, errors.New("backend origin not configured")
	}
	if cfg.BackendTimeout <= 0 {
		return nil, fmt.Errorf("invalid backend timeout: %s", cfg.BackendTimeout)
	}
	client := backend.NewFromOrigin(cfg.BackendOrigin, backend.WithTimeout(cfg.BackendTimeout))
	slog.Info("Backend client configured", "base_url", client.BaseURL(), "timeout", cfg.BackendTimeout)
	return client, nil
}

// NewStore creates the process-wide cache. Successful writes are broadcast
// to other replicas when a producer is configured.
func NewStore(cfg *config.Config, producer *queue.KafkaProducer, lc fx.Lifecycle) (*store.Store, error) {
	if cfg.CacheFetchTimeout <= 0 {
		return nil, fmt.Errorf("invalid cache fetch timeout: %s", cfg.CacheFetchTimeout)
	}
	if cfg.CacheMaxAge < 0 {
		return nil, fmt.Errorf("invalid cache max age: %s", cfg.CacheMaxAge)
	}

	opts := []store.Option{
		store.WithFetchTimeout(cfg.CacheFetchTimeout),
		store.WithMaxAge(cfg.CacheMaxAge),
	}
	if producer != nil {
		opts = append(opts, store.WithBroadcaster(producer))
	}
	s := store.New(opts...)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}
