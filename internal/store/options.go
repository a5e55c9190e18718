package store

import (
	"context"
	"time"
)

// DefaultFetchTimeout bounds a single fetch. Without it a request that never
// resolves would leave the entry loading forever.
const DefaultFetchTimeout = 10 * time.Second

// Broadcaster forwards local invalidations to other portal replicas.
type Broadcaster interface {
	Broadcast(ctx context.Context, keys []Key) error
}

type config struct {
	fetchTimeout time.Duration
	maxAge       time.Duration
	broadcaster  Broadcaster
}

// Option configures a Store.
type Option func(*config)

// WithFetchTimeout sets the per-fetch timeout. Defaults to DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithMaxAge makes entries stale after d even without an invalidation.
// Zero (the default) keeps entries fresh until a mutation invalidates them.
func WithMaxAge(d time.Duration) Option {
	return func(c *config) { c.maxAge = d }
}

// WithBroadcaster publishes successful local invalidations.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *config) { c.broadcaster = b }
}

func applyOptions(opts []Option) config {
	cfg := config{fetchTimeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
