package store

import (
	"context"
	"fmt"
	"time"
)

// Result is what a reader sees for one key.
type Result[T any] struct {
	Data      T
	HasData   bool
	Loading   bool
	Err       error
	Stale     bool
	UpdatedAt time.Time

	store *Store
	key   Key
	fetch func(context.Context) (T, error)
}

// Refetch forces a new request for the result's key regardless of staleness.
// On a Result of a Disabled key it is a no-op.
func (r Result[T]) Refetch(ctx context.Context) Result[T] {
	if r.store == nil || !r.key.Enabled() {
		return r
	}
	snap, err := r.store.load(ctx, r.key, erase(r.fetch), true)
	return toResult(r.store, r.key, r.fetch, snap, err)
}

// Key returns the key the result was read for.
func (r Result[T]) Key() Key {
	return r.key
}

// Query reads key through the cache. A fresh entry is returned without a
// network call; otherwise fetch runs once for all concurrent readers of key.
// A failed fetch sets Err and keeps the previous Data. Reading Disabled
// returns an empty Result and never calls fetch.
func Query[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error)) Result[T] {
	if !key.Enabled() {
		return Result[T]{}
	}
	snap, err := s.load(ctx, key, erase(fetch), false)
	return toResult(s, key, fetch, snap, err)
}

// Peek returns the cached state of key without fetching.
func Peek[T any](s *Store, key Key) Result[T] {
	if !key.Enabled() {
		return Result[T]{}
	}
	return toResult[T](s, key, nil, s.peek(key), nil)
}

func erase[T any](fetch func(context.Context) (T, error)) fetchFunc {
	if fetch == nil {
		return nil
	}
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func toResult[T any](s *Store, key Key, fetch func(context.Context) (T, error), snap snapshot, err error) Result[T] {
	r := Result[T]{
		Loading:   snap.loading,
		Err:       snap.err,
		Stale:     snap.stale,
		UpdatedAt: snap.updatedAt,
		store:     s,
		key:       key,
		fetch:     fetch,
	}
	if err != nil {
		r.Err = err
	}
	if snap.hasValue {
		v, ok := snap.value.(T)
		if !ok {
			r.Err = fmt.Errorf("store: key %s holds %T, not %T", key, snap.value, r.Data)
			return r
		}
		r.Data = v
		r.HasData = true
	}
	return r
}
