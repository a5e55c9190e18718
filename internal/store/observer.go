package store

import (
	"context"
	"sync"
)

// Observer is a live reader of one key, the server-side counterpart of a
// mounted view. While it is open, invalidating its key triggers a
// background refetch and every state change is delivered on Updates.
type Observer[T any] struct {
	store *Store
	key   Key
	fetch func(context.Context) (T, error)

	updates chan Result[T]
	once    sync.Once
}

// Observe registers an observer for key. fetch is used for background
// refetches after invalidation. Observing Disabled yields an observer that
// never receives updates.
func Observe[T any](s *Store, key Key, fetch func(context.Context) (T, error)) *Observer[T] {
	o := &Observer[T]{
		store:   s,
		key:     key,
		fetch:   fetch,
		updates: make(chan Result[T], 1),
	}
	if key.Enabled() {
		s.subscribe(key, o, erase(fetch))
	}
	return o
}

// Load reads the key through the cache, fetching if needed.
func (o *Observer[T]) Load(ctx context.Context) Result[T] {
	return Query(ctx, o.store, o.key, o.fetch)
}

// Current returns the cached state without fetching.
func (o *Observer[T]) Current() Result[T] {
	return Peek[T](o.store, o.key)
}

// Updates delivers the latest state after each change. Only the most
// recent state is buffered; slow consumers skip intermediate ones.
func (o *Observer[T]) Updates() <-chan Result[T] {
	return o.updates
}

// Close unregisters the observer.
func (o *Observer[T]) Close() {
	o.once.Do(func() {
		if o.key.Enabled() {
			o.store.unsubscribe(o.key, o)
		}
	})
}

// notify runs with the store lock held and must not block.
func (o *Observer[T]) notify(snap snapshot) {
	r := toResult(o.store, o.key, o.fetch, snap, nil)
	select {
	case o.updates <- r:
		return
	default:
	}
	select {
	case <-o.updates:
	default:
	}
	select {
	case o.updates <- r:
	default:
	}
}
