package app

import (
	"context"
	"log/slog"
	"sync"
)

// Warmable is a collection that can be kept loaded.
type Warmable interface {
	Name() string
	Warm(ctx context.Context) (stop func())
}

// Warm loads the collection and keeps it observed until stop is called, so
// it is refetched as soon as a write invalidates it.
func (r *Resource[T]) Warm(ctx context.Context) (stop func()) {
	o := r.Observe()
	if res := o.Load(ctx); res.Err != nil {
		slog.Warn("Initial warm load failed", "collection", r.name, "error", res.Err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case res := <-o.Updates():
				if res.Loading {
					continue
				}
				if res.Err != nil {
					slog.Warn("Warm refetch failed", "collection", r.name, "error", res.Err)
					continue
				}
				slog.Debug("Warm collection refreshed", "collection", r.name)
			}
		}
	}()

	return func() {
		o.Close()
		close(done)
		wg.Wait()
	}
}

// Warmer keeps a set of hot collections observed.
type Warmer struct {
	targets []Warmable

	mu    sync.Mutex
	stops []func()
}

// NewWarmer resolves names against portal.
func NewWarmer(portal *Portal, names []string) (*Warmer, error) {
	w := &Warmer{}
	for _, name := range names {
		t, err := portal.Warmable(name)
		if err != nil {
			return nil, err
		}
		w.targets = append(w.targets, t)
	}
	return w, nil
}

// Start loads every target and begins observing it.
func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.stops) > 0 {
		return
	}
	for _, t := range w.targets {
		w.stops = append(w.stops, t.Warm(ctx))
	}
	slog.Info("Cache warmer started", "collections", len(w.targets))
}

// Stop ends observation of every target.
func (w *Warmer) Stop() {
	w.mu.Lock()
	stops := w.stops
	w.stops = nil
	w.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}
