// Package store is the portal's data-access cache. Reads are keyed by a
// logical Key, share one outstanding fetch per key and keep their last value
// on failure. Writes go through Mutate, which marks every matching entry
// stale on success so the next read, or any live Observer, refetches.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/NewsPortal/internal/infra/metrics"
	"github.com/NewsPortal/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const tracerName = "news-portal/store"

var (
	// ErrClosed is returned by reads issued after Close.
	ErrClosed = errors.New("store: closed")
	// ErrNoFetcher is returned when a key is refetched before any reader
	// supplied a fetch function for it.
	ErrNoFetcher = errors.New("store: no fetcher registered for key")
)

type fetchFunc func(ctx context.Context) (any, error)

// listener receives entry snapshots; implemented by Observer.
type listener interface {
	notify(snapshot)
}

type entry struct {
	key       Key
	value     any
	hasValue  bool
	err       error
	stale     bool
	inflight  int
	updatedAt time.Time

	// issued is the generation of the latest fetch started, applied the
	// generation whose response is currently held. A fetch issued at or
	// before invalidatedThrough predates the latest invalidation.
	issued             uint64
	applied            uint64
	invalidatedThrough uint64

	fetch     fetchFunc
	listeners map[listener]struct{}
}

// snapshot is an immutable copy of an entry.
type snapshot struct {
	value     any
	hasValue  bool
	loading   bool
	err       error
	stale     bool
	updatedAt time.Time
}

// Store is a process-wide cache shared by every reader. Construct one per
// process with New and release it with Close.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	sf      singleflight.Group
	cfg     config
	sampler *logging.ErrorSampler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		entries: make(map[string]*entry),
		cfg:     applyOptions(opts),
		sampler: logging.NewErrorSampler(10),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close stops background refetches and waits for them to finish.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Invalidate marks every entry whose key has one of the targets as prefix
// stale. It is used for invalidations received from other replicas and is
// not broadcast again.
func (s *Store) Invalidate(targets ...Key) int {
	return s.invalidate(targets, "remote")
}

func (s *Store) invalidate(targets []Key, origin string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for _, e := range s.entries {
		if !matchesAny(e.key, targets) {
			continue
		}
		e.stale = true
		e.invalidatedThrough = e.issued
		// The next read must not join a fetch issued before the write.
		s.sf.Forget(e.key.id())
		marked++
		metrics.Invalidations.WithLabelValues(e.key.Resource(), origin).Inc()
		s.notifyLocked(e)

		if len(e.listeners) > 0 && e.fetch != nil && !s.closed {
			s.refetchInBackgroundLocked(e.key, e.fetch)
		}
	}
	if marked > 0 {
		slog.Debug("Cache entries invalidated", "targets", targets, "entries", marked, "origin", origin)
	}
	return marked
}

func matchesAny(k Key, targets []Key) bool {
	for _, t := range targets {
		if k.HasPrefix(t) {
			return true
		}
	}
	return false
}

func (s *Store) refetchInBackgroundLocked(key Key, fetch fetchFunc) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.load(s.ctx, key, fetch, true); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("Background refetch interrupted", "key", key, "error", err)
		}
	}()
}

// entryLocked returns the entry for key, creating it on first use.
func (s *Store) entryLocked(key Key) *entry {
	id := key.id()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{key: key}
		s.entries[id] = e
	}
	return e
}

func (s *Store) snapshotLocked(e *entry) snapshot {
	return snapshot{
		value:     e.value,
		hasValue:  e.hasValue,
		loading:   e.inflight > 0,
		err:       e.err,
		stale:     e.stale || s.expiredLocked(e),
		updatedAt: e.updatedAt,
	}
}

func (s *Store) expiredLocked(e *entry) bool {
	return s.cfg.maxAge > 0 && e.hasValue && time.Since(e.updatedAt) > s.cfg.maxAge
}

func (s *Store) notifyLocked(e *entry) {
	if len(e.listeners) == 0 {
		return
	}
	snap := s.snapshotLocked(e)
	for l := range e.listeners {
		l.notify(snap)
	}
}

// peek returns the current snapshot of key without fetching.
func (s *Store) peek(key Key) snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.id()]
	if !ok {
		return snapshot{}
	}
	return s.snapshotLocked(e)
}

// load returns a fresh snapshot of key, fetching when the entry is missing,
// stale or force is set. Concurrent loads of one key share a single fetch;
// force starts a new one even if a fetch is already outstanding.
func (s *Store) load(ctx context.Context, key Key, fetch fetchFunc, force bool) (snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return snapshot{}, ErrClosed
	}
	e := s.entryLocked(key)
	if fetch == nil {
		fetch = e.fetch
	}
	if fetch == nil {
		s.dropIfEmptyLocked(e)
		s.mu.Unlock()
		return snapshot{}, ErrNoFetcher
	}
	e.fetch = fetch
	if !force && e.hasValue && !e.stale && !s.expiredLocked(e) {
		snap := s.snapshotLocked(e)
		s.mu.Unlock()
		metrics.CacheHits.WithLabelValues(key.Resource()).Inc()
		return snap, nil
	}
	s.mu.Unlock()

	metrics.CacheMisses.WithLabelValues(key.Resource()).Inc()
	id := key.id()
	if force {
		s.sf.Forget(id)
	}

	// The shared fetch must outlive any single caller, so it runs on a
	// context that keeps the caller's values but not its cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(id, func() (any, error) {
		return s.runFetch(fetchCtx, key, fetch), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.CoalescedReads.WithLabelValues(key.Resource()).Inc()
		}
		return res.Val.(snapshot), nil
	case <-ctx.Done():
		return s.peek(key), ctx.Err()
	}
}

func (s *Store) runFetch(ctx context.Context, key Key, fetch fetchFunc) snapshot {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.issued++
	gen := e.issued
	e.inflight++
	s.notifyLocked(e)
	s.mu.Unlock()

	metrics.FetchesInFlight.Inc()
	defer metrics.FetchesInFlight.Dec()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "store.fetch")
	span.SetAttributes(attribute.String("key", key.String()))
	defer span.End()

	fctx, cancel := context.WithTimeout(ctx, s.cfg.fetchTimeout)
	start := time.Now()
	value, err := fetch(fctx)
	cancel()
	metrics.FetchDuration.WithLabelValues(key.Resource()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.FetchErrors.WithLabelValues(key.Resource()).Inc()
		if ok, n := s.sampler.Sample(key.Resource()); ok {
			slog.Warn("Fetch failed", "key", key, "error", err, "occurrences", n)
		}
	} else {
		s.sampler.Reset(key.Resource())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.inflight--
	s.applyLocked(e, gen, value, err)
	s.notifyLocked(e)
	snap := s.snapshotLocked(e)
	s.dropIfEmptyLocked(e)
	return snap
}

// dropIfEmptyLocked removes an entry that holds no value, has no observer
// and no fetch in flight, so failed reads of arbitrary ids leave no trace.
func (s *Store) dropIfEmptyLocked(e *entry) {
	if e.hasValue || e.inflight > 0 || len(e.listeners) > 0 {
		return
	}
	id := e.key.id()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
}

// applyLocked stores the outcome of fetch generation gen. Responses older
// than the one already held are dropped. A success issued before the latest
// invalidation is stored but leaves the entry stale.
func (s *Store) applyLocked(e *entry, gen uint64, value any, err error) {
	if gen <= e.applied {
		metrics.DiscardedResponses.WithLabelValues(e.key.Resource()).Inc()
		return
	}
	e.applied = gen
	if err != nil {
		e.err = err
		return
	}
	e.value = value
	e.hasValue = true
	e.err = nil
	e.updatedAt = time.Now()
	e.stale = gen <= e.invalidatedThrough
}

func (s *Store) subscribe(key Key, l listener, fetch fetchFunc) snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key)
	if e.listeners == nil {
		e.listeners = make(map[listener]struct{})
	}
	e.listeners[l] = struct{}{}
	if fetch != nil {
		e.fetch = fetch
	}
	return s.snapshotLocked(e)
}

func (s *Store) unsubscribe(key Key, l listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key.id()]; ok {
		delete(e.listeners, l)
		s.dropIfEmptyLocked(e)
	}
}
