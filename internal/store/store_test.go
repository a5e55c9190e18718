package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type counter struct {
	calls atomic.Int32
}

func (c *counter) fetch(v []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		c.calls.Add(1)
		return v, nil
	}
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, keys []Key) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestQuery_CoalescesConcurrentReads(t *testing.T) {
	s := newTestStore(t)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fetch := func(context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []string{"a", "b"}, nil
	}

	results := make([]Result[[]string], 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = Query(context.Background(), s, Key{"news"}, fetch)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = Query(context.Background(), s, Key{"news"}, fetch)
	}()
	time.Sleep(50 * time.Millisecond)

	assert.True(t, Peek[[]string](s, Key{"news"}).Loading, "entry should be loading while the fetch is outstanding")
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent reads of one key must share a single fetch")
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, []string{"a", "b"}, r.Data)
		assert.False(t, r.Loading)
	}
}

func TestQuery_FreshEntryServedFromCache(t *testing.T) {
	s := newTestStore(t)
	c := &counter{}

	first := Query(context.Background(), s, Key{"categories"}, c.fetch([]string{"sports"}))
	second := Query(context.Background(), s, Key{"categories"}, c.fetch([]string{"other"}))

	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, []string{"sports"}, first.Data)
	assert.Equal(t, []string{"sports"}, second.Data)
	assert.False(t, second.Stale)
}

func TestQuery_DisabledKey(t *testing.T) {
	s := newTestStore(t)
	c := &counter{}

	r := Query(context.Background(), s, Of("news", ""), c.fetch([]string{"x"}))

	assert.Equal(t, int32(0), c.calls.Load())
	assert.False(t, r.HasData)
	assert.False(t, r.Loading)
	assert.NoError(t, r.Err)
	assert.Equal(t, 0, s.Len())
}

func TestQuery_KeepsValueOnError(t *testing.T) {
	s := newTestStore(t)
	key := Key{"jobs"}

	ok := Query(context.Background(), s, key, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, ok.Err)

	s.Invalidate(key)
	failed := Query(context.Background(), s, key, func(context.Context) (int, error) {
		return 0, errors.New("backend down")
	})

	assert.EqualError(t, failed.Err, "backend down")
	assert.True(t, failed.HasData)
	assert.Equal(t, 7, failed.Data)
	assert.True(t, failed.Stale, "a failed refetch leaves the entry stale so the next read retries")
}

func TestResult_RefetchForcesRequest(t *testing.T) {
	s := newTestStore(t)
	var n atomic.Int32
	fetch := func(context.Context) (int32, error) { return n.Add(1), nil }

	r := Query(context.Background(), s, Key{"video"}, fetch)
	assert.Equal(t, int32(1), r.Data)

	r = r.Refetch(context.Background())
	assert.Equal(t, int32(2), r.Data)
	assert.Equal(t, int32(2), n.Load())
}

func TestResult_RefetchFromPeekUsesRegisteredFetcher(t *testing.T) {
	s := newTestStore(t)
	var n atomic.Int32
	fetch := func(context.Context) (int32, error) { return n.Add(1), nil }

	Query(context.Background(), s, Key{"quiz"}, fetch)
	r := Peek[int32](s, Key{"quiz"}).Refetch(context.Background())

	require.NoError(t, r.Err)
	assert.Equal(t, int32(2), r.Data)

	unknown := Peek[int32](s, Key{"poll"}).Refetch(context.Background())
	assert.ErrorIs(t, unknown.Err, ErrNoFetcher)
}

func TestMutate_InvalidatesMatchingKeysOnly(t *testing.T) {
	s := newTestStore(t)
	c := &counter{}

	Query(context.Background(), s, Key{"news"}, c.fetch([]string{"list"}))
	Query(context.Background(), s, Key{"news", "1"}, c.fetch([]string{"one"}))
	Query(context.Background(), s, Key{"news-letter"}, c.fetch([]string{"subs"}))
	Query(context.Background(), s, Key{"jobs"}, c.fetch([]string{"jobs"}))

	got, err := Mutate(context.Background(), s, func(context.Context) (string, error) {
		return "deleted", nil
	}, Key{"news"})
	require.NoError(t, err)
	assert.Equal(t, "deleted", got)

	assert.True(t, Peek[[]string](s, Key{"news"}).Stale)
	assert.True(t, Peek[[]string](s, Key{"news", "1"}).Stale)
	assert.False(t, Peek[[]string](s, Key{"news-letter"}).Stale)
	assert.False(t, Peek[[]string](s, Key{"jobs"}).Stale)

	before := c.calls.Load()
	Query(context.Background(), s, Key{"news"}, c.fetch([]string{"refreshed"}))
	assert.Equal(t, before+1, c.calls.Load(), "stale key must refetch on next read")
}

func TestMutate_FailureLeavesCacheUntouched(t *testing.T) {
	b := new(MockBroadcaster)
	s := newTestStore(t, WithBroadcaster(b))
	c := &counter{}

	Query(context.Background(), s, Key{"news"}, c.fetch([]string{"a"}))

	_, err := Mutate(context.Background(), s, func(context.Context) (any, error) {
		return nil, errors.New("403 forbidden")
	}, Key{"news"})
	require.EqualError(t, err, "403 forbidden")

	r := Query(context.Background(), s, Key{"news"}, c.fetch([]string{"b"}))
	assert.False(t, r.Stale)
	assert.Equal(t, []string{"a"}, r.Data)
	assert.Equal(t, int32(1), c.calls.Load())
	b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestMutate_BroadcastsTargets(t *testing.T) {
	b := new(MockBroadcaster)
	b.On("Broadcast", mock.Anything, []Key{{"poll"}}).Return(nil).Once()
	s := newTestStore(t, WithBroadcaster(b))

	_, err := Mutate(context.Background(), s, func(context.Context) (bool, error) {
		return true, nil
	}, Key{"poll"}, Disabled)
	require.NoError(t, err)

	b.AssertExpectations(t)
}

func TestObserver_RefetchesAfterInvalidation(t *testing.T) {
	s := newTestStore(t)
	var n atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int32, error) {
		v := n.Add(1)
		if v == 2 {
			<-release
		}
		return v, nil
	}
	other := &counter{}
	Query(context.Background(), s, Key{"users"}, other.fetch([]string{"u"}))

	obs := Observe(s, Key{"news"}, fetch)
	defer obs.Close()
	require.Equal(t, int32(1), obs.Load(context.Background()).Data)

	_, err := Mutate(context.Background(), s, func(context.Context) (int, error) { return 0, nil }, Key{"news"})
	require.NoError(t, err)

	waitFor(t, obs, func(r Result[int32]) bool { return r.Loading })
	close(release)
	final := waitFor(t, obs, func(r Result[int32]) bool { return !r.Loading && r.Data == 2 })

	assert.False(t, final.Stale)
	assert.Equal(t, int32(1), other.calls.Load(), "unrelated keys are not refetched")
}

func TestObserver_ClosedObserverDoesNotRefetch(t *testing.T) {
	s := newTestStore(t)
	c := &counter{}

	obs := Observe(s, Key{"epaper"}, c.fetch([]string{"e"}))
	obs.Load(context.Background())
	obs.Close()

	s.Invalidate(Key{"epaper"})
	assert.Never(t, func() bool { return c.calls.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.True(t, obs.Current().Stale)
}

func TestQuery_DiscardsOlderResponse(t *testing.T) {
	s := newTestStore(t)
	key := Key{"advertisement"}
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})

	slow := func(context.Context) (string, error) {
		close(slowStarted)
		<-releaseSlow
		return "old", nil
	}
	fast := func(context.Context) (string, error) { return "new", nil }

	done := make(chan Result[string])
	go func() { done <- Query(context.Background(), s, key, slow) }()
	<-slowStarted

	forced := Result[string]{store: s, key: key, fetch: fast}.Refetch(context.Background())
	require.NoError(t, forced.Err)
	assert.Equal(t, "new", forced.Data)

	close(releaseSlow)
	late := <-done

	assert.Equal(t, "new", late.Data, "the older response must not overwrite the newer one")
	assert.Equal(t, "new", Peek[string](s, key).Data)
}

func TestQuery_ReadAfterMutationDoesNotJoinEarlierFetch(t *testing.T) {
	s := newTestStore(t)
	key := Key{"news"}
	var server atomic.Value
	server.Store("before")

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		v := server.Load().(string)
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return v, nil
	}

	first := make(chan Result[string])
	go func() { first <- Query(context.Background(), s, key, fetch) }()
	<-started

	_, err := Mutate(context.Background(), s, func(context.Context) (bool, error) {
		server.Store("after")
		return true, nil
	}, key)
	require.NoError(t, err)

	second := Query(context.Background(), s, key, fetch)
	require.NoError(t, second.Err)
	assert.Equal(t, "after", second.Data)
	assert.False(t, second.Stale)
	assert.Equal(t, int32(2), calls.Load())

	close(release)
	<-first
	assert.Equal(t, "after", Peek[string](s, key).Data, "the earlier response is discarded")
}

func TestQuery_FailedReadsWithoutValueLeaveNoEntries(t *testing.T) {
	s := newTestStore(t)
	failing := func(context.Context) (string, error) { return "", errors.New("not found") }

	for i := 0; i < 100; i++ {
		r := Query(context.Background(), s, Of("news", strconv.Itoa(i)), failing)
		assert.EqualError(t, r.Err, "not found")
		assert.False(t, r.HasData)
	}
	assert.Equal(t, 0, s.Len())

	Peek[string](s, Key{"poll"}).Refetch(context.Background())
	assert.Equal(t, 0, s.Len())

	obs := Observe(s, Key{"quiz"}, failing)
	obs.Load(context.Background())
	assert.Equal(t, 1, s.Len(), "an observed entry is kept")
	obs.Close()
	assert.Equal(t, 0, s.Len())

	ok := Query(context.Background(), s, Key{"jobs"}, func(context.Context) (string, error) { return "j", nil })
	require.NoError(t, ok.Err)
	s.Invalidate(Key{"jobs"})
	Query(context.Background(), s, Key{"jobs"}, failing)
	assert.Equal(t, "j", Peek[string](s, Key{"jobs"}).Data, "an entry with a value survives a failed refetch")
}

func TestKey_DistinctKeysHaveDistinctIDs(t *testing.T) {
	pairs := [][2]Key{
		{{"news", "a\x1fb"}, {"news", "a", "b"}},
		{{"news", "1:a"}, {"news", "1", "a"}},
		{{"ab"}, {"a", "b"}},
	}
	for _, p := range pairs {
		assert.NotEqual(t, p[0].id(), p[1].id(), "%s vs %s", p[0], p[1])
	}
	assert.Equal(t, Key{"news", "1"}.id(), Of("news", "1").id())
}

func TestQuery_CallerCancelDoesNotAbortSharedFetch(t *testing.T) {
	s := newTestStore(t)
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	r := Query(ctx, s, Key{"news"}, fetch)
	assert.ErrorIs(t, r.Err, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool {
		return Peek[string](s, Key{"news"}).Data == "done"
	}, time.Second, 10*time.Millisecond)
}

func TestQuery_FetchTimeout(t *testing.T) {
	s := newTestStore(t, WithFetchTimeout(20*time.Millisecond))

	r := Query(context.Background(), s, Key{"news"}, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	assert.False(t, r.Loading)
}

func TestQuery_MaxAge(t *testing.T) {
	s := newTestStore(t, WithMaxAge(30*time.Millisecond))
	c := &counter{}

	Query(context.Background(), s, Key{"jobs"}, c.fetch([]string{"a"}))
	time.Sleep(50 * time.Millisecond)
	Query(context.Background(), s, Key{"jobs"}, c.fetch([]string{"a"}))

	assert.Equal(t, int32(2), c.calls.Load())
}

func TestQuery_TypeMismatch(t *testing.T) {
	s := newTestStore(t)
	Query(context.Background(), s, Key{"users"}, func(context.Context) (int, error) { return 1, nil })

	r := Query(context.Background(), s, Key{"users"}, func(context.Context) (string, error) { return "x", nil })
	assert.Error(t, r.Err)
	assert.False(t, r.HasData)
}

func TestStore_ClosedRejectsReads(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	r := Query(context.Background(), s, Key{"news"}, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, r.Err, ErrClosed)
}

func waitFor[T any](t *testing.T, obs *Observer[T], cond func(Result[T]) bool) Result[T] {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r := <-obs.Updates():
			if cond(r) {
				return r
			}
		case <-timeout:
			t.Fatalf("observer did not reach expected state; current %+v", obs.Current())
		}
	}
}
