package app

import (
	"context"
	"sync"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

var _ domain.Transport = (*MockTransport)(nil)

func (m *MockTransport) Get(ctx context.Context, endpoint string, out any) error {
	args := m.Called(ctx, endpoint, out)
	return args.Error(0)
}

func (m *MockTransport) SendJSON(ctx context.Context, method, endpoint string, body, out any) error {
	args := m.Called(ctx, method, endpoint, body, out)
	return args.Error(0)
}

func (m *MockTransport) SendMultipart(ctx context.Context, method, endpoint string, form *backend.Form, out any) error {
	args := m.Called(ctx, method, endpoint, form, out)
	return args.Error(0)
}

func (m *MockTransport) Delete(ctx context.Context, endpoint string, out any) error {
	args := m.Called(ctx, endpoint, out)
	return args.Error(0)
}

// fill returns a Run callback that copies v into the out argument at index i.
func fill[T any](i int, v T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*args.Get(i).(*T) = v
	}
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

var _ domain.SessionRepository = (*memorySessions)(nil)

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]domain.Session)}
}

func (m *memorySessions) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memorySessions) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memorySessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
