package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
)

// SessionCookie carries the session id.
const SessionCookie = "portal_session"

type sessionKey struct{}

// SessionFrom returns the session attached by the session middleware.
func SessionFrom(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*domain.Session)
	return s, ok
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// requireSession rejects requests without a live session. Accepted
// requests carry the session and its backend token in their context.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.auth.Resolve(r.Context(), sessionID(r))
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = backend.WithToken(ctx, sess.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// allow admits sessions holding one of roles.
func allow(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok || !sess.HasRole(roles...) {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("Request served", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
