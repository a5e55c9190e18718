package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/NewsPortal/internal/app"
	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeFailure maps err to a status. Client errors of the backend pass
// through with their message; every other backend failure is a 502.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

func statusFor(err error) (int, string) {
	var apiErr *backend.Error
	switch {
	case errors.Is(err, app.ErrMissingID),
		errors.Is(err, app.ErrMissingOption),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, app.ErrEmptyComment):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return apiErr.Status, msg
	default:
		return http.StatusBadGateway, "backend unavailable"
	}
}
