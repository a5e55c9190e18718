package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Method  string
	URL     string
	Status  int
	Message string
	Body    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

// Temporary reports whether a later attempt may succeed.
func (e *Error) Temporary() bool {
	switch e.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func newError(method, url string, status int, body []byte) *Error {
	e := &Error{Method: method, URL: url, Status: status}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	e.Body = string(body)

	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &msg) == nil {
		e.Message = msg.Message
		if e.Message == "" {
			e.Message = msg.Error
		}
	}
	return e
}
