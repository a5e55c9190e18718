package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/NewsPortal/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter returns the portal routes plus health and metrics endpoints.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Write errors are not actionable for a health probe.
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	h.routes(r)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func NewHTTPServer(cfg *config.Config, h *Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
