package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NewsPortal/internal/infra/gateway"
	"github.com/NewsPortal/pkg/logging"
)

func main() {
	slog.SetDefault(logging.New(os.Stdout, os.Getenv("LOG_LEVEL")))

	b := gateway.NewMockBackend()
	seed(b)

	addr := ":4000"
	if port := os.Getenv("MOCK_BACKEND_PORT"); port != "" {
		addr = ":" + port
	}
	srv := &http.Server{Addr: addr, Handler: b, ReadHeaderTimeout: 10 * time.Second}

	slog.Info("Mock backend running", "address", addr)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func seed(b *gateway.MockBackend) {
	now := time.Now().UTC()

	b.Seed("users",
		map[string]any{"id": "1", "name": "Admin", "email": "admin@example.com", "password": "admin", "role": "admin"},
		map[string]any{"id": "2", "name": "Editor", "email": "editor@example.com", "password": "editor", "role": "editor"},
		map[string]any{"id": "3", "name": "Reporter", "email": "reporter@example.com", "password": "reporter", "role": "reporter"},
	)
	b.Seed("categories",
		map[string]any{"id": "national", "name": "National", "name_bn": "জাতীয়", "slug": "national", "order": 1},
		map[string]any{"id": "sports", "name": "Sports", "name_bn": "খেলা", "slug": "sports", "order": 2},
	)
	b.Seed("news",
		map[string]any{
			"id":           "101",
			"title":        "Metro rail extends service hours",
			"title_bn":     "মেট্রোরেলের সেবার সময় বাড়ল",
			"summary":      "Trains will now run until 11pm.",
			"category_id":  "national",
			"category":     "National",
			"status":       "published",
			"featured":     true,
			"published_at": now.Add(-2 * time.Hour),
		},
		map[string]any{
			"id":           "102",
			"title":        "Tigers clinch series",
			"title_bn":     "সিরিজ জিতল টাইগাররা",
			"summary":      "A last-over finish in Chattogram.",
			"category_id":  "sports",
			"category":     "Sports",
			"status":       "published",
			"published_at": now.Add(-1 * time.Hour),
		},
	)
	b.Seed("poll", map[string]any{
		"id":          "1",
		"question":    "Should school hours start later?",
		"question_bn": "স্কুলের সময় কি পরে শুরু হওয়া উচিত?",
		"active":      true,
		"options": []any{
			map[string]any{"id": "yes", "label": "Yes", "votes": 12},
			map[string]any{"id": "no", "label": "No", "votes": 7},
		},
	})
	b.Seed("jobs", map[string]any{"id": "1", "title": "Staff Reporter", "company": "Daily Portal", "location": "Dhaka"})
	b.Seed("video", map[string]any{"id": "1", "title": "Budget explained", "url": "https://example.com/v/1", "published_at": now})
}
