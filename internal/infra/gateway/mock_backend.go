// Package gateway provides an in-memory stand-in for the portal's REST
// backend, used by cmd/mock-backend and by tests.
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxUploadMemory = 32 << 20

type document = map[string]any

// required lists the fields a create must carry, per collection.
var required = map[string][]string{
	"news":       {"title"},
	"categories": {"name"},
	"poll":       {"question"},
	"quiz":       {"title"},
	"jobs":       {"title"},
	"video":      {"title"},
	"epaper":     {"title"},
	"users":      {"email"},
}

// publicCreate lists the collections anyone may append to.
var publicCreate = map[string]bool{"news-letter": true}

// MockBackend serves the /api/v1 contract from memory. Reads, votes,
// comments and newsletter sign-ups are public; other writes need a bearer
// token issued by /auth/login.
type MockBackend struct {
	router *mux.Router

	mu          sync.Mutex
	collections map[string][]document
	tokens      map[string]string // token -> user id
	failNext    []int
	requests    map[string]int
}

func NewMockBackend() *MockBackend {
	b := &MockBackend{
		collections: make(map[string][]document),
		tokens:      make(map[string]string),
		requests:    make(map[string]int),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(b.countAndFail)
	api.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	api.HandleFunc("/poll/{id}/vote/{option}", b.vote).Methods(http.MethodPost)
	api.HandleFunc("/news/{id}/comments", b.listComments).Methods(http.MethodGet)
	api.HandleFunc("/news/{id}/comments", b.addComment).Methods(http.MethodPost)
	api.HandleFunc("/{resource}", b.list).Methods(http.MethodGet)
	api.HandleFunc("/{resource}", b.create).Methods(http.MethodPost)
	api.HandleFunc("/{resource}/{id}", b.get).Methods(http.MethodGet)
	api.HandleFunc("/{resource}/{id}", b.authorized(b.update)).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/{resource}/{id}", b.authorized(b.remove)).Methods(http.MethodDelete)
	b.router = r
	return b
}

func (b *MockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// Seed appends docs to resource. Documents without an id get one.
func (b *MockBackend) Seed(resource string, docs ...document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range docs {
		if _, ok := d["id"]; !ok {
			d["id"] = uuid.NewString()
		}
		b.collections[resource] = append(b.collections[resource], d)
	}
}

// FailNext makes the next len(statuses) requests fail with those statuses.
func (b *MockBackend) FailNext(statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = append(b.failNext, statuses...)
}

// Requests returns how many requests matched "METHOD /path".
func (b *MockBackend) Requests(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[method+" "+path]
}

func (b *MockBackend) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api/v1")]++
		status := 0
		if len(b.failNext) > 0 {
			status = b.failNext[0]
			b.failNext = b.failNext[1:]
		}
		b.mu.Unlock()

		if status != 0 {
			writeMessage(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *MockBackend) authenticated(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tokens[token]
	return token != "" && ok
}

func (b *MockBackend) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.authenticated(r) {
			writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

func (b *MockBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.collections["users"] {
		if u["email"] == creds.Email && u["password"] == creds.Password {
			token := "tok-" + uuid.NewString()
			b.tokens[token] = fmt.Sprint(u["id"])
			writeJSON(w, http.StatusOK, document{"token": token, "user": public(u)})
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "invalid email or password")
}

func (b *MockBackend) list(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]document, 0, len(b.collections[resource]))
	for _, d := range b.collections[resource] {
		out = append(out, public(d))
	}
	writeJSON(w, http.StatusOK, document{"data": out})
}

func (b *MockBackend) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	d, _ := b.findLocked(vars["resource"], vars["id"])
	if d == nil {
		writeMessage(w, http.StatusNotFound, vars["resource"]+" not found")
		return
	}
	writeJSON(w, http.StatusOK, document{"data": public(d)})
}

func (b *MockBackend) create(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	if !publicCreate[resource] && !b.authenticated(r) {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	doc, err := decodeDocument(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, field := range required[resource] {
		if v, _ := doc[field].(string); strings.TrimSpace(v) == "" {
			writeMessage(w, http.StatusUnprocessableEntity, field+" is required")
			return
		}
	}

	doc["id"] = uuid.NewString()
	doc["created_at"] = time.Now().UTC()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[resource] = append(b.collections[resource], doc)

	slog.Debug("Mock backend created document", "resource", resource, "id", doc["id"])
	writeJSON(w, http.StatusCreated, public(doc))
}

func (b *MockBackend) update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patch, err := decodeDocument(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	d, _ := b.findLocked(vars["resource"], vars["id"])
	if d == nil {
		writeMessage(w, http.StatusNotFound, vars["resource"]+" not found")
		return
	}
	for k, v := range patch {
		if k != "id" {
			d[k] = v
		}
	}
	d["updated_at"] = time.Now().UTC()
	writeJSON(w, http.StatusOK, public(d))
}

func (b *MockBackend) remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	_, i := b.findLocked(vars["resource"], vars["id"])
	if i < 0 {
		writeMessage(w, http.StatusNotFound, vars["resource"]+" not found")
		return
	}
	docs := b.collections[vars["resource"]]
	b.collections[vars["resource"]] = append(docs[:i], docs[i+1:]...)
	writeJSON(w, http.StatusOK, document{"id": vars["id"], "message": vars["resource"] + " deleted"})
}

func (b *MockBackend) vote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	poll, _ := b.findLocked("poll", vars["id"])
	if poll == nil {
		writeMessage(w, http.StatusNotFound, "poll not found")
		return
	}
	options, _ := poll["options"].([]any)
	for _, o := range options {
		opt, ok := o.(document)
		if !ok || fmt.Sprint(opt["id"]) != vars["option"] {
			continue
		}
		opt["votes"] = count(opt["votes"]) + 1
		writeJSON(w, http.StatusOK, public(poll))
		return
	}
	writeMessage(w, http.StatusNotFound, "option not found")
}

func (b *MockBackend) listComments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []document{}
	for _, c := range b.collections["comment"] {
		if fmt.Sprint(c["article_id"]) == id {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, document{"data": out})
}

func (b *MockBackend) addComment(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	doc["id"] = uuid.NewString()
	doc["article_id"] = mux.Vars(r)["id"]
	doc["created_at"] = time.Now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections["comment"] = append(b.collections["comment"], doc)
	writeJSON(w, http.StatusCreated, doc)
}

func (b *MockBackend) findLocked(resource, id string) (document, int) {
	for i, d := range b.collections[resource] {
		if fmt.Sprint(d["id"]) == id {
			return d, i
		}
	}
	return nil, -1
}

// decodeDocument reads a JSON or multipart body. Uploaded files are
// replaced by a "<field>_url" entry.
func decodeDocument(r *http.Request) (document, error) {
	doc := document{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, fmt.Errorf("invalid multipart body: %w", err)
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				doc[k] = v[0]
			}
		}
		for k, files := range r.MultipartForm.File {
			if len(files) > 0 {
				doc[k+"_url"] = "/uploads/" + files[0].Filename
			}
		}
		return doc, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return doc, nil
}

func count(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// public strips secrets from a stored document.
func public(d document) document {
	if _, ok := d["password"]; !ok {
		return d
	}
	out := make(document, len(d))
	for k, v := range d {
		if k != "password" {
			out[k] = v
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, document{"message": msg})
}
