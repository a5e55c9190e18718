package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NewsPortal/internal/app"
	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
	"github.com/gorilla/mux"
)

const (
	maxBodyBytes    = 1 << 20
	maxUploadMemory = 32 << 20
	defaultFeatured = 5
)

var (
	editors   = []domain.Role{domain.RoleAdmin, domain.RoleEditor}
	reporters = []domain.Role{domain.RoleAdmin, domain.RoleEditor, domain.RoleReporter}
	admins    = []domain.Role{domain.RoleAdmin}
)

// Handler serves the portal API over the content services.
type Handler struct {
	portal *app.Portal
	auth   *app.AuthService
}

func NewHandler(portal *app.Portal, auth *app.AuthService) *Handler {
	return &Handler{portal: portal, auth: auth}
}

// access describes who may use the routes of one collection.
type access struct {
	public   bool
	create   []domain.Role
	edit     []domain.Role
	read     []domain.Role // dashboard reads of non-public collections
	onDelete func(ctx context.Context, id string)
}

func registerCollection[T domain.Searchable](api, dash *mux.Router, res *app.Resource[T], a access) {
	base := "/" + res.Name()
	if a.public {
		api.HandleFunc(base, listResource(res)).Methods(http.MethodGet)
		api.HandleFunc(base+"/{id}", getResource(res)).Methods(http.MethodGet)
	}
	if len(a.read) > 0 {
		dash.HandleFunc(base, allow(listResource(res), a.read...)).Methods(http.MethodGet)
		dash.HandleFunc(base+"/{id}", allow(getResource(res), a.read...)).Methods(http.MethodGet)
	}
	if len(a.create) > 0 {
		dash.HandleFunc(base, allow(createResource(res), a.create...)).Methods(http.MethodPost)
	}
	if len(a.edit) > 0 {
		dash.HandleFunc(base+"/{id}", allow(updateResource(res), a.edit...)).Methods(http.MethodPatch, http.MethodPut)
		dash.HandleFunc(base+"/{id}", allow(deleteResource(res, a.onDelete), a.edit...)).Methods(http.MethodDelete)
	}
}

func (h *Handler) routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	dash := r.PathPrefix("/dashboard").Subrouter()
	dash.Use(h.requireSession)

	p := h.portal

	// Registered ahead of /news/{id}.
	api.HandleFunc("/news/featured", h.featured).Methods(http.MethodGet)
	api.HandleFunc("/news/category/{category}", h.newsByCategory).Methods(http.MethodGet)
	api.HandleFunc("/news/{id}/comments", h.listComments).Methods(http.MethodGet)
	api.HandleFunc("/news/{id}/comments", h.addComment).Methods(http.MethodPost)
	api.HandleFunc("/poll/{id}/vote/{option}", h.vote).Methods(http.MethodPost)
	api.HandleFunc("/news-letter", h.subscribe).Methods(http.MethodPost)
	dash.HandleFunc("/news/{id}/comments/{comment}", allow(h.deleteComment, editors...)).Methods(http.MethodDelete)

	registerCollection(api, dash, p.News.Resource, access{public: true, create: reporters, edit: editors})
	registerCollection(api, dash, p.Categories, access{public: true, create: editors, edit: editors})
	registerCollection(api, dash, p.Polls.Resource, access{public: true, create: editors, edit: editors})
	registerCollection(api, dash, p.Quizzes, access{public: true, create: editors, edit: editors})
	registerCollection(api, dash, p.Videos, access{public: true, create: editors, edit: editors})
	registerCollection(api, dash, p.EPapers, access{public: true, create: editors, edit: editors})
	registerCollection(api, dash, p.Jobs, access{public: true, create: editors, edit: editors})
	registerCollection(api, dash, p.Ads, access{public: true, create: admins, edit: admins})
	registerCollection(api, dash, p.Users, access{read: admins, create: admins, edit: admins, onDelete: h.revokeUser})
	registerCollection(api, dash, p.Newsletter.Resource, access{read: admins, edit: admins})

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", h.login).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	auth.Handle("/me", h.requireSession(http.HandlerFunc(h.me))).Methods(http.MethodGet)
}

func listParams(r *http.Request) app.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	p := app.ListParams{
		Page:    page,
		PerPage: perPage,
		Query:   q.Get("q"),
	}
	if q.Has("lang") {
		p.Lang = domain.ParseLang(q.Get("lang"))
	}
	return p
}

func listResource[T domain.Searchable](res *app.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := res.List(r.Context(), listParams(r))
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func getResource[T domain.Searchable](res *app.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := res.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func createResource[T domain.Searchable](res *app.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item T
		var err error
		if isMultipart(r) {
			form, closeFiles, ferr := formFromRequest(r)
			if ferr != nil {
				writeError(w, http.StatusBadRequest, ferr.Error())
				return
			}
			defer closeFiles()
			item, err = res.CreateMultipart(r.Context(), form)
		} else {
			body, berr := readJSON(r)
			if berr != nil {
				writeError(w, http.StatusBadRequest, berr.Error())
				return
			}
			item, err = res.Create(r.Context(), body)
		}
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func updateResource[T domain.Searchable](res *app.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var item T
		var err error
		if isMultipart(r) {
			form, closeFiles, ferr := formFromRequest(r)
			if ferr != nil {
				writeError(w, http.StatusBadRequest, ferr.Error())
				return
			}
			defer closeFiles()
			item, err = res.UpdateMultipart(r.Context(), id, form)
		} else {
			body, berr := readJSON(r)
			if berr != nil {
				writeError(w, http.StatusBadRequest, berr.Error())
				return
			}
			item, err = res.Update(r.Context(), id, body)
		}
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func deleteResource[T domain.Searchable](res *app.Resource[T], onDelete func(context.Context, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		body, err := res.Delete(r.Context(), id)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		if onDelete != nil {
			onDelete(r.Context(), id)
		}
		writeDeleted(w, body)
	}
}

// writeDeleted relays the backend's delete response, or 204 when it had none.
func writeDeleted(w http.ResponseWriter, body json.RawMessage) {
	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) featured(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultFeatured
	}
	items, err := h.portal.News.Featured(r.Context(), limit)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) newsByCategory(w http.ResponseWriter, r *http.Request) {
	page, err := h.portal.News.ByCategory(r.Context(), mux.Vars(r)["category"], listParams(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	page, err := h.portal.Comments.Comments(r.Context(), mux.Vars(r)["id"], listParams(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	var c domain.Comment
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.portal.Comments.AddComment(r.Context(), mux.Vars(r)["id"], c)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, err := h.portal.Comments.DeleteComment(r.Context(), vars["id"], vars["comment"])
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeDeleted(w, body)
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	poll, err := h.portal.Polls.Vote(r.Context(), vars["id"], vars["option"])
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sub, err := h.portal.Newsletter.Subscribe(r.Context(), body.Email)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) revokeUser(ctx context.Context, id string) {
	if err := h.auth.RevokeUser(ctx, id); err != nil {
		slog.Warn("Failed to revoke sessions of deleted user", "user_id", id, "error", err)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds app.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionID(r)); err != nil {
		writeFailure(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sess)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// readJSON returns the body unchanged for forwarding, after checking it is
// a JSON object.
func readJSON(r *http.Request) (json.RawMessage, error) {
	var body json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("invalid JSON body: expected an object")
	}
	return body, nil
}

// formFromRequest copies an incoming multipart form into a backend form.
// The returned function closes the uploaded files.
func formFromRequest(r *http.Request) (*backend.Form, func(), error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	form := backend.NewForm()
	for name, values := range r.MultipartForm.Value {
		for _, v := range values {
			form.Set(name, v)
		}
	}

	var opened []multipart.File
	closeFiles := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}
	for name, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				closeFiles()
				return nil, nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
			}
			opened = append(opened, f)
			form.AddFile(backend.File{
				Field:       name,
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     f,
			})
		}
	}
	return form, closeFiles, nil
}
