package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
	"github.com/NewsPortal/internal/store"
	"github.com/NewsPortal/pkg/pagination"
)

// ErrMissingID is returned for item operations without an id.
var ErrMissingID = errors.New("missing id")

// ListParams are the inputs of a list view.
type ListParams struct {
	Page    int
	PerPage int
	Query   string
	Lang    domain.Lang
}

// ListPage is the view model of one list page.
type ListPage[T any] struct {
	pagination.Page[T]
	Window    pagination.Window `json:"window"`
	Query     string            `json:"query,omitempty"`
	Lang      domain.Lang       `json:"lang,omitempty"`
	PageReset bool              `json:"page_reset,omitempty"`
	Stale     bool              `json:"stale,omitempty"`
	Warning   string            `json:"warning,omitempty"`
}

// Resource reads and writes one backend collection through the store.
// Every write invalidates the collection key, which by prefix also covers
// the item keys of the collection.
type Resource[T domain.Searchable] struct {
	name      string
	store     *store.Store
	transport domain.Transport
	perPage   int
}

// NewResource returns the service of the collection name.
func NewResource[T domain.Searchable](name string, s *store.Store, t domain.Transport, perPage int) *Resource[T] {
	if perPage < 1 {
		perPage = 10
	}
	return &Resource[T]{name: name, store: s, transport: t, perPage: perPage}
}

// Name is the collection name.
func (r *Resource[T]) Name() string {
	return r.name
}

// Key is the collection key.
func (r *Resource[T]) Key() store.Key {
	return domain.CollectionKey(r.name)
}

func (r *Resource[T]) fetchAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.transport.Get(ctx, backend.Collection(r.name), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// All reads the whole collection.
func (r *Resource[T]) All(ctx context.Context) store.Result[[]T] {
	return store.Query(ctx, r.store, r.Key(), r.fetchAll)
}

// Observe registers a live reader of the collection.
func (r *Resource[T]) Observe() *store.Observer[[]T] {
	return store.Observe(r.store, r.Key(), r.fetchAll)
}

// List filters the collection by p.Query and returns the requested page.
func (r *Resource[T]) List(ctx context.Context, p ListParams) (*ListPage[T], error) {
	return listPage(r.All(ctx), p, r.perPage)
}

// Get reads one item.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	key := domain.ItemKey(r.name, id)
	if !key.Enabled() {
		return zero, ErrMissingID
	}
	res := store.Query(ctx, r.store, key, func(ctx context.Context) (T, error) {
		var item T
		err := r.transport.Get(ctx, backend.Item(r.name, id), &item)
		return item, err
	})
	if res.Err != nil && !res.HasData {
		return zero, res.Err
	}
	return res.Data, nil
}

// Create posts body as JSON.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	return r.sendJSON(ctx, http.MethodPost, backend.Collection(r.name), body)
}

// CreateMultipart posts form, used when the item carries a file.
func (r *Resource[T]) CreateMultipart(ctx context.Context, form *backend.Form) (T, error) {
	return r.sendMultipart(ctx, http.MethodPost, backend.Collection(r.name), form)
}

// Update patches item id with body as JSON.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (T, error) {
	if id == "" {
		var zero T
		return zero, ErrMissingID
	}
	return r.sendJSON(ctx, http.MethodPatch, backend.Item(r.name, id), body)
}

// UpdateMultipart patches item id with form.
func (r *Resource[T]) UpdateMultipart(ctx context.Context, id string, form *backend.Form) (T, error) {
	if id == "" {
		var zero T
		return zero, ErrMissingID
	}
	return r.sendMultipart(ctx, http.MethodPatch, backend.Item(r.name, id), form)
}

// Delete removes item id and returns the backend's response body, which is
// empty when the backend answers 204.
func (r *Resource[T]) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return store.Mutate(ctx, r.store, func(ctx context.Context) (json.RawMessage, error) {
		var out json.RawMessage
		err := r.transport.Delete(ctx, backend.Item(r.name, id), &out)
		return out, err
	}, r.Key())
}

func (r *Resource[T]) sendJSON(ctx context.Context, method, endpoint string, body any) (T, error) {
	return store.Mutate(ctx, r.store, func(ctx context.Context) (T, error) {
		var out T
		err := r.transport.SendJSON(ctx, method, endpoint, body, &out)
		return out, err
	}, r.Key())
}

func (r *Resource[T]) sendMultipart(ctx context.Context, method, endpoint string, form *backend.Form) (T, error) {
	if form == nil {
		var zero T
		return zero, fmt.Errorf("%s: empty form", r.name)
	}
	return store.Mutate(ctx, r.store, func(ctx context.Context) (T, error) {
		var out T
		err := r.transport.SendMultipart(ctx, method, endpoint, form, &out)
		return out, err
	}, r.Key())
}

// listPage turns a cached collection read into a list view. A read that
// failed but still holds an earlier value is served with a warning.
func listPage[T domain.Searchable](res store.Result[[]T], p ListParams, defaultPerPage int) (*ListPage[T], error) {
	if res.Err != nil && !res.HasData {
		return nil, res.Err
	}
	if p.PerPage == 0 {
		p.PerPage = defaultPerPage
	}
	page, perPage := pagination.Normalize(p.Page, p.PerPage)

	items := Filter(res.Data, p.Query, p.Lang)
	totalPages := pagination.TotalPages(len(items), perPage)
	reset := pagination.ResetIfOutOfRange(page, totalPages)

	out := &ListPage[T]{
		Page:      pagination.Paginate(items, reset, perPage),
		Window:    pagination.VisiblePageWindow(reset, totalPages),
		Query:     p.Query,
		Lang:      p.Lang,
		PageReset: reset != page,
		Stale:     res.Stale,
	}
	if res.Err != nil {
		out.Stale = true
		out.Warning = res.Err.Error()
	}
	return out, nil
}

// Filter keeps the items whose search text contains query, ignoring case.
// An empty query keeps everything. With lang set, items with per-language
// text are matched against that language only.
func Filter[T domain.Searchable](items []T, query string, lang domain.Lang) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(searchText(it, lang)), q) {
			out = append(out, it)
		}
	}
	return out
}

func searchText[T domain.Searchable](it T, lang domain.Lang) string {
	if lang != "" {
		if l, ok := any(it).(domain.Localized); ok {
			return l.TextIn(lang)
		}
	}
	return it.SearchText()
}
