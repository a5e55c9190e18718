package domain

import (
	"context"

	"github.com/NewsPortal/internal/infra/backend"
	"github.com/NewsPortal/internal/store"
)

// Resource names. They are both the first element of cache keys and the
// backend collection path.
const (
	ResourceNews          = "news"
	ResourceCategories    = "categories"
	ResourcePoll          = "poll"
	ResourceQuiz          = "quiz"
	ResourceJobs          = "jobs"
	ResourceUsers         = "users"
	ResourceVideo         = "video"
	ResourceEPaper        = "epaper"
	ResourceNewsletter    = "news-letter"
	ResourceComment       = "comment"
	ResourceAdvertisement = "advertisement"
)

// CollectionKey is the key of a whole collection, e.g. ["news"].
func CollectionKey(resource string) store.Key {
	return store.Of(resource)
}

// ItemKey is the key of one item, e.g. ["news", id]. It is store.Disabled
// while id is unknown.
func ItemKey(resource, id string) store.Key {
	return store.Of(resource, id)
}

// CommentsKey is the key of the comments of one article, ["comment", id].
func CommentsKey(articleID string) store.Key {
	return store.Of(ResourceComment, articleID)
}

// Searchable is implemented by every listed type.
type Searchable interface {
	SearchText() string
}

// Localized is implemented by types whose text comes in both languages.
// TextIn returns the searchable text in lang, falling back to the other
// language for fields only given in one.
type Localized interface {
	TextIn(lang Lang) string
}

// Transport is the REST backend as used by the content services.
type Transport interface {
	Get(ctx context.Context, endpoint string, out any) error
	SendJSON(ctx context.Context, method, endpoint string, body, out any) error
	SendMultipart(ctx context.Context, method, endpoint string, form *backend.Form, out any) error
	Delete(ctx context.Context, endpoint string, out any) error
}

var _ Transport = (*backend.Client)(nil)

// InvalidationEvent tells other replicas which keys a write made stale.
type InvalidationEvent struct {
	Origin string     `json:"origin"`
	Keys   [][]string `json:"keys"`
}

// InvalidationPublisher ships invalidation events to other replicas.
type InvalidationPublisher interface {
	Publish(ctx context.Context, event *InvalidationEvent) error
	Close() error
}
