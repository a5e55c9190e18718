package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/backend"
	"github.com/NewsPortal/internal/store"
)

var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrEmptyComment  = errors.New("comment body is empty")
	ErrMissingOption = errors.New("missing poll option")
)

// PollService adds voting to the poll collection.
type PollService struct {
	*Resource[domain.Poll]
}

func NewPollService(s *store.Store, t domain.Transport, perPage int) *PollService {
	return &PollService{Resource: NewResource[domain.Poll](domain.ResourcePoll, s, t, perPage)}
}

// Vote records one vote for optionID and returns the updated poll. The
// whole poll collection is invalidated so every tally is refetched.
func (p *PollService) Vote(ctx context.Context, pollID, optionID string) (domain.Poll, error) {
	if pollID == "" {
		return domain.Poll{}, ErrMissingID
	}
	if optionID == "" {
		return domain.Poll{}, ErrMissingOption
	}
	return store.Mutate(ctx, p.store, func(ctx context.Context) (domain.Poll, error) {
		var poll domain.Poll
		err := p.transport.SendJSON(ctx, http.MethodPost, backend.Vote(pollID, optionID), nil, &poll)
		return poll, err
	}, p.Key())
}

// CommentService reads and writes the comments of articles. Comments are
// cached per article under ["comment", articleID].
type CommentService struct {
	store     *store.Store
	transport domain.Transport
	perPage   int
}

func NewCommentService(s *store.Store, t domain.Transport, perPage int) *CommentService {
	if perPage < 1 {
		perPage = 10
	}
	return &CommentService{store: s, transport: t, perPage: perPage}
}

func (c *CommentService) fetcher(articleID string) func(context.Context) ([]domain.Comment, error) {
	return func(ctx context.Context) ([]domain.Comment, error) {
		var out []domain.Comment
		err := c.transport.Get(ctx, backend.Sub(domain.ResourceNews, articleID, "comments"), &out)
		return out, err
	}
}

// Comments lists the comments of articleID. Without an id nothing is
// fetched and the page is empty.
func (c *CommentService) Comments(ctx context.Context, articleID string, p ListParams) (*ListPage[domain.Comment], error) {
	res := store.Query(ctx, c.store, domain.CommentsKey(articleID), c.fetcher(articleID))
	return listPage(res, p, c.perPage)
}

// AddComment posts a comment on articleID.
func (c *CommentService) AddComment(ctx context.Context, articleID string, comment domain.Comment) (domain.Comment, error) {
	if articleID == "" {
		return domain.Comment{}, ErrMissingID
	}
	comment.Body = strings.TrimSpace(comment.Body)
	if comment.Body == "" {
		return domain.Comment{}, ErrEmptyComment
	}
	comment.ArticleID = articleID
	return store.Mutate(ctx, c.store, func(ctx context.Context) (domain.Comment, error) {
		var out domain.Comment
		err := c.transport.SendJSON(ctx, http.MethodPost, backend.Sub(domain.ResourceNews, articleID, "comments"), comment, &out)
		return out, err
	}, domain.CommentsKey(articleID))
}

// DeleteComment removes commentID from articleID and returns the backend's
// response body.
func (c *CommentService) DeleteComment(ctx context.Context, articleID, commentID string) (json.RawMessage, error) {
	if articleID == "" || commentID == "" {
		return nil, ErrMissingID
	}
	return store.Mutate(ctx, c.store, func(ctx context.Context) (json.RawMessage, error) {
		var out json.RawMessage
		err := c.transport.Delete(ctx, backend.Item(domain.ResourceComment, commentID), &out)
		return out, err
	}, domain.CommentsKey(articleID))
}

// NewsletterService manages newsletter subscribers.
type NewsletterService struct {
	*Resource[domain.Subscriber]
}

func NewNewsletterService(s *store.Store, t domain.Transport, perPage int) *NewsletterService {
	return &NewsletterService{Resource: NewResource[domain.Subscriber](domain.ResourceNewsletter, s, t, perPage)}
}

// Subscribe adds email to the newsletter list.
func (n *NewsletterService) Subscribe(ctx context.Context, email string) (domain.Subscriber, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return domain.Subscriber{}, ErrInvalidEmail
	}
	return n.Create(ctx, map[string]string{"email": addr.Address})
}
