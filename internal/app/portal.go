package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/store"
)

// NewsService adds category views to the article collection. They are
// served from the cached collection and share its key.
type NewsService struct {
	*Resource[domain.Article]
}

func NewNewsService(s *store.Store, t domain.Transport, perPage int) *NewsService {
	return &NewsService{Resource: NewResource[domain.Article](domain.ResourceNews, s, t, perPage)}
}

// ByCategory lists the articles of categoryID.
func (n *NewsService) ByCategory(ctx context.Context, categoryID string, p ListParams) (*ListPage[domain.Article], error) {
	res := n.All(ctx)
	if res.HasData {
		filtered := make([]domain.Article, 0, len(res.Data))
		for _, a := range res.Data {
			if a.CategoryID == categoryID || a.Category == categoryID {
				filtered = append(filtered, a)
			}
		}
		res.Data = filtered
	}
	return listPage(res, p, n.perPage)
}

// Featured returns up to limit featured articles, newest first.
func (n *NewsService) Featured(ctx context.Context, limit int) ([]domain.Article, error) {
	res := n.All(ctx)
	if res.Err != nil && !res.HasData {
		return nil, res.Err
	}
	out := make([]domain.Article, 0, limit)
	for _, a := range res.Data {
		if a.Featured {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Portal groups the content services over one store and backend.
type Portal struct {
	News       *NewsService
	Categories *Resource[domain.Category]
	Polls      *PollService
	Quizzes    *Resource[domain.Quiz]
	Jobs       *Resource[domain.Job]
	Users      *Resource[domain.User]
	Videos     *Resource[domain.Video]
	EPapers    *Resource[domain.EPaper]
	Newsletter *NewsletterService
	Comments   *CommentService
	Ads        *Resource[domain.Advertisement]
}

func NewPortal(s *store.Store, t domain.Transport, perPage int) *Portal {
	return &Portal{
		News:       NewNewsService(s, t, perPage),
		Categories: NewResource[domain.Category](domain.ResourceCategories, s, t, perPage),
		Polls:      NewPollService(s, t, perPage),
		Quizzes:    NewResource[domain.Quiz](domain.ResourceQuiz, s, t, perPage),
		Jobs:       NewResource[domain.Job](domain.ResourceJobs, s, t, perPage),
		Users:      NewResource[domain.User](domain.ResourceUsers, s, t, perPage),
		Videos:     NewResource[domain.Video](domain.ResourceVideo, s, t, perPage),
		EPapers:    NewResource[domain.EPaper](domain.ResourceEPaper, s, t, perPage),
		Newsletter: NewNewsletterService(s, t, perPage),
		Comments:   NewCommentService(s, t, perPage),
		Ads:        NewResource[domain.Advertisement](domain.ResourceAdvertisement, s, t, perPage),
	}
}

// ErrNotWarmable is returned for collections that need a session to read.
var ErrNotWarmable = errors.New("collection cannot be warmed")

// Warmable returns the publicly readable collection named name.
func (p *Portal) Warmable(name string) (Warmable, error) {
	var w Warmable
	switch name {
	case domain.ResourceNews:
		w = p.News
	case domain.ResourceCategories:
		w = p.Categories
	case domain.ResourcePoll:
		w = p.Polls
	case domain.ResourceQuiz:
		w = p.Quizzes
	case domain.ResourceJobs:
		w = p.Jobs
	case domain.ResourceVideo:
		w = p.Videos
	case domain.ResourceEPaper:
		w = p.EPapers
	case domain.ResourceUsers, domain.ResourceNewsletter:
		// Background refetches carry no session token.
		return nil, fmt.Errorf("%w: %q is only readable from the dashboard", ErrNotWarmable, name)
	case domain.ResourceAdvertisement:
		w = p.Ads
	default:
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return w, nil
}
