package domain

import (
	"strings"
	"time"
)

// Lang selects one of the portal's two content languages.
type Lang string

const (
	LangEnglish Lang = "en"
	LangBangla  Lang = "bn"
)

// ParseLang returns LangBangla for "bn", LangEnglish otherwise.
func ParseLang(s string) Lang {
	if strings.EqualFold(strings.TrimSpace(s), string(LangBangla)) {
		return LangBangla
	}
	return LangEnglish
}

// Article is a news item as served by the backend. Text fields come in
// English and Bangla.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TitleBn     string    `json:"title_bn,omitempty"`
	Summary     string    `json:"summary"`
	SummaryBn   string    `json:"summary_bn,omitempty"`
	Body        string    `json:"body"`
	BodyBn      string    `json:"body_bn,omitempty"`
	CategoryID  string    `json:"category_id"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Author      string    `json:"author,omitempty"`
	Status      string    `json:"status,omitempty"` // "draft", "published"
	Featured    bool      `json:"featured,omitempty"`
	Views       int       `json:"views,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchText is matched by list filters.
func (a Article) SearchText() string {
	return join(a.Title, a.TitleBn, a.Summary, a.SummaryBn, a.Category, a.Author, strings.Join(a.Tags, " "))
}

// Headline returns the title in lang, falling back to the other language.
func (a Article) Headline(lang Lang) string {
	return pick(lang, a.Title, a.TitleBn)
}

func (a Article) TextIn(lang Lang) string {
	return join(a.Headline(lang), pick(lang, a.Summary, a.SummaryBn), a.Category, a.Author, strings.Join(a.Tags, " "))
}

// Category is a news section.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameBn string `json:"name_bn,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Order  int    `json:"order,omitempty"`
}

func (c Category) SearchText() string { return join(c.Name, c.NameBn, c.Slug) }

func (c Category) TextIn(lang Lang) string { return join(pick(lang, c.Name, c.NameBn), c.Slug) }

// Comment is a reader comment on an article.
type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Comment) SearchText() string { return join(c.Name, c.Body) }

func join(parts ...string) string {
	return strings.Join(parts, " ")
}

func pick(lang Lang, en, bn string) string {
	if lang == LangBangla && bn != "" {
		return bn
	}
	if en == "" {
		return bn
	}
	return en
}
