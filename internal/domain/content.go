package domain

import "time"

// Poll is a reader poll.
type Poll struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	QuestionBn string       `json:"question_bn,omitempty"`
	Options    []PollOption `json:"options"`
	Active     bool         `json:"active"`
	EndsAt     time.Time    `json:"ends_at,omitempty"`
}

// PollOption is one choice of a Poll.
type PollOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

func (p Poll) SearchText() string { return join(p.Question, p.QuestionBn) }

func (p Poll) TextIn(lang Lang) string { return pick(lang, p.Question, p.QuestionBn) }

// TotalVotes sums the votes of all options.
func (p Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// Quiz is a multiple-choice quiz.
type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	TitleBn   string         `json:"title_bn,omitempty"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizQuestion is one question of a Quiz.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
}

func (q Quiz) SearchText() string { return join(q.Title, q.TitleBn) }

func (q Quiz) TextIn(lang Lang) string { return pick(lang, q.Title, q.TitleBn) }

// Job is a job listing.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline,omitempty"`
}

func (j Job) SearchText() string { return join(j.Title, j.Company, j.Location) }

// Video is a multimedia item.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	TitleBn      string    `json:"title_bn,omitempty"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
}

func (v Video) SearchText() string { return join(v.Title, v.TitleBn) }

func (v Video) TextIn(lang Lang) string { return pick(lang, v.Title, v.TitleBn) }

// EPaper is one published edition of the printed paper.
type EPaper struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Edition  string    `json:"edition,omitempty"`
	Date     time.Time `json:"date"`
	PDFURL   string    `json:"pdf_url,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
}

func (e EPaper) SearchText() string { return join(e.Title, e.Edition, e.Date.Format("2006-01-02")) }

// Subscriber is a newsletter subscription.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Subscriber) SearchText() string { return s.Email }

// Advertisement is an ad slot booking.
type Advertisement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position string `json:"position"` // e.g. "header", "sidebar"
	ImageURL string `json:"image_url,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
	Active   bool   `json:"active"`
}

func (a Advertisement) SearchText() string { return join(a.Title, a.Position) }
