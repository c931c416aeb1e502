package ports

import (
	"context"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
)

// FeedSource pulls candidate headlines from one syndication feed.
type FeedSource interface {
	FetchCandidates(ctx context.Context, feedURL string, limit int) ([]domain.Candidate, error)
}

// ArticleStore persists enriched articles and enforces title uniqueness.
type ArticleStore interface {
	// InsertArticle returns domain.ErrDuplicateTitle when the normalized
	// original title already exists.
	InsertArticle(ctx context.Context, article *domain.Article) (int64, error)
	HasTitle(ctx context.Context, normalizedTitle string) (bool, error)
	ListArticles(ctx context.Context) ([]domain.Article, error)
	DeleteAllArticles(ctx context.Context) error
}

// ScheduleStore persists the scheduler's run-history state, decoupled from
// article persistence.
type ScheduleStore interface {
	LoadSchedule(ctx context.Context) (*domain.ScheduleState, error)
	SaveSchedule(ctx context.Context, state *domain.ScheduleState) error
}

// TextGenerator is the narrow capability surface of the text backend.
type TextGenerator interface {
	Ping(ctx context.Context) error
	Complete(ctx context.Context, system, user string) (string, error)
}

// ImageGenerator produces raw image bytes for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, width, height int) ([]byte, error)
}

// ImageStore persists generated illustrations and returns a stable reference.
type ImageStore interface {
	SaveImage(name string, data []byte) (string, error)
}

// Notifier streams batch digests to an outside channel (e.g. Telegram).
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
