package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
)

// fakeTextGen answers per stage, keyed on the system prompt.
type fakeTextGen struct {
	pingErr     error
	completeErr error
	variantText string
	tagJSON     string
	scoreJSON   string

	mu    sync.Mutex
	calls int
}

func newFakeTextGen() *fakeTextGen {
	return &fakeTextGen{
		variantText: "generated story text",
		tagJSON:     `{"topicTags":["politics"],"sentiment":"tense","city":"Praha","lat":50.08,"lon":14.43,"comment":"watch this one"}`,
		scoreJSON:   `{"elite":1,"workingClass":-2,"patriots":3,"syndicate":0,"technocrats":5,"faithful":-1,"resistance":2,"doomers":-4}`,
	}
}

func (f *fakeTextGen) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return nil
}

func (f *fakeTextGen) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.completeErr != nil {
		return "", f.completeErr
	}
	switch system {
	case taggingSystemPrompt:
		return f.tagJSON, nil
	case scoringSystemPrompt:
		return f.scoreJSON, nil
	default:
		return f.variantText, nil
	}
}

// fakeImageGen returns fixed bytes or a configured error.
type fakeImageGen struct {
	err        error
	lastPrompt string
}

func (f *fakeImageGen) Generate(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

// fakeImageStore records saved images in memory.
type fakeImageStore struct {
	saved map[string][]byte
	err   error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: make(map[string][]byte)}
}

func (f *fakeImageStore) SaveImage(name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved[name] = data
	return "images/" + name, nil
}

// memStore is an in-memory ArticleStore enforcing title uniqueness.
type memStore struct {
	mu        sync.Mutex
	articles  []domain.Article
	hasErr    error
	insertErr error
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) InsertArticle(ctx context.Context, article *domain.Article) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.NormalizeTitle(article.OriginalTitle)
	for _, existing := range m.articles {
		if domain.NormalizeTitle(existing.OriginalTitle) == key {
			return 0, fmt.Errorf("%w: %q", domain.ErrDuplicateTitle, article.OriginalTitle)
		}
	}
	m.nextID++
	article.ID = m.nextID
	m.articles = append(m.articles, *article)
	return article.ID, nil
}

func (m *memStore) HasTitle(ctx context.Context, normalizedTitle string) (bool, error) {
	if m.hasErr != nil {
		return false, m.hasErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.articles {
		if domain.NormalizeTitle(existing.OriginalTitle) == normalizedTitle {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListArticles(ctx context.Context) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Article(nil), m.articles...), nil
}

func (m *memStore) DeleteAllArticles(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = nil
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles)
}

// fakeFeedSource maps feed URLs to canned candidates or errors.
type fakeFeedSource struct {
	byURL map[string][]domain.Candidate
	errs  map[string]error
}

func (f *fakeFeedSource) FetchCandidates(ctx context.Context, feedURL string, limit int) ([]domain.Candidate, error) {
	if err, ok := f.errs[feedURL]; ok {
		return nil, err
	}
	items := f.byURL[feedURL]
	if len(items) > limit {
		items = items[:limit]
	}
	return append([]domain.Candidate(nil), items...), nil
}

// memScheduleStore keeps the last saved schedule state.
type memScheduleStore struct {
	mu    sync.Mutex
	state *domain.ScheduleState
	saves int
}

func (m *memScheduleStore) LoadSchedule(ctx context.Context) (*domain.ScheduleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memScheduleStore) SaveSchedule(ctx context.Context, state *domain.ScheduleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.state = &copied
	m.saves++
	return nil
}
