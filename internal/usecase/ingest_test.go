package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/config"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
)

func candidate(title string) domain.Candidate {
	published := time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC)
	return domain.Candidate{
		Title:       title,
		Link:        "https://example.org/" + domain.NormalizeTitle(title),
		Summary:     "summary of " + title,
		PublishedAt: &published,
		Source:      "wire",
	}
}

func newTestOrchestrator(source *fakeFeedSource, store *memStore, textGen *fakeTextGen) *Orchestrator {
	enricher := NewEnricher(EnricherDeps{
		Text:       textGen,
		Images:     &fakeImageGen{},
		ImageStore: newFakeImageStore(),
	})
	return NewOrchestrator(OrchestratorDeps{
		Source:      source,
		Store:       store,
		Enricher:    enricher,
		Text:        textGen,
		Concurrency: 2,
	})
}

func TestRunBatchAcceptsAndDeduplicates(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	// One article already persisted; its title collides with a feed item.
	if _, err := store.InsertArticle(context.Background(), &domain.Article{OriginalTitle: "Old Crisis"}); err != nil {
		t.Fatalf("seed article: %v", err)
	}

	source := &fakeFeedSource{byURL: map[string][]domain.Candidate{
		"http://feed": {
			candidate("Fresh Story One"),
			candidate("old  crisis"), // normalized collision with the store
			candidate("Fresh Story Two"),
		},
	}}

	orch := newTestOrchestrator(source, store, newFakeTextGen())
	summary, err := orch.RunBatch(context.Background(), []config.FeedConfig{{Name: "wire", URL: "http://feed", Limit: 10}})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}

	if summary.Accepted != 2 || summary.Duplicates != 1 || summary.Failures != 0 {
		t.Fatalf("summary = %+v, want accepted=2 duplicates=1 failures=0", summary)
	}
	if store.count() != 3 { // seed + 2 new
		t.Fatalf("expected 3 stored articles, got %d", store.count())
	}
}

func TestRunBatchIntraBatchDuplicate(t *testing.T) {
	t.Parallel()

	source := &fakeFeedSource{byURL: map[string][]domain.Candidate{
		"http://feed": {
			candidate("Same Headline"),
			candidate("SAME   headline"),
		},
	}}

	store := newMemStore()
	orch := newTestOrchestrator(source, store, newFakeTextGen())
	summary, err := orch.RunBatch(context.Background(), []config.FeedConfig{{Name: "wire", URL: "http://feed", Limit: 10}})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}

	if summary.Accepted != 1 || summary.Duplicates != 1 {
		t.Fatalf("summary = %+v, want accepted=1 duplicates=1", summary)
	}
	if store.count() != 1 {
		t.Fatalf("expected 1 stored article, got %d", store.count())
	}
}

func TestRunBatchIdempotentSecondRun(t *testing.T) {
	t.Parallel()

	source := &fakeFeedSource{byURL: map[string][]domain.Candidate{
		"http://feed": {candidate("Story A"), candidate("Story B")},
	}}
	feeds := []config.FeedConfig{{Name: "wire", URL: "http://feed", Limit: 10}}

	store := newMemStore()
	orch := newTestOrchestrator(source, store, newFakeTextGen())

	first, err := orch.RunBatch(context.Background(), feeds)
	if err != nil {
		t.Fatalf("first RunBatch error: %v", err)
	}
	if first.Accepted != 2 {
		t.Fatalf("first run accepted = %d, want 2", first.Accepted)
	}

	second, err := orch.RunBatch(context.Background(), feeds)
	if err != nil {
		t.Fatalf("second RunBatch error: %v", err)
	}
	if second.Accepted != 0 || second.Duplicates != 2 {
		t.Fatalf("second run = %+v, want accepted=0 duplicates=2", second)
	}
}

func TestRunBatchTextBackendDown(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	textGen.pingErr = domain.ErrBackendUnavailable

	source := &fakeFeedSource{byURL: map[string][]domain.Candidate{
		"http://feed": {candidate("Story A")},
	}}
	store := newMemStore()
	orch := newTestOrchestrator(source, store, textGen)

	_, err := orch.RunBatch(context.Background(), []config.FeedConfig{{Name: "wire", URL: "http://feed", Limit: 10}})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("no articles should be created, got %d", store.count())
	}
}

func TestRunBatchToleratesOneBadFeed(t *testing.T) {
	t.Parallel()

	source := &fakeFeedSource{
		byURL: map[string][]domain.Candidate{
			"http://good": {candidate("Good Story")},
		},
		errs: map[string]error{
			"http://bad": domain.ErrFeedUnavailable,
		},
	}
	store := newMemStore()
	orch := newTestOrchestrator(source, store, newFakeTextGen())

	summary, err := orch.RunBatch(context.Background(), []config.FeedConfig{
		{Name: "good", URL: "http://good", Limit: 5},
		{Name: "bad", URL: "http://bad", Limit: 5},
	})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if summary.Accepted != 1 {
		t.Fatalf("accepted = %d, want 1", summary.Accepted)
	}
	if _, ok := summary.PerFeedErrors["bad"]; !ok {
		t.Fatalf("expected per-feed error for bad feed, got %v", summary.PerFeedErrors)
	}
}

func TestRunBatchAllFeedsUnreachable(t *testing.T) {
	t.Parallel()

	source := &fakeFeedSource{errs: map[string]error{
		"http://one": domain.ErrFeedUnavailable,
		"http://two": domain.ErrFeedUnavailable,
	}}
	orch := newTestOrchestrator(source, newMemStore(), newFakeTextGen())

	_, err := orch.RunBatch(context.Background(), []config.FeedConfig{
		{Name: "one", URL: "http://one", Limit: 5},
		{Name: "two", URL: "http://two", Limit: 5},
	})
	if !errors.Is(err, domain.ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable for all-feeds-down, got %v", err)
	}
}

func TestRunBatchEnrichmentFailureIsIsolated(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	// Malformed tagging response fails every candidate's enrichment.
	textGen.tagJSON = "not json at all"

	source := &fakeFeedSource{byURL: map[string][]domain.Candidate{
		"http://feed": {candidate("Story A"), candidate("Story B")},
	}}
	store := newMemStore()
	orch := newTestOrchestrator(source, store, textGen)

	summary, err := orch.RunBatch(context.Background(), []config.FeedConfig{{Name: "wire", URL: "http://feed", Limit: 10}})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if summary.Failures != 2 || summary.Accepted != 0 {
		t.Fatalf("summary = %+v, want failures=2 accepted=0", summary)
	}
	if store.count() != 0 {
		t.Fatalf("no partial articles may be persisted, got %d", store.count())
	}
}

func TestRunBatchStoreUnavailableIsFatal(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.hasErr = domain.ErrStoreUnavailable

	source := &fakeFeedSource{byURL: map[string][]domain.Candidate{
		"http://feed": {candidate("Story A")},
	}}
	orch := newTestOrchestrator(source, store, newFakeTextGen())

	_, err := orch.RunBatch(context.Background(), []config.FeedConfig{{Name: "wire", URL: "http://feed", Limit: 10}})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
