package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/config"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

// OrchestratorDeps wires the driven adapters into the batch orchestrator.
type OrchestratorDeps struct {
	Source   ports.FeedSource
	Store    ports.ArticleStore
	Enricher *Enricher
	Text     ports.TextGenerator
	Notifier ports.Notifier
	Logger   *slog.Logger
	// Concurrency bounds parallel candidate enrichment; persistence stays
	// serialized regardless.
	Concurrency int
}

// Orchestrator runs one ingestion batch: fetch, deduplicate, enrich, persist.
type Orchestrator struct {
	source      ports.FeedSource
	store       ports.ArticleStore
	enricher    *Enricher
	text        ports.TextGenerator
	notifier    ports.Notifier
	logger      *slog.Logger
	concurrency int64
}

// NewOrchestrator constructs the batch façade.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := int64(deps.Concurrency)
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		source:      deps.Source,
		store:       deps.Store,
		enricher:    deps.Enricher,
		text:        deps.Text,
		notifier:    deps.Notifier,
		logger:      logger,
		concurrency: concurrency,
	}
}

// RunBatch executes one full ingestion pass across the configured feeds.
// Per-feed and per-candidate failures are absorbed into the summary; only
// whole-run-blocking conditions (text backend down, store unreachable, every
// feed failing) return an error.
func (o *Orchestrator) RunBatch(ctx context.Context, feeds []config.FeedConfig) (*domain.BatchSummary, error) {
	// Spending generation work without a backend is pointless; probe first.
	if err := o.text.Ping(ctx); err != nil {
		return nil, err
	}

	summary := &domain.BatchSummary{PerFeedErrors: make(map[string]string)}

	candidates := o.collectCandidates(ctx, feeds, summary)
	if len(feeds) > 0 && len(summary.PerFeedErrors) == len(feeds) {
		return nil, fmt.Errorf("%w: all %d feeds unreachable", domain.ErrFeedUnavailable, len(feeds))
	}

	accepted, err := o.filterDuplicates(ctx, candidates, summary)
	if err != nil {
		return nil, err
	}

	if err := o.enrichAndPersist(ctx, accepted, summary); err != nil {
		return nil, err
	}

	o.logger.Info("batch finished",
		"accepted", summary.Accepted,
		"duplicates", summary.Duplicates,
		"failures", summary.Failures,
		"feed_errors", len(summary.PerFeedErrors))

	o.publishDigest(ctx, summary)
	return summary, nil
}

// collectCandidates fetches every configured feed, tolerating per-feed
// failure, and merges results in feed-then-recency order.
func (o *Orchestrator) collectCandidates(ctx context.Context, feeds []config.FeedConfig, summary *domain.BatchSummary) []domain.Candidate {
	var candidates []domain.Candidate
	for _, feed := range feeds {
		limit := feed.Limit
		if limit <= 0 {
			limit = 10
		}
		items, err := o.source.FetchCandidates(ctx, feed.URL, limit)
		if err != nil {
			o.logger.Warn("feed unavailable", "feed", feed.Name, "url", feed.URL, "error", err)
			summary.PerFeedErrors[feed.Name] = err.Error()
			continue
		}
		for i := range items {
			if items[i].Source == "" {
				items[i].Source = feed.Name
			}
		}
		candidates = append(candidates, items...)
	}
	return candidates
}

// filterDuplicates applies the two-level duplicate check up front; titles are
// known before any generation work is spent.
func (o *Orchestrator) filterDuplicates(ctx context.Context, candidates []domain.Candidate, summary *domain.BatchSummary) ([]domain.Candidate, error) {
	dedup := NewDeduplicator(o.store)
	accepted := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		dup, err := dedup.IsDuplicate(ctx, c)
		if err != nil {
			return nil, err
		}
		if dup {
			o.logger.Debug("duplicate skipped", "title", c.Title)
			summary.Duplicates++
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted, nil
}

// enrichAndPersist runs enrichment with bounded concurrency and serializes
// article writes. Cancellation is honored between candidates, never mid-write.
func (o *Orchestrator) enrichAndPersist(ctx context.Context, candidates []domain.Candidate, summary *domain.BatchSummary) error {
	sem := semaphore.NewWeighted(o.concurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)

	for _, c := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		mu.Lock()
		stop := fatalErr != nil
		mu.Unlock()
		if stop {
			sem.Release(1)
			break
		}

		wg.Add(1)
		go func(c domain.Candidate) {
			defer wg.Done()
			defer sem.Release(1)

			article, err := o.enricher.Enrich(ctx, c)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				o.logger.Warn("enrichment failed", "title", c.Title, "error", err)
				summary.Failures++
				return
			}

			if _, err := o.store.InsertArticle(ctx, article); err != nil {
				switch {
				case errors.Is(err, domain.ErrDuplicateTitle):
					summary.Duplicates++
				case errors.Is(err, domain.ErrStoreUnavailable):
					if fatalErr == nil {
						fatalErr = err
					}
				default:
					o.logger.Warn("persist failed", "title", c.Title, "error", err)
					summary.Failures++
				}
				return
			}
			summary.Accepted++
		}(c)
	}

	wg.Wait()
	return fatalErr
}

func (o *Orchestrator) publishDigest(ctx context.Context, summary *domain.BatchSummary) {
	if o.notifier == nil {
		return
	}
	digest := fmt.Sprintf("newsdesk batch: %d accepted, %d duplicates, %d failures",
		summary.Accepted, summary.Duplicates, summary.Failures)
	if err := o.notifier.PublishDigest(ctx, digest); err != nil {
		o.logger.Warn("digest publish failed", "error", err)
	}
}
