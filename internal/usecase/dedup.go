package usecase

import (
	"context"
	"sync"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

// Deduplicator decides whether a candidate was already ingested. The check is
// two-level: titles accepted earlier in the same batch, then the persisted
// store. Articles are written incrementally within a batch, so a single
// pre-batch snapshot would admit intra-batch duplicates.
//
// One Deduplicator serves exactly one batch; create a fresh one per run.
type Deduplicator struct {
	store ports.ArticleStore

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator builds a per-batch deduplicator over the persisted store.
func NewDeduplicator(store ports.ArticleStore) *Deduplicator {
	return &Deduplicator{store: store, seen: make(map[string]struct{})}
}

// IsDuplicate reports whether the candidate's normalized title was already
// accepted in this batch or exists in the store. A non-duplicate title is
// marked as seen, so a feed listing the same story twice dedupes the second.
func (d *Deduplicator) IsDuplicate(ctx context.Context, c domain.Candidate) (bool, error) {
	key := domain.NormalizeTitle(c.Title)

	d.mu.Lock()
	_, inBatch := d.seen[key]
	d.mu.Unlock()
	if inBatch {
		return true, nil
	}

	exists, err := d.store.HasTitle(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	d.mu.Lock()
	d.seen[key] = struct{}{}
	d.mu.Unlock()
	return false, nil
}
