// Package feed fetches syndication feeds and normalizes entries into candidates.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

const defaultTimeout = 20 * time.Second

// Reader implements ports.FeedSource on top of gofeed.
type Reader struct {
	parser *gofeed.Parser
}

var _ ports.FeedSource = (*Reader)(nil)

// NewReader wires an HTTP client; a nil client gets a bounded-timeout default.
func NewReader(client *http.Client) *Reader {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "newsdesk/1.0"
	return &Reader{parser: parser}
}

// FetchCandidates retrieves one feed and returns up to limit normalized
// candidates, newest first. Items whose publish date fails to parse sort last.
// Any fetch or parse problem surfaces as domain.ErrFeedUnavailable.
func (r *Reader) FetchCandidates(ctx context.Context, feedURL string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFeedUnavailable, feedURL, err)
	}

	source := strings.TrimSpace(parsed.Title)
	if source == "" {
		source = feedURL
	}

	candidates := make([]domain.Candidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		var publishedAt *time.Time
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			publishedAt = &t
		}

		candidates = append(candidates, domain.Candidate{
			Title:       title,
			Link:        strings.TrimSpace(item.Link),
			Summary:     StripHTML(item.Description),
			PublishedAt: publishedAt,
			Source:      source,
		})
	}

	sortNewestFirst(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// sortNewestFirst orders by publish date descending; undated items go last.
// The sort is stable so undated items keep their feed order.
func sortNewestFirst(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].PublishedAt, candidates[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// StripHTML flattens markup in a feed summary to plain text, normalizing
// entities along the way. On unparseable input the raw string is returned.
func StripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
