package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
)

func testCandidate() domain.Candidate {
	return domain.Candidate{
		Title:   "Dam Breaks Upstream",
		Link:    "https://example.org/dam",
		Summary: "A dam broke upstream of the capital.",
		Source:  "wire",
	}
}

func TestEnrichProducesAllVariants(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	images := &fakeImageGen{}
	enricher := NewEnricher(EnricherDeps{
		Text:       textGen,
		Images:     images,
		ImageStore: newFakeImageStore(),
	})

	article, err := enricher.Enrich(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Enrich error: %v", err)
	}

	if len(article.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(article.Variants))
	}
	for _, kind := range domain.VariantKinds {
		if article.Variants[kind] == "" {
			t.Fatalf("variant %s is empty", kind)
		}
	}
	if article.Sentiment != "tense" {
		t.Fatalf("expected sentiment tense, got %q", article.Sentiment)
	}
	if len(article.TopicTags) != 1 || article.TopicTags[0] != "politics" {
		t.Fatalf("unexpected tags: %v", article.TopicTags)
	}
	if article.LocationCity == nil || *article.LocationCity != "Praha" {
		t.Fatalf("expected city Praha, got %v", article.LocationCity)
	}
	if article.AssistantComment == nil || *article.AssistantComment != "watch this one" {
		t.Fatalf("unexpected comment: %v", article.AssistantComment)
	}
	if article.ImageRef == nil {
		t.Fatalf("expected image ref with healthy image backend")
	}
	if len(article.AudienceScores) != 3 {
		t.Fatalf("expected scores for 3 variants, got %d", len(article.AudienceScores))
	}
}

func TestEnrichFailsWhenVariantGenerationFails(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	textGen.completeErr = errors.New("backend hiccup")
	enricher := NewEnricher(EnricherDeps{Text: textGen})

	_, err := enricher.Enrich(context.Background(), testCandidate())
	if !errors.Is(err, domain.ErrEnrichmentFailed) {
		t.Fatalf("expected ErrEnrichmentFailed, got %v", err)
	}
}

func TestEnrichFailsOnEmptyVariant(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	textGen.variantText = "   "
	enricher := NewEnricher(EnricherDeps{Text: textGen})

	_, err := enricher.Enrich(context.Background(), testCandidate())
	if !errors.Is(err, domain.ErrEnrichmentFailed) {
		t.Fatalf("expected ErrEnrichmentFailed for empty variant, got %v", err)
	}
}

func TestEnrichClampsOutOfRangeScores(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	textGen.scoreJSON = `{"elite":999,"workingClass":-999,"patriots":0,"syndicate":0,"technocrats":0,"faithful":0,"resistance":0,"doomers":0}`
	enricher := NewEnricher(EnricherDeps{
		Text:       textGen,
		Images:     &fakeImageGen{},
		ImageStore: newFakeImageStore(),
	})

	article, err := enricher.Enrich(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Enrich error: %v", err)
	}
	for kind, scores := range article.AudienceScores {
		if scores.Elite != domain.ScoreMax {
			t.Fatalf("%s: elite not clamped to %d, got %d", kind, domain.ScoreMax, scores.Elite)
		}
		if scores.WorkingClass != domain.ScoreMin {
			t.Fatalf("%s: workingClass not clamped to %d, got %d", kind, domain.ScoreMin, scores.WorkingClass)
		}
	}
}

func TestEnrichSurvivesImageFailure(t *testing.T) {
	t.Parallel()

	enricher := NewEnricher(EnricherDeps{
		Text:       newFakeTextGen(),
		Images:     &fakeImageGen{err: errors.New("gpu busy")},
		ImageStore: newFakeImageStore(),
	})

	article, err := enricher.Enrich(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Enrich error: %v", err)
	}
	if article.ImageRef != nil {
		t.Fatalf("expected nil ImageRef when image backend fails, got %v", *article.ImageRef)
	}
}

func TestEnrichHandlesFencedJSON(t *testing.T) {
	t.Parallel()

	textGen := newFakeTextGen()
	textGen.tagJSON = "```json\n" + `{"topicTags":["war"],"sentiment":"negative"}` + "\n```"
	enricher := NewEnricher(EnricherDeps{
		Text:       textGen,
		Images:     &fakeImageGen{},
		ImageStore: newFakeImageStore(),
	})

	article, err := enricher.Enrich(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Enrich error: %v", err)
	}
	if article.Sentiment != "negative" {
		t.Fatalf("expected negative, got %q", article.Sentiment)
	}
	if article.LocationCity != nil {
		t.Fatalf("expected nil city when absent from response")
	}
}

func TestImagePromptCarriesStyleSuffix(t *testing.T) {
	t.Parallel()

	images := &fakeImageGen{}
	enricher := NewEnricher(EnricherDeps{
		Text:       newFakeTextGen(),
		Images:     images,
		ImageStore: newFakeImageStore(),
	})

	if _, err := enricher.Enrich(context.Background(), testCandidate()); err != nil {
		t.Fatalf("Enrich error: %v", err)
	}
	if !strings.HasPrefix(images.lastPrompt, "Dam Breaks Upstream") {
		t.Fatalf("prompt should start with the title: %q", images.lastPrompt)
	}
	if !strings.Contains(images.lastPrompt, "Praha") {
		t.Fatalf("prompt should carry the inferred city: %q", images.lastPrompt)
	}
	if !strings.HasSuffix(images.lastPrompt, imageStyleSuffix) {
		t.Fatalf("prompt should end with the style suffix: %q", images.lastPrompt)
	}
}
