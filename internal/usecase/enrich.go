package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

// Style suffix appended to every image prompt.
const imageStyleSuffix = "vintage photograph, sepia tones, grainy film, mid-century press photo"

var variantInstructions = map[domain.VariantKind]string{
	domain.VariantFactual:        "Rewrite the story as a concise, strictly factual newspaper report. No opinion, no speculation.",
	domain.VariantSensationalist: "Rewrite the story as a breathless tabloid piece: dramatic hook, exaggerated stakes, lurid detail.",
	domain.VariantPropaganda:     "Rewrite the story as state propaganda: glorify the authorities, downplay problems, rally the reader.",
}

const variantSystemPrompt = "You are the rewrite desk of a newspaper. " +
	"Reply with the rewritten story text only, no preamble and no markdown."

const taggingSystemPrompt = "You analyze news stories and reply with a single JSON object, nothing else."

const scoringSystemPrompt = "You predict audience reactions to news stories and reply with a single JSON object of integers, nothing else."

// EnricherDeps wires the generation back-ends into the enrichment pipeline.
type EnricherDeps struct {
	Text        ports.TextGenerator
	Images      ports.ImageGenerator
	ImageStore  ports.ImageStore
	ImageWidth  int
	ImageHeight int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Enricher turns a surviving candidate into a fully enriched article.
// Stages: variant generation, tagging, audience scoring, image generation.
// The first three are required; image generation is supplementary and may
// fail without failing the candidate.
type Enricher struct {
	text        ports.TextGenerator
	images      ports.ImageGenerator
	imageStore  ports.ImageStore
	imageWidth  int
	imageHeight int
	logger      *slog.Logger
	now         func() time.Time
}

// NewEnricher constructs the pipeline component.
func NewEnricher(deps EnricherDeps) *Enricher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	width, height := deps.ImageWidth, deps.ImageHeight
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}
	return &Enricher{
		text:        deps.Text,
		images:      deps.Images,
		imageStore:  deps.ImageStore,
		imageWidth:  width,
		imageHeight: height,
		logger:      logger,
		now:         now,
	}
}

// Enrich runs all stages for one candidate. A failure in variants, tagging or
// scoring yields domain.ErrEnrichmentFailed; a partially enriched article is
// never returned.
func (e *Enricher) Enrich(ctx context.Context, c domain.Candidate) (*domain.Article, error) {
	variants, err := e.generateVariants(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: variants for %q: %v", domain.ErrEnrichmentFailed, c.Title, err)
	}

	tags, err := e.generateTags(ctx, c, variants)
	if err != nil {
		return nil, fmt.Errorf("%w: tagging for %q: %v", domain.ErrEnrichmentFailed, c.Title, err)
	}

	scores, err := e.scoreAudiences(ctx, variants)
	if err != nil {
		return nil, fmt.Errorf("%w: scoring for %q: %v", domain.ErrEnrichmentFailed, c.Title, err)
	}

	now := e.now()
	article := &domain.Article{
		OriginalTitle:    c.Title,
		Variants:         variants,
		TopicTags:        tags.topicTags,
		Sentiment:        tags.sentiment,
		LocationLat:      tags.lat,
		LocationLon:      tags.lon,
		LocationCity:     tags.city,
		Date:             now,
		PublishedAt:      c.PublishedAt,
		AssistantComment: tags.comment,
		AudienceScores:   scores,
		CreatedAt:        now,
	}

	// Illustration is supplementary content; a failure here leaves
	// ImageRef nil and the article still counts as enriched.
	if ref, imgErr := e.generateImage(ctx, c, tags.city); imgErr != nil {
		e.logger.Warn("image generation failed", "title", c.Title, "error", imgErr)
	} else {
		article.ImageRef = &ref
	}

	return article, nil
}

// generateVariants produces all three framings. Every variant must come back
// non-empty; partial sets are discarded by failing the stage.
func (e *Enricher) generateVariants(ctx context.Context, c domain.Candidate) (map[domain.VariantKind]string, error) {
	story := c.Title
	if c.Summary != "" {
		story += "\n\n" + c.Summary
	}

	variants := make(map[domain.VariantKind]string, len(domain.VariantKinds))
	for _, kind := range domain.VariantKinds {
		user := fmt.Sprintf("%s\n\nStory:\n%s", variantInstructions[kind], story)
		text, err := e.text.Complete(ctx, variantSystemPrompt, user)
		if err != nil {
			return nil, fmt.Errorf("%s variant: %w", kind, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%s variant: backend returned empty text", kind)
		}
		variants[kind] = text
	}
	return variants, nil
}

type tagResult struct {
	topicTags []string
	sentiment string
	city      *string
	lat       *float64
	lon       *float64
	comment   *string
}

func (e *Enricher) generateTags(ctx context.Context, c domain.Candidate, variants map[domain.VariantKind]string) (tagResult, error) {
	user := fmt.Sprintf(`Analyze this news story and reply with JSON:
{"topicTags": ["..."], "sentiment": "positive|negative|neutral|tense|hopeful", "city": "nearest city or empty", "lat": 0.0, "lon": 0.0, "comment": "one short editor remark"}

Headline: %s
Story: %s`, c.Title, variants[domain.VariantFactual])

	raw, err := e.text.Complete(ctx, taggingSystemPrompt, user)
	if err != nil {
		return tagResult{}, err
	}

	var parsed struct {
		TopicTags []string `json:"topicTags"`
		Sentiment string   `json:"sentiment"`
		City      string   `json:"city"`
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
		Comment   string   `json:"comment"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return tagResult{}, fmt.Errorf("parse tagging response: %w", err)
	}

	result := tagResult{
		topicTags: dedupeTags(parsed.TopicTags),
		sentiment: domain.NormalizeSentiment(parsed.Sentiment),
	}
	if city := strings.TrimSpace(parsed.City); city != "" {
		result.city = &city
		result.lat = parsed.Lat
		result.lon = parsed.Lon
	}
	if comment := strings.TrimSpace(parsed.Comment); comment != "" {
		result.comment = &comment
	}
	return result, nil
}

// scoreAudiences asks the backend for a faction score vector per variant and
// clamps every component to the allowed range whatever comes back.
func (e *Enricher) scoreAudiences(ctx context.Context, variants map[domain.VariantKind]string) (map[domain.VariantKind]domain.FactionScores, error) {
	scores := make(map[domain.VariantKind]domain.FactionScores, len(domain.VariantKinds))
	for _, kind := range domain.VariantKinds {
		user := fmt.Sprintf(`Rate how each audience segment reacts to this article, each value an integer from -10 to 10. Reply with JSON:
{"elite": 0, "workingClass": 0, "patriots": 0, "syndicate": 0, "technocrats": 0, "faithful": 0, "resistance": 0, "doomers": 0}

Article:
%s`, variants[kind])

		raw, err := e.text.Complete(ctx, scoringSystemPrompt, user)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", kind, err)
		}
		var vec domain.FactionScores
		if err := json.Unmarshal([]byte(extractJSON(raw)), &vec); err != nil {
			return nil, fmt.Errorf("parse %s scores: %w", kind, err)
		}
		scores[kind] = vec.Clamped()
	}
	return scores, nil
}

func (e *Enricher) generateImage(ctx context.Context, c domain.Candidate, city *string) (string, error) {
	if e.images == nil || e.imageStore == nil {
		return "", fmt.Errorf("%w: no image backend configured", domain.ErrImageGeneration)
	}

	prompt := buildImagePrompt(c.Title, city)
	data, err := e.images.Generate(ctx, prompt, e.imageWidth, e.imageHeight)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ".png"
	ref, err := e.imageStore.SaveImage(name, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrImageGeneration, err)
	}
	return ref, nil
}

// buildImagePrompt derives the prompt deterministically from title and
// location, composited with the fixed style suffix.
func buildImagePrompt(title string, city *string) string {
	parts := []string{title}
	if city != nil && *city != "" {
		parts = append(parts, *city)
	}
	parts = append(parts, imageStyleSuffix)
	return strings.Join(parts, ", ")
}

// extractJSON strips code fences and surrounding prose from a model reply,
// keeping the outermost JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
