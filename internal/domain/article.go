package domain

import (
	"strings"
	"time"
)

// Candidate is a normalized feed entry awaiting deduplication and enrichment.
// It lives only for the duration of one ingestion pass.
type Candidate struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
	Source      string
}

// VariantKind names one of the three fixed editorial framings of a story.
type VariantKind string

const (
	VariantFactual        VariantKind = "factual"
	VariantSensationalist VariantKind = "sensationalist"
	VariantPropaganda     VariantKind = "propaganda"
)

// VariantKinds lists all framings in generation order.
var VariantKinds = []VariantKind{VariantFactual, VariantSensationalist, VariantPropaganda}

// Score bounds for every faction reaction component.
const (
	ScoreMin = -10
	ScoreMax = 10
)

// FactionScores holds one reaction value per audience segment.
type FactionScores struct {
	Elite        int `json:"elite"`
	WorkingClass int `json:"workingClass"`
	Patriots     int `json:"patriots"`
	Syndicate    int `json:"syndicate"`
	Technocrats  int `json:"technocrats"`
	Faithful     int `json:"faithful"`
	Resistance   int `json:"resistance"`
	Doomers      int `json:"doomers"`
}

// Clamped returns a copy with every component forced into [ScoreMin, ScoreMax].
func (f FactionScores) Clamped() FactionScores {
	return FactionScores{
		Elite:        clamp(f.Elite),
		WorkingClass: clamp(f.WorkingClass),
		Patriots:     clamp(f.Patriots),
		Syndicate:    clamp(f.Syndicate),
		Technocrats:  clamp(f.Technocrats),
		Faithful:     clamp(f.Faithful),
		Resistance:   clamp(f.Resistance),
		Doomers:      clamp(f.Doomers),
	}
}

func clamp(v int) int {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}

// Sentiments is the fixed vocabulary the tagging stage must pick from.
var Sentiments = []string{"positive", "negative", "neutral", "tense", "hopeful"}

// NormalizeSentiment maps arbitrary backend output onto the fixed vocabulary,
// falling back to "neutral" for anything unrecognized.
func NormalizeSentiment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, known := range Sentiments {
		if s == known {
			return known
		}
	}
	return "neutral"
}

// Article is the persisted, fully enriched unit.
type Article struct {
	ID               int64                         `json:"id"`
	OriginalTitle    string                        `json:"originalTitle"`
	Variants         map[VariantKind]string        `json:"processedVariants"`
	TopicTags        []string                      `json:"topicTags"`
	Sentiment        string                        `json:"sentiment"`
	LocationLat      *float64                      `json:"locationLat"`
	LocationLon      *float64                      `json:"locationLon"`
	LocationCity     *string                       `json:"locationCity"`
	Date             time.Time                     `json:"date"`
	PublishedAt      *time.Time                    `json:"publishedAt"`
	AssistantComment *string                       `json:"assistantComment"`
	AudienceScores   map[VariantKind]FactionScores `json:"audienceScores"`
	ImageRef         *string                       `json:"imageRef"`
	CreatedAt        time.Time                     `json:"createdAt"`
}

// NormalizeTitle produces the identity used for duplicate suppression:
// case-folded with runs of whitespace collapsed to single spaces.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// BatchSummary reports the outcome of one ingestion batch.
type BatchSummary struct {
	Accepted      int               `json:"accepted"`
	Duplicates    int               `json:"duplicates"`
	Failures      int               `json:"failures"`
	PerFeedErrors map[string]string `json:"perFeedErrors,omitempty"`
}
