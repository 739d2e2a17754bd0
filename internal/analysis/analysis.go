// Package analysis composes the prompts sent to the generation model and
// parses its replies into structured results. Everything here is a pure
// function over strings; network calls stay in the callers.
package analysis

import (
	"strings"

	"github.com/kalambet/ttyv/internal/store"
)

// Summary variants.
const (
	VariantComprehensive = "comprehensive"
	VariantExecutive     = "executive"
	VariantBulletPoints  = "bullet_points"
	VariantKeyTopics     = "key_topics"
)

// Defaults for composite analyses.
const (
	DefaultDepth     = "comprehensive"
	DefaultTimeframe = "all_time"
)

// Grouping methods for trend analysis.
const (
	GroupingTemporal = "temporal"
	GroupingTopical  = "topical"
	GroupingChannel  = "channel"
)

// DefaultComparisonAspects are the aspects examined when a comparison
// request does not name its own.
var DefaultComparisonAspects = []string{"content_overlap", "unique_points", "presentation_style", "depth_of_coverage"}

// DefaultTrendAspects are the aspects examined when a trend request does
// not name its own.
var DefaultTrendAspects = []string{"topic_evolution", "sentiment_trends", "complexity_changes", "audience_engagement"}

// Facet budgets. Questions and sentiment read only a prefix of the
// transcript; topics and summaries read all of it.
const (
	questionChunkBudget  = 3
	sentimentChunkBudget = 5

	DefaultQuestionCount = 5
	DefaultTopicCount    = 5
	MaxTopics            = 10
	MaxInsights          = 10
)

// NoAnswerText is the fixed reply the context-only chat mode instructs
// the model to give when the transcript does not contain the answer.
const NoAnswerText = "The answer to this question cannot be found in the provided context."

// ValidVariant reports whether v names a known summary variant.
func ValidVariant(v string) bool {
	switch v {
	case VariantComprehensive, VariantExecutive, VariantBulletPoints, VariantKeyTopics:
		return true
	}
	return false
}

// Variants returns the known summary variants in a fixed order.
func Variants() []string {
	return []string{VariantComprehensive, VariantExecutive, VariantBulletPoints, VariantKeyTopics}
}

// ValidGrouping reports whether g names a known trend grouping method.
func ValidGrouping(g string) bool {
	switch g {
	case GroupingTemporal, GroupingTopical, GroupingChannel:
		return true
	}
	return false
}

// JoinChunks flattens up to limit transcript chunks into one string for
// prompt interpolation. limit <= 0 means all chunks.
func JoinChunks(chunks []store.Chunk, limit int) string {
	if limit <= 0 || limit > len(chunks) {
		limit = len(chunks)
	}
	parts := make([]string, limit)
	for i := 0; i < limit; i++ {
		parts[i] = chunks[i].Text
	}
	return strings.Join(parts, " ")
}

// CleanSummary post-processes a generated summary. Prose variants are
// flattened to a single line; list-shaped variants keep their newlines.
func CleanSummary(variant, text string) string {
	text = strings.TrimSpace(text)
	switch variant {
	case VariantBulletPoints, VariantKeyTopics:
		return text
	}
	return strings.Join(strings.Fields(text), " ")
}

// clip shortens s to at most n bytes for prompt interpolation, marking
// the cut with an ellipsis.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// orUnknown substitutes fallback for an empty value.
func orUnknown(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
