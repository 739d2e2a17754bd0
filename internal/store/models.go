package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotReady is returned when a job exists but its pipeline has not
// reached the completed state yet.
var ErrNotReady = errors.New("not ready")

// Job status values. A job moves from processing to exactly one of
// completed or error; there are no other transitions.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Composite job kinds.
const (
	KindComparison = "comparison"
	KindTrend      = "trend"
)

// Chunk is one ordered piece of a video transcript.
type Chunk struct {
	Seq  int
	Text string
}

// ScoredChunk is a transcript chunk ranked by similarity to a query.
// Higher Score means more relevant.
type ScoredChunk struct {
	Seq   int
	Text  string
	Score float64
}

// Searcher answers similarity queries against one video's transcript index.
// Implemented by index.Handle.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]ScoredChunk, error)
}

// Metadata describes a video. Populated from oEmbed as soon as it is
// known, independent of job status.
type Metadata struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Provider     string `json:"provider_name"`
	VideoID      string `json:"video_id"`
	VideoURL     string `json:"video_url"`
}

// VideoJob tracks the processing lifecycle of one source video.
//
// Chunks and Index are set together at the completed transition and are
// never mutated afterwards; Error is set only at the error transition.
// Snapshots returned by the store share the immutable Chunks backing
// array, which is safe because it is write-once.
type VideoJob struct {
	ID          string
	URL         string
	Status      string // "processing", "completed", "error"
	Metadata    Metadata
	Chunks      []Chunk
	Index       Searcher
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time

	done chan struct{} // closed once the job reaches a terminal status
}

// ChunkCount reports how many transcript chunks the job holds.
func (j VideoJob) ChunkCount() int { return len(j.Chunks) }

// Terminal reports whether the job has finished, successfully or not.
func (j VideoJob) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

// AnalysisResult holds the generated outputs for one (video, variant)
// pair. Facets are filled in independently as each one completes.
type AnalysisResult struct {
	VideoID   string    `json:"video_id"`
	Variant   string    `json:"summary_type"`
	Summary   string    `json:"summary"`
	Topics    []string  `json:"topics,omitempty"`
	Questions []string  `json:"questions,omitempty"`
	Sentiment string    `json:"sentiment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is a single chat message. Sources carry the transcript snippets
// that backed an assistant turn.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is an append-only log of chat turns bound to one video.
type ChatSession struct {
	ID        string
	VideoID   string
	Turns     []Turn
	CreatedAt time.Time
}

// MemberSummary is the per-video slice of a composite result.
type MemberSummary struct {
	VideoID   string   `json:"video_id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	URL       string   `json:"url"`
	Summary   string   `json:"summary"`
	Topics    []string `json:"topics,omitempty"`
	Sentiment string   `json:"sentiment,omitempty"`
}

// SummaryStats aggregates the member videos of a comparison.
type SummaryStats struct {
	TotalVideos   int      `json:"total_videos"`
	Channels      []string `json:"channels"`
	TopicsCovered []string `json:"topics_covered"`
}

// ComparisonResult is the structured output of a comparison job.
type ComparisonResult struct {
	ComparisonAnalysis string          `json:"comparison_analysis"`
	VideosCount        int             `json:"videos_count"`
	AspectsAnalyzed    []string        `json:"aspects_analyzed"`
	AnalysisDepth      string          `json:"analysis_depth"`
	SummaryStats       SummaryStats    `json:"summary_stats"`
	Videos             []MemberSummary `json:"videos"`
}

// TrendDataSummary aggregates the member videos of a trend analysis.
type TrendDataSummary struct {
	TotalVideos      int      `json:"total_videos"`
	GroupsAnalyzed   int      `json:"groups_analyzed"`
	ChannelsInvolved []string `json:"channels_involved"`
	AnalysisDate     string   `json:"analysis_date"`
}

// TrendResult is the structured output of a trend-analysis job.
type TrendResult struct {
	TrendAnalysis   string                     `json:"trend_analysis"`
	AnalysisPeriod  string                     `json:"analysis_period"`
	AspectsAnalyzed []string                   `json:"aspects_analyzed"`
	GroupingMethod  string                     `json:"grouping_method"`
	DataSummary     TrendDataSummary           `json:"data_summary"`
	GroupedData     map[string][]MemberSummary `json:"grouped_data"`
	Insights        []string                   `json:"insights"`
}

// CompositeJob tracks a comparison or trend batch over several videos.
//
// MemberJobIDs is fixed at creation (one id per submitted URL, in input
// order). ProgressCount counts members whose data was successfully
// collected; it only ever increases. Exactly one of Comparison or Trends
// is set when Status is "completed", according to Kind.
type CompositeJob struct {
	ID            string
	Kind          string // "comparison" or "trend"
	Status        string
	URLs          []string
	MemberJobIDs  []string
	ProgressCount int
	Comparison    *ComparisonResult
	Trends        *TrendResult
	Error         string
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// Terminal reports whether the composite job has finished.
func (c CompositeJob) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusError
}
