package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/ttyv/internal/analysis"
	"github.com/kalambet/ttyv/internal/store"
	"github.com/kalambet/ttyv/internal/transcript"
)

// URL count bounds for composite jobs.
const (
	MinComparisonURLs = 2
	MaxComparisonURLs = 10
	MinTrendURLs      = 3
	MaxTrendURLs      = 50
)

// CompareOptions tunes a comparison batch. Zero values select the
// defaults.
type CompareOptions struct {
	Aspects []string
	Depth   string
}

// TrendOptions tunes a trend batch. Zero values select the defaults.
type TrendOptions struct {
	Timeframe string
	GroupBy   string
}

// Compare registers a comparison over 2..10 videos and queues its
// pipeline. Resubmitting the same URL sequence returns the existing job.
func (r *Runner) Compare(urls []string, opts CompareOptions) (store.CompositeJob, bool, error) {
	if len(urls) < MinComparisonURLs || len(urls) > MaxComparisonURLs {
		return store.CompositeJob{}, false, fmt.Errorf("%w: comparison needs %d to %d videos, got %d",
			ErrValidation, MinComparisonURLs, MaxComparisonURLs, len(urls))
	}
	canonicals, memberIDs, err := resolveMembers(urls)
	if err != nil {
		return store.CompositeJob{}, false, err
	}

	aspects := opts.Aspects
	if len(aspects) == 0 {
		aspects = analysis.DefaultComparisonAspects
	}
	depth := opts.Depth
	if depth == "" {
		depth = analysis.DefaultDepth
	}

	id := store.CompositeJobID(canonicals)
	comp, created := r.store.CreateComposite(id, store.KindComparison, canonicals, memberIDs)
	if !created {
		return comp, false, nil
	}

	err = r.submit(task{
		kind: "comparison",
		id:   id,
		run:  func(ctx context.Context) { r.processComparison(ctx, id, aspects, depth) },
	})
	if err != nil {
		if failErr := r.store.FailComposite(id, err.Error()); failErr != nil {
			r.log.Error("failing unqueued comparison", "comparison_id", id, "error", failErr)
		}
		comp, _ = r.store.GetComposite(id)
		return comp, false, err
	}
	return comp, true, nil
}

// Trends registers a trend analysis over 3..50 videos and queues its
// pipeline.
func (r *Runner) Trends(urls []string, opts TrendOptions) (store.CompositeJob, bool, error) {
	if len(urls) < MinTrendURLs || len(urls) > MaxTrendURLs {
		return store.CompositeJob{}, false, fmt.Errorf("%w: trend analysis needs %d to %d videos, got %d",
			ErrValidation, MinTrendURLs, MaxTrendURLs, len(urls))
	}
	groupBy := opts.GroupBy
	if groupBy == "" {
		groupBy = analysis.GroupingTemporal
	}
	if !analysis.ValidGrouping(groupBy) {
		return store.CompositeJob{}, false, fmt.Errorf("%w: unknown grouping method %q", ErrValidation, groupBy)
	}
	timeframe := opts.Timeframe
	if timeframe == "" {
		timeframe = analysis.DefaultTimeframe
	}
	canonicals, memberIDs, err := resolveMembers(urls)
	if err != nil {
		return store.CompositeJob{}, false, err
	}

	id := store.CompositeJobID(canonicals)
	comp, created := r.store.CreateComposite(id, store.KindTrend, canonicals, memberIDs)
	if !created {
		return comp, false, nil
	}

	err = r.submit(task{
		kind: "trend",
		id:   id,
		run:  func(ctx context.Context) { r.processTrend(ctx, id, timeframe, groupBy) },
	})
	if err != nil {
		if failErr := r.store.FailComposite(id, err.Error()); failErr != nil {
			r.log.Error("failing unqueued trend analysis", "analysis_id", id, "error", failErr)
		}
		comp, _ = r.store.GetComposite(id)
		return comp, false, err
	}
	return comp, true, nil
}

// resolveMembers canonicalizes every URL and derives the member job ids.
// One bad URL rejects the whole batch; composites never start partially
// valid.
func resolveMembers(urls []string) ([]string, []string, error) {
	canonicals := make([]string, len(urls))
	memberIDs := make([]string, len(urls))
	for i, u := range urls {
		watchID, err := transcript.ExtractVideoID(u)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: url %d: %v", ErrValidation, i+1, err)
		}
		canonicals[i] = transcript.CanonicalURL(watchID)
		memberIDs[i] = store.JobID(canonicals[i])
	}
	return canonicals, memberIDs, nil
}

func (r *Runner) processComparison(ctx context.Context, id string, aspects []string, depth string) {
	log := r.log.With("comparison_id", id)

	comp, err := r.store.GetComposite(id)
	if err != nil {
		log.Warn("comparison vanished before processing", "error", err)
		return
	}

	members := r.collectMembers(ctx, id, comp, log)
	if len(members) == 0 {
		r.failComposite(id, fmt.Errorf("none of the %d videos could be analyzed", len(comp.URLs)))
		return
	}

	var answer string
	err = r.callWithRetry(ctx, "generating comparison", func(ctx context.Context) error {
		var err error
		answer, err = r.gen.Generate(ctx, r.cfg.Model, analysis.ComparisonPrompt(members, aspects, depth))
		return err
	})
	if err != nil {
		r.failComposite(id, err)
		return
	}

	result := &store.ComparisonResult{
		ComparisonAnalysis: answer,
		VideosCount:        len(members),
		AspectsAnalyzed:    aspects,
		AnalysisDepth:      depth,
		SummaryStats: store.SummaryStats{
			TotalVideos:   len(members),
			Channels:      analysis.Channels(members),
			TopicsCovered: analysis.TopicsCovered(members),
		},
		Videos: members,
	}
	if err := r.store.CompleteComparison(id, result); err != nil {
		log.Error("completing comparison", "error", err)
		return
	}
	log.Info("comparison completed", "members", len(members), "of", len(comp.URLs))
}

func (r *Runner) processTrend(ctx context.Context, id string, timeframe, groupBy string) {
	log := r.log.With("analysis_id", id)

	comp, err := r.store.GetComposite(id)
	if err != nil {
		log.Warn("trend analysis vanished before processing", "error", err)
		return
	}

	members := r.collectMembers(ctx, id, comp, log)
	if len(members) == 0 {
		r.failComposite(id, fmt.Errorf("none of the %d videos could be analyzed", len(comp.URLs)))
		return
	}

	groups, order := analysis.GroupMembers(members, groupBy)
	aspects := analysis.DefaultTrendAspects

	var trendText string
	err = r.callWithRetry(ctx, "generating trend analysis", func(ctx context.Context) error {
		var err error
		trendText, err = r.gen.Generate(ctx, r.cfg.Model, analysis.TrendPrompt(groups, order, timeframe, aspects, groupBy))
		return err
	})
	if err != nil {
		r.failComposite(id, err)
		return
	}

	// Insights are a bonus layer over the trend text; losing them is not
	// worth failing the whole batch.
	var insights []string
	var insightsRaw string
	err = r.callWithRetry(ctx, "generating insights", func(ctx context.Context) error {
		var err error
		insightsRaw, err = r.gen.Generate(ctx, r.cfg.Model, analysis.InsightsPrompt(trendText, len(members)))
		return err
	})
	if err != nil {
		log.Warn("insight generation failed", "error", err)
	} else {
		insights = analysis.ParseList(insightsRaw, analysis.MaxInsights)
	}

	result := &store.TrendResult{
		TrendAnalysis:   trendText,
		AnalysisPeriod:  timeframe,
		AspectsAnalyzed: aspects,
		GroupingMethod:  groupBy,
		DataSummary: store.TrendDataSummary{
			TotalVideos:      len(members),
			GroupsAnalyzed:   len(order),
			ChannelsInvolved: analysis.Channels(members),
			AnalysisDate:     time.Now().UTC().Format(time.RFC3339),
		},
		GroupedData: groups,
		Insights:    insights,
	}
	if err := r.store.CompleteTrend(id, result); err != nil {
		log.Error("completing trend analysis", "error", err)
		return
	}
	log.Info("trend analysis completed", "members", len(members), "groups", len(order))
}

// collectMembers brings every member video to a completed state and
// gathers its summary data. A member that cannot be analyzed is logged
// and skipped; progress advances only for collected members.
func (r *Runner) collectMembers(ctx context.Context, compositeID string, comp store.CompositeJob, log *slog.Logger) []store.MemberSummary {
	members := make([]store.MemberSummary, 0, len(comp.MemberJobIDs))
	for i, jobID := range comp.MemberJobIDs {
		m, err := r.collectMember(ctx, jobID, comp.URLs[i])
		if err != nil {
			log.Warn("skipping member video", "member_id", jobID, "url", comp.URLs[i], "error", err)
			continue
		}
		members = append(members, m)
		if err := r.store.AdvanceComposite(compositeID); err != nil {
			log.Warn("advancing progress", "error", err)
		}
	}
	return members
}

// collectMember ensures one member video is fully analyzed and returns
// its summary slice. New videos run the pipeline inline on the current
// worker; videos another caller is already processing are waited on.
func (r *Runner) collectMember(ctx context.Context, jobID, url string) (store.MemberSummary, error) {
	job, created := r.store.GetOrCreate(jobID, url)
	if created {
		r.processVideo(ctx, jobID, AnalyzeOptions{
			Variant:          analysis.VariantComprehensive,
			IncludeTopics:    true,
			IncludeSentiment: true,
		})
	} else if !job.Terminal() {
		if _, err := r.store.Wait(ctx, jobID); err != nil {
			return store.MemberSummary{}, fmt.Errorf("waiting for in-flight analysis: %w", err)
		}
	}

	job, err := r.store.Get(jobID)
	if err != nil {
		return store.MemberSummary{}, err
	}
	if job.Status != store.StatusCompleted {
		return store.MemberSummary{}, fmt.Errorf("analysis failed: %s", job.Error)
	}

	summary, topics, sentiment := r.memberAnalysis(ctx, jobID, job)
	return store.MemberSummary{
		VideoID:   jobID,
		Title:     job.Metadata.Title,
		Author:    job.Metadata.AuthorName,
		URL:       job.URL,
		Summary:   summary,
		Topics:    topics,
		Sentiment: sentiment,
	}, nil
}

// memberAnalysis returns the comprehensive summary, topics, and
// sentiment for a completed member, reusing cached results and filling
// gaps on demand. Everything here is best-effort: missing fields render
// as their prompt fallbacks instead of sinking the batch.
func (r *Runner) memberAnalysis(ctx context.Context, jobID string, job store.VideoJob) (summary string, topics []string, sentiment string) {
	if a, err := r.store.GetAnalysis(jobID, analysis.VariantComprehensive); err == nil {
		summary, topics, sentiment = a.Summary, a.Topics, a.Sentiment
	}

	if summary == "" {
		s, err := r.generateSummary(ctx, analysis.VariantComprehensive, job.Chunks)
		if err != nil {
			r.log.Warn("member summary failed", "video_id", jobID, "error", err)
		} else {
			summary = s
			r.store.UpdateAnalysis(jobID, analysis.VariantComprehensive, func(a *store.AnalysisResult) {
				a.Summary = s
			})
		}
	}
	if len(topics) == 0 {
		t, err := r.generateTopics(ctx, job.Chunks)
		if err != nil {
			r.log.Warn("member topics failed", "video_id", jobID, "error", err)
		} else if len(t) > 0 {
			topics = t
			r.store.UpdateAnalysis(jobID, analysis.VariantComprehensive, func(a *store.AnalysisResult) {
				a.Topics = t
			})
		}
	}
	if sentiment == "" {
		s, err := r.generateSentiment(ctx, job.Chunks)
		if err != nil {
			r.log.Warn("member sentiment failed", "video_id", jobID, "error", err)
		} else if s != "" {
			sentiment = s
			r.store.UpdateAnalysis(jobID, analysis.VariantComprehensive, func(a *store.AnalysisResult) {
				a.Sentiment = s
			})
		}
	}
	return summary, topics, sentiment
}

func (r *Runner) failComposite(id string, cause error) {
	r.log.Warn("composite analysis failed", "id", id, "error", cause)
	if err := r.store.FailComposite(id, cause.Error()); err != nil {
		r.log.Error("recording composite failure", "id", id, "error", err)
	}
}
