package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/ttyv/internal/analysis"
	"github.com/kalambet/ttyv/internal/store"
	"github.com/kalambet/ttyv/internal/transcript"
)

// AnalyzeOptions selects what a video pipeline produces beyond the
// always-generated summary.
type AnalyzeOptions struct {
	Variant          string
	IncludeTopics    bool
	IncludeQuestions bool
	IncludeSentiment bool
	Force            bool
}

// Analyze registers a video for analysis and queues its pipeline. The
// boolean reports whether this call started a new pipeline; false means
// the video was already known (in progress or finished) and the snapshot
// describes that existing record.
//
// With Force set, any existing record and everything derived from it is
// dropped first, so the pipeline runs fresh.
func (r *Runner) Analyze(rawURL string, opts AnalyzeOptions) (store.VideoJob, bool, error) {
	if opts.Variant == "" {
		opts.Variant = analysis.VariantComprehensive
	}
	if !analysis.ValidVariant(opts.Variant) {
		return store.VideoJob{}, false, fmt.Errorf("%w: unknown summary type %q", ErrValidation, opts.Variant)
	}

	watchID, err := transcript.ExtractVideoID(rawURL)
	if err != nil {
		return store.VideoJob{}, false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	canonical := transcript.CanonicalURL(watchID)
	id := store.JobID(canonical)

	if opts.Force {
		r.store.Delete(id)
	}

	job, created := r.store.GetOrCreate(id, canonical)
	if !created {
		return job, false, nil
	}

	err = r.submit(task{
		kind: "analyze",
		id:   id,
		run:  func(ctx context.Context) { r.processVideo(ctx, id, opts) },
	})
	if err != nil {
		// Nothing will ever pick the job up; fail it now so pollers
		// see a terminal record instead of an eternal "processing".
		if failErr := r.store.Fail(id, err.Error()); failErr != nil {
			r.log.Error("failing unqueued job", "video_id", id, "error", failErr)
		}
		job, _ = r.store.Get(id)
		return job, false, err
	}
	return job, true, nil
}

// processVideo runs the full single-video pipeline: metadata, transcript,
// index, summary, completion, then optional facets. The required steps
// fail the job; the optional ones only log.
func (r *Runner) processVideo(ctx context.Context, id string, opts AnalyzeOptions) {
	log := r.log.With("video_id", id)

	job, err := r.store.Get(id)
	if err != nil {
		log.Warn("job vanished before processing", "error", err)
		return
	}
	watchID, err := transcript.ExtractVideoID(job.URL)
	if err != nil {
		r.failJob(id, fmt.Errorf("parsing stored url: %w", err))
		return
	}

	// Metadata degrades internally; attach whatever came back.
	md := r.source.Metadata(ctx, watchID)
	if err := r.store.SetMetadata(id, store.Metadata{
		Title:        md.Title,
		AuthorName:   md.AuthorName,
		AuthorURL:    md.AuthorURL,
		ThumbnailURL: md.ThumbnailURL,
		Provider:     md.Provider,
		VideoID:      id,
		VideoURL:     job.URL,
	}); err != nil {
		log.Warn("attaching metadata", "error", err)
	}

	var tr transcript.Transcript
	err = r.callWithRetry(ctx, "fetching transcript", func(ctx context.Context) error {
		var err error
		tr, err = r.source.FetchTranscript(ctx, watchID)
		return err
	})
	if err != nil {
		r.failJob(id, err)
		return
	}

	texts := transcript.Split(tr.Text, transcript.DefaultChunkSize, transcript.DefaultChunkOverlap)
	if len(texts) == 0 {
		r.failJob(id, fmt.Errorf("%w: transcript is empty", transcript.ErrUnavailable))
		return
	}
	chunks := make([]store.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = store.Chunk{Seq: i, Text: t}
	}

	var idx store.Searcher
	err = r.callWithRetry(ctx, "building index", func(ctx context.Context) error {
		var err error
		idx, err = r.builder.Build(ctx, id, chunks)
		return err
	})
	if err != nil {
		r.failJob(id, err)
		return
	}

	summary, err := r.generateSummary(ctx, opts.Variant, chunks)
	if err != nil {
		r.failJob(id, err)
		return
	}
	r.store.UpdateAnalysis(id, opts.Variant, func(a *store.AnalysisResult) {
		a.Summary = summary
	})

	if err := r.store.Complete(id, chunks, idx); err != nil {
		log.Error("completing job", "error", err)
		return
	}
	log.Info("video analysis completed",
		"chunks", len(chunks), "language", tr.Language, "summary_type", opts.Variant)

	r.generateFacets(ctx, id, opts, chunks)
}

func (r *Runner) generateSummary(ctx context.Context, variant string, chunks []store.Chunk) (string, error) {
	prompt := analysis.SummaryPrompt(variant, analysis.JoinChunks(chunks, 0))
	var raw string
	err := r.callWithRetry(ctx, "generating summary", func(ctx context.Context) error {
		var err error
		raw, err = r.gen.Generate(ctx, r.cfg.Model, prompt)
		return err
	})
	if err != nil {
		return "", err
	}
	return analysis.CleanSummary(variant, raw), nil
}

// generateFacets fills in the optional analysis facets after the job has
// completed. Each facet is independent: a failure is logged and skipped,
// never propagated, so a stored summary can't be lost to a flaky topics
// call.
func (r *Runner) generateFacets(ctx context.Context, id string, opts AnalyzeOptions, chunks []store.Chunk) {
	log := r.log.With("video_id", id)

	if opts.IncludeTopics {
		if topics, err := r.generateTopics(ctx, chunks); err != nil {
			log.Warn("topic extraction failed", "error", err)
		} else if len(topics) > 0 {
			r.store.UpdateAnalysis(id, opts.Variant, func(a *store.AnalysisResult) {
				a.Topics = topics
			})
		}
	}

	if opts.IncludeQuestions {
		var raw string
		err := r.callWithRetry(ctx, "generating questions", func(ctx context.Context) error {
			var err error
			raw, err = r.gen.Generate(ctx, r.cfg.Model, analysis.QuestionsPrompt(chunks, analysis.DefaultQuestionCount))
			return err
		})
		if err != nil {
			log.Warn("question generation failed", "error", err)
		} else if questions := analysis.ParseList(raw, analysis.DefaultQuestionCount); len(questions) > 0 {
			r.store.UpdateAnalysis(id, opts.Variant, func(a *store.AnalysisResult) {
				a.Questions = questions
			})
		}
	}

	if opts.IncludeSentiment {
		if sentiment, err := r.generateSentiment(ctx, chunks); err != nil {
			log.Warn("sentiment analysis failed", "error", err)
		} else if sentiment != "" {
			r.store.UpdateAnalysis(id, opts.Variant, func(a *store.AnalysisResult) {
				a.Sentiment = sentiment
			})
		}
	}
}

func (r *Runner) generateTopics(ctx context.Context, chunks []store.Chunk) ([]string, error) {
	var raw string
	err := r.callWithRetry(ctx, "extracting topics", func(ctx context.Context) error {
		var err error
		raw, err = r.gen.Generate(ctx, r.cfg.Model, analysis.TopicsPrompt(chunks, analysis.DefaultTopicCount))
		return err
	})
	if err != nil {
		return nil, err
	}
	return analysis.ParseTopics(raw, analysis.MaxTopics), nil
}

func (r *Runner) generateSentiment(ctx context.Context, chunks []store.Chunk) (string, error) {
	var raw string
	err := r.callWithRetry(ctx, "analyzing sentiment", func(ctx context.Context) error {
		var err error
		raw, err = r.gen.Generate(ctx, r.cfg.Model, analysis.SentimentPrompt(chunks))
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (r *Runner) failJob(id string, cause error) {
	r.log.Warn("video analysis failed", "video_id", id, "error", cause)
	if err := r.store.Fail(id, cause.Error()); err != nil {
		r.log.Error("recording job failure", "video_id", id, "error", err)
	}
}
