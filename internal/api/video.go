package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ttyv/internal/analysis"
	"github.com/kalambet/ttyv/internal/runner"
	"github.com/kalambet/ttyv/internal/store"
)

// AnalyzeRequest submits a video for analysis. The nil-able booleans
// default to true; sentiment is opt-in.
type AnalyzeRequest struct {
	URL              string `json:"url"`
	SummaryType      string `json:"summary_type"`
	IncludeTopics    *bool  `json:"include_topics"`
	IncludeQuestions *bool  `json:"include_questions"`
	IncludeSentiment bool   `json:"include_sentiment"`
	Force            bool   `json:"force"`
}

type analyzeResponse struct {
	VideoID  string         `json:"video_id"`
	Status   string         `json:"status"`
	Metadata store.Metadata `json:"metadata"`
	Message  string         `json:"message"`
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
			return
		}

		job, created, err := deps.Runner.Analyze(req.URL, runner.AnalyzeOptions{
			Variant:          req.SummaryType,
			IncludeTopics:    boolOr(req.IncludeTopics, true),
			IncludeQuestions: boolOr(req.IncludeQuestions, true),
			IncludeSentiment: req.IncludeSentiment,
			Force:            req.Force,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := analyzeResponse{VideoID: job.ID, Metadata: job.Metadata}
		if created {
			resp.Status = store.StatusProcessing
			resp.Message = "Video analysis started. Poll /api/v1/status/" + job.ID + " for progress."
		} else {
			resp.Status = "already_processed"
			resp.Message = "Video already known; current status: " + job.Status + "."
		}
		writeJSON(w, resp)
	}
}

type statusResponse struct {
	VideoID     string         `json:"video_id"`
	Status      string         `json:"status"`
	Metadata    store.Metadata `json:"metadata"`
	Error       string         `json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

func handleStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "videoID")

		job, err := deps.Store.Get(id)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "video not found")
			return
		}

		resp := statusResponse{
			VideoID:    job.ID,
			Status:     job.Status,
			Metadata:   job.Metadata,
			Error:      job.Error,
			ChunkCount: job.ChunkCount(),
			CreatedAt:  job.CreatedAt,
		}
		if !job.CompletedAt.IsZero() {
			t := job.CompletedAt
			resp.CompletedAt = &t
		}
		writeJSON(w, resp)
	}
}

func handleAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "videoID")
		variant := r.URL.Query().Get("summary_type")
		if variant == "" {
			variant = analysis.VariantComprehensive
		}
		if !analysis.ValidVariant(variant) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown summary type %q", variant)
			return
		}

		job, err := deps.Store.Get(id)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "video not found")
			return
		}
		if job.Status != store.StatusCompleted {
			// Both in-flight and failed jobs read as "not ready" here; the
			// status endpoint carries the failure detail.
			httpError(w, http.StatusAccepted, "not_ready", "analysis not ready; video status is %s", job.Status)
			return
		}

		a, err := deps.Store.GetAnalysis(id, variant)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "no %s analysis stored for this video", variant)
			return
		}
		writeJSON(w, a)
	}
}

type videoSummary struct {
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func handleListVideos(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := deps.Store.List()

		videos := make([]videoSummary, len(jobs))
		for i, j := range jobs {
			videos[i] = videoSummary{
				VideoID:   j.ID,
				Title:     j.Metadata.Title,
				Channel:   j.Metadata.AuthorName,
				URL:       j.URL,
				Status:    j.Status,
				CreatedAt: j.CreatedAt,
			}
		}
		writeJSON(w, map[string]any{
			"videos": videos,
			"total":  len(videos),
		})
	}
}

func handleDeleteVideo(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "videoID")

		if !deps.Store.Delete(id) {
			httpError(w, http.StatusNotFound, "not_found", "video not found")
			return
		}
		writeJSON(w, map[string]string{
			"status":   "deleted",
			"video_id": id,
		})
	}
}

func handleClearCache(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := deps.Store.Clear()

		writeJSON(w, map[string]any{
			"status":     "cleared",
			"jobs":       stats.Jobs,
			"analyses":   stats.Analyses,
			"sessions":   stats.Sessions,
			"composites": stats.Composites,
		})
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
