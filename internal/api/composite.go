package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ttyv/internal/runner"
	"github.com/kalambet/ttyv/internal/store"
)

// CompareRequest submits a batch of videos for comparative analysis.
type CompareRequest struct {
	VideoURLs         []string `json:"video_urls"`
	ComparisonAspects []string `json:"comparison_aspects"`
	AnalysisDepth     string   `json:"analysis_depth"`
}

// TrendRequest submits a batch of videos for trend analysis.
type TrendRequest struct {
	VideoURLs  []string `json:"video_urls"`
	TimePeriod string   `json:"time_period"`
	Grouping   string   `json:"grouping"`
}

type progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func handleCompare(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CompareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		comp, created, err := deps.Runner.Compare(req.VideoURLs, runner.CompareOptions{
			Aspects: req.ComparisonAspects,
			Depth:   req.AnalysisDepth,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		msg := "Comparison started. Poll /api/v1/compare/" + comp.ID + " for results."
		if !created {
			msg = "Comparison already known; current status: " + comp.Status + "."
		}
		writeJSON(w, map[string]any{
			"comparison_id": comp.ID,
			"status":        comp.Status,
			"videos_count":  len(comp.URLs),
			"message":       msg,
		})
	}
}

func handleComparisonResults(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "comparisonID")

		comp, err := deps.Store.GetComposite(id)
		if err != nil || comp.Kind != store.KindComparison {
			httpError(w, http.StatusNotFound, "not_found", "comparison not found")
			return
		}

		resp := map[string]any{
			"comparison_id": comp.ID,
			"status":        comp.Status,
			"progress": progress{
				Completed: comp.ProgressCount,
				Total:     len(comp.MemberJobIDs),
			},
			"created_at": comp.CreatedAt,
		}
		if comp.Error != "" {
			resp["error"] = comp.Error
		}
		if comp.Comparison != nil {
			resp["comparison_results"] = comp.Comparison
		}
		if !comp.CompletedAt.IsZero() {
			resp["completed_at"] = comp.CompletedAt.Format(time.RFC3339)
		}
		writeJSON(w, resp)
	}
}

func handleTrends(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req TrendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		comp, created, err := deps.Runner.Trends(req.VideoURLs, runner.TrendOptions{
			Timeframe: req.TimePeriod,
			GroupBy:   req.Grouping,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		msg := "Trend analysis started. Poll /api/v1/trends/" + comp.ID + " for results."
		if !created {
			msg = "Trend analysis already known; current status: " + comp.Status + "."
		}
		writeJSON(w, map[string]any{
			"analysis_id":  comp.ID,
			"status":       comp.Status,
			"videos_count": len(comp.URLs),
			"message":      msg,
		})
	}
}

func handleTrendResults(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "analysisID")

		comp, err := deps.Store.GetComposite(id)
		if err != nil || comp.Kind != store.KindTrend {
			httpError(w, http.StatusNotFound, "not_found", "trend analysis not found")
			return
		}

		resp := map[string]any{
			"analysis_id": comp.ID,
			"status":      comp.Status,
			"progress": progress{
				Completed: comp.ProgressCount,
				Total:     len(comp.MemberJobIDs),
			},
			"created_at": comp.CreatedAt,
		}
		if comp.Error != "" {
			resp["error"] = comp.Error
		}
		if comp.Trends != nil {
			resp["trends"] = comp.Trends
		}
		if !comp.CompletedAt.IsZero() {
			resp["completed_at"] = comp.CompletedAt.Format(time.RFC3339)
		}
		writeJSON(w, resp)
	}
}
