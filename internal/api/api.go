// Package api exposes the video-analysis service over REST (chi) and
// MCP. Handlers translate between HTTP and the runner/store layers; the
// error taxonomy maps onto status codes in writeDomainError.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ttyv/internal/gemini"
	"github.com/kalambet/ttyv/internal/runner"
	"github.com/kalambet/ttyv/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AppDeps holds everything the handlers need.
type AppDeps struct {
	Store   *store.Store
	Runner  *runner.Runner
	Token   string // optional; guards the cache-management routes when set
	Version string
	// GeminiConfigured reports whether a generation API key is present;
	// surfaced on /health so operators can spot a misconfigured deploy.
	GeminiConfigured bool
}

// NewHandler builds the REST router.
func NewHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", handleAnalyze(deps))
		r.Get("/status/{videoID}", handleStatus(deps))
		r.Get("/analysis/{videoID}", handleAnalysis(deps))
		r.Post("/chat", handleChat(deps))
		r.Get("/chat/history/{sessionID}", handleChatHistory(deps))
		r.Get("/videos", handleListVideos(deps))
		r.Post("/compare", handleCompare(deps))
		r.Get("/compare/{comparisonID}", handleComparisonResults(deps))
		r.Post("/trends", handleTrends(deps))
		r.Get("/trends/{analysisID}", handleTrendResults(deps))

		r.Group(func(r chi.Router) {
			if deps.Token != "" {
				r.Use(BearerAuth(deps.Token))
			}
			r.Delete("/cache/{videoID}", handleDeleteVideo(deps))
			r.Delete("/cache", handleClearCache(deps))
		})
	})

	return r
}

func handleRoot(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":        "ttyv",
			"description": "YouTube video analysis service: summaries, chat, comparisons, trends",
			"version":     deps.Version,
			"endpoints": map[string]string{
				"health":  "/health",
				"analyze": "/api/v1/analyze",
				"chat":    "/api/v1/chat",
				"compare": "/api/v1/compare",
				"trends":  "/api/v1/trends",
			},
		})
	}
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status":            "healthy",
			"cache_size":        deps.Store.Len(),
			"active_sessions":   deps.Store.SessionCount(),
			"gemini_configured": deps.GeminiConfigured,
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeDomainError maps the runner/store error taxonomy onto HTTP. 202
// ("keep polling") rides the same body shape as real errors; clients
// already branch on status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrValidation):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, store.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, store.ErrNotReady):
		httpError(w, http.StatusAccepted, "not_ready", "%v", err)
	case errors.Is(err, gemini.ErrQuotaExceeded):
		httpError(w, http.StatusTooManyRequests, "rate_limit_error", "%v", err)
	case errors.Is(err, runner.ErrQueueFull):
		httpError(w, http.StatusServiceUnavailable, "overloaded_error", "%v", err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	}
}
