package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ttyv/internal/runner"
	"github.com/kalambet/ttyv/internal/store"
)

// ChatMessage asks one question about an analyzed video. Either VideoID
// or SessionID must identify the video; SessionID alone continues an
// earlier conversation.
type ChatMessage struct {
	SessionID          string `json:"session_id"`
	VideoID            string `json:"video_id"`
	Message            string `json:"message"`
	UseExternalSources bool   `json:"use_external_sources"`
}

type chatResponse struct {
	SessionID string    `json:"session_id"`
	VideoID   string    `json:"video_id"`
	Response  string    `json:"response"`
	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatMessage
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		reply, err := deps.Runner.Chat(r.Context(), runner.ChatRequest{
			SessionID:          req.SessionID,
			VideoID:            req.VideoID,
			Message:            req.Message,
			UseExternalSources: req.UseExternalSources,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		sources := reply.Sources
		if sources == nil {
			sources = []string{}
		}
		writeJSON(w, chatResponse{
			SessionID: reply.SessionID,
			VideoID:   reply.VideoID,
			Response:  reply.Response,
			Sources:   sources,
			Timestamp: reply.Timestamp,
		})
	}
}

func handleChatHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		// Unknown sessions read as empty history, not 404: a client may
		// ask before its first exchange has landed.
		turns := deps.Store.History(sessionID)
		if turns == nil {
			turns = []store.Turn{}
		}
		writeJSON(w, map[string]any{
			"session_id": sessionID,
			"messages":   turns,
		})
	}
}
