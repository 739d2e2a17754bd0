package runner

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/ttyv/internal/analysis"
	"github.com/kalambet/ttyv/internal/store"
)

const (
	snippetLength = 200
	maxSources    = 3
)

// ChatRequest is one question about an analyzed video. VideoID may be
// omitted when SessionID identifies an earlier conversation.
type ChatRequest struct {
	SessionID          string
	VideoID            string
	Message            string
	UseExternalSources bool
}

// ChatReply carries the generated answer plus the transcript snippets
// that grounded it.
type ChatReply struct {
	SessionID string
	VideoID   string
	Response  string
	Sources   []string
	Timestamp time.Time
}

// Chat answers a question against a completed video's transcript index
// and records the exchange in its session. Questions about unknown
// videos return store.ErrNotFound; questions about jobs that have not
// completed (still processing, or failed) return store.ErrNotReady.
func (r *Runner) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatReply{}, fmt.Errorf("%w: message is empty", ErrValidation)
	}

	videoID := req.VideoID
	if req.SessionID != "" {
		if sess, err := r.store.GetSession(req.SessionID); err == nil {
			videoID = sess.VideoID
		} else if i := strings.Index(req.SessionID, "_"); i > 0 {
			// Session ids embed the video id before the first underscore;
			// the record itself only appears after the first exchange.
			videoID = req.SessionID[:i]
		}
	}
	if videoID == "" {
		return ChatReply{}, fmt.Errorf("%w: video_id or session_id is required", ErrValidation)
	}

	job, err := r.store.Get(videoID)
	if err != nil {
		return ChatReply{}, fmt.Errorf("video %s: %w", videoID, err)
	}
	if job.Status != store.StatusCompleted || job.Index == nil {
		return ChatReply{}, fmt.Errorf("video %s is %s: %w", videoID, job.Status, store.ErrNotReady)
	}

	var hits []store.ScoredChunk
	err = r.callWithRetry(ctx, "searching transcript", func(ctx context.Context) error {
		var err error
		hits, err = job.Index.Search(ctx, message, r.cfg.TopK)
		return err
	})
	if err != nil {
		return ChatReply{}, err
	}

	// The most relevant chunk becomes the model's context; the top few
	// back the answer as quotable snippets.
	var contextText string
	if len(hits) > 0 {
		contextText = hits[0].Text
	}
	sources := make([]string, 0, maxSources)
	for _, h := range hits {
		if len(sources) == maxSources {
			break
		}
		sources = append(sources, snippet(h.Text, snippetLength))
	}

	var answer string
	err = r.callWithRetry(ctx, "generating answer", func(ctx context.Context) error {
		var err error
		answer, err = r.gen.Generate(ctx, r.cfg.Model, analysis.ChatPrompt(message, contextText, req.UseExternalSources))
		return err
	})
	if err != nil {
		return ChatReply{}, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = videoID + "_" + uuid.NewString()
	}
	now := time.Now().UTC()
	r.store.AppendExchange(sessionID, videoID,
		store.Turn{Role: "user", Text: message, Timestamp: now},
		store.Turn{Role: "assistant", Text: answer, Sources: sources, Timestamp: now},
	)

	return ChatReply{
		SessionID: sessionID,
		VideoID:   videoID,
		Response:  answer,
		Sources:   sources,
		Timestamp: now,
	}, nil
}

// snippet truncates s to at most n bytes without splitting a rune,
// marking the cut with an ellipsis.
func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
