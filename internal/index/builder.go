package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/ttyv/internal/store"
)

// Builder embeds transcript chunks and persists them as a searchable
// per-video index.
type Builder struct {
	embedder *Embedder
	store    *Store
}

// NewBuilder creates a Builder over the given embedder and vector store.
func NewBuilder(embedder *Embedder, store *Store) *Builder {
	return &Builder{embedder: embedder, store: store}
}

// Build embeds every chunk and stores the vectors scoped to videoID,
// replacing any rows a previous run left behind. The returned Handle
// answers similarity queries against exactly this video.
func (b *Builder) Build(ctx context.Context, videoID string, chunks []store.Chunk) (*Handle, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}

	// A re-analysis of the same video must not stack two generations of rows.
	if _, err := b.store.DeleteVideo(videoID); err != nil {
		return nil, err
	}
	if err := b.store.InsertChunks(ctx, videoID, texts, vectors); err != nil {
		return nil, err
	}

	return &Handle{videoID: videoID, embedder: b.embedder, store: b.store}, nil
}

// Handle is a live search handle over one video's indexed chunks.
// It satisfies store.Searcher.
type Handle struct {
	videoID  string
	embedder *Embedder
	store    *Store
}

// VideoID returns the video this handle searches.
func (h *Handle) VideoID() string {
	return h.videoID
}

// Search embeds the query and returns the k most similar transcript
// chunks for this video, best first.
func (h *Handle) Search(ctx context.Context, query string, k int) ([]store.ScoredChunk, error) {
	vector, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := h.store.Search(ctx, h.videoID, vector, k)
	if err != nil {
		return nil, err
	}

	scored := make([]store.ScoredChunk, len(matches))
	for i, m := range matches {
		scored[i] = store.ScoredChunk{Seq: m.Seq, Text: m.Content, Score: m.Score}
	}
	return scored, nil
}
