package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/kalambet/ttyv/internal/store"
)

var _ store.Searcher = (*Handle)(nil)

// keywordClient embeds known texts to fixed axis-aligned vectors so
// search results are predictable.
type keywordClient struct {
	vectors map[string][]float32
}

func (c *keywordClient) Embed(_ context.Context, _ string, text string) ([]float32, error) {
	if v, ok := c.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no fixture vector for %q", text)
}

func testChunks(texts ...string) []store.Chunk {
	chunks := make([]store.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = store.Chunk{Seq: i, Text: text}
	}
	return chunks
}

func TestBuildAndSearch(t *testing.T) {
	client := &keywordClient{vectors: map[string][]float32{
		"goroutines and channels": {1, 0, 0},
		"the sky is blue":         {0, 1, 0},
		"cooking fresh pasta":     {0, 0, 1},
		"concurrency in go":       {0.9, 0.1, 0},
	}}
	s := openTestStore(t)
	b := NewBuilder(NewEmbedder(client, "text-embedding-004"), s)

	handle, err := b.Build(context.Background(), "abc123def456",
		testChunks("goroutines and channels", "the sky is blue", "cooking fresh pasta"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if handle.VideoID() != "abc123def456" {
		t.Errorf("VideoID = %q, want %q", handle.VideoID(), "abc123def456")
	}

	results, err := handle.Search(context.Background(), "concurrency in go", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Text != "goroutines and channels" {
		t.Errorf("top result = %q, want the concurrency chunk", results[0].Text)
	}
	if results[0].Seq != 0 {
		t.Errorf("top result seq = %d, want 0", results[0].Seq)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not sorted: %f < %f", results[0].Score, results[1].Score)
	}
}

func TestBuild_NoChunks(t *testing.T) {
	s := openTestStore(t)
	b := NewBuilder(NewEmbedder(&keywordClient{}, "text-embedding-004"), s)

	if _, err := b.Build(context.Background(), "abc123def456", nil); err == nil {
		t.Fatal("expected error for empty chunk list, got nil")
	}
}

func TestBuild_ReplacesPriorRows(t *testing.T) {
	client := &keywordClient{vectors: map[string][]float32{
		"first":  {1, 0},
		"second": {0, 1},
	}}
	s := openTestStore(t)
	b := NewBuilder(NewEmbedder(client, "text-embedding-004"), s)

	for i := 0; i < 2; i++ {
		if _, err := b.Build(context.Background(), "abc123def456", testChunks("first", "second")); err != nil {
			t.Fatalf("Build %d: %v", i, err)
		}
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count after rebuild = %d, want 2", count)
	}
}

func TestBuild_EmbedError(t *testing.T) {
	client := &keywordClient{vectors: map[string][]float32{"first": {1, 0}}}
	s := openTestStore(t)
	b := NewBuilder(NewEmbedder(client, "text-embedding-004"), s)

	_, err := b.Build(context.Background(), "abc123def456", testChunks("first", "unknown"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// A failed build must not leave partial rows behind.
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count after failed build = %d, want 0", count)
	}
}

func TestSearch_QueryEmbedError(t *testing.T) {
	client := &keywordClient{vectors: map[string][]float32{"first": {1, 0}}}
	s := openTestStore(t)
	b := NewBuilder(NewEmbedder(client, "text-embedding-004"), s)

	handle, err := b.Build(context.Background(), "abc123def456", testChunks("first"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := handle.Search(context.Background(), "unembeddable query", 3); err == nil {
		t.Fatal("expected error, got nil")
	}
}
