package retrieval

import (
	"context"
	"strings"
	"testing"
)

func TestIndexDocument_WritesSequentialChunks(t *testing.T) {
	store := &mockVectorStore{}
	embedder := NewEmbedder(&mockEmbedClient{embedFn: func(_ context.Context, _, text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	}}, "m")

	ix := NewIndexer(embedder, store)
	ix.chunkSize = 30
	ix.chunkOverlap = 0

	text := strings.Repeat("zápis ze schůzky ", 10)
	n, err := ix.IndexDocument(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if n < 2 {
		t.Fatalf("indexed %d chunks, want several", n)
	}
	if len(store.inserted) != n {
		t.Fatalf("store holds %d records, want %d", len(store.inserted), n)
	}

	for i, r := range store.inserted {
		if r.DocumentID != "doc-1" {
			t.Errorf("record %d DocumentID = %q", i, r.DocumentID)
		}
		if r.ChunkIndex != i {
			t.Errorf("record %d ChunkIndex = %d", i, r.ChunkIndex)
		}
		if r.ID == "" {
			t.Errorf("record %d has empty ID", i)
		}
		if len(r.Embedding) == 0 {
			t.Errorf("record %d has no embedding", i)
		}
	}

	// The old chunks must be cleared before the new ones land.
	if len(store.deletedBy) != 1 || store.deletedBy[0] != "doc-1" {
		t.Errorf("deletedBy = %v", store.deletedBy)
	}
}

func TestIndexDocument_BlankTextClearsIndex(t *testing.T) {
	store := &mockVectorStore{}
	embedder := NewEmbedder(&mockEmbedClient{embedFn: func(context.Context, string, string) ([]float32, error) {
		t.Fatal("embedding must not run for blank text")
		return nil, nil
	}}, "m")

	ix := NewIndexer(embedder, store)
	n, err := ix.IndexDocument(context.Background(), "doc-2", "   ")
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
	if len(store.deletedBy) != 1 {
		t.Errorf("deletedBy = %v, want old chunks cleared", store.deletedBy)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted = %d records, want none", len(store.inserted))
	}
}
