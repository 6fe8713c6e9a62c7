// Package retrieval indexes document text into embedding chunks and finds
// the chunks most similar to a query.
package retrieval

import (
	"context"
	"time"
)

// VectorStore is the interface for chunk storage and similarity search
// backends. The default implementation uses SQLite with brute-force cosine
// similarity, which is comfortable up to roughly 100K chunks.
type VectorStore interface {
	// Insert adds chunk records.
	Insert(ctx context.Context, records []Record) error

	// Search returns the top-K records most similar to the query vector.
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredRecord, error)

	// DeleteByDocument removes every chunk belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// Record is one indexed chunk of a document.
type Record struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a cosine similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
