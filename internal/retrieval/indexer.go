package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Indexer chunks document text, embeds each chunk, and writes the results
// to the vector store.
type Indexer struct {
	embedder *Embedder
	store    VectorStore

	chunkSize    int
	chunkOverlap int
}

// NewIndexer creates an Indexer with the default chunking parameters.
func NewIndexer(embedder *Embedder, store VectorStore) *Indexer {
	return &Indexer{
		embedder:     embedder,
		store:        store,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
}

// IndexDocument replaces the stored chunks of a document with freshly
// embedded ones. Re-indexing the same document is safe; blank text simply
// clears the index. Returns the number of chunks written.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID, text string) (int, error) {
	if err := ix.store.DeleteByDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("clearing old chunks: %w", err)
	}

	chunks := Chunk(text, ix.chunkSize, ix.chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	records := make([]Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = Record{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkIndex: i,
			Text:       chunk,
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}

	if err := ix.store.Insert(ctx, records); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	return len(records), nil
}
