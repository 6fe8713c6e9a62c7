// Package chat answers questions about uploaded documents by retrieving
// similar chunks and prompting the chat model with them.
package chat

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/eduzmena/eduscan/internal/ollama"
	"github.com/eduzmena/eduscan/internal/retrieval"
)

const (
	defaultTopK   = 4
	excerptMaxLen = 200
)

// ContextRetriever finds the chunks most similar to a question.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.ContextChunk, error)
}

// ChatClient is the model-side dependency, satisfied by ollama.Client.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

// Source points at the document chunk an answer drew from.
type Source struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Excerpt    string  `json:"excerpt"`
}

// Answer is a grounded model response with its supporting sources.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Responder answers questions over the document index.
type Responder struct {
	retriever        ContextRetriever
	llm              ChatClient
	model            string
	topK             int
	maxContextTokens int
}

// NewResponder creates a Responder. If topK <= 0, it defaults to 4.
func NewResponder(retriever ContextRetriever, llm ChatClient, model string, topK int) *Responder {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Responder{
		retriever:        retriever,
		llm:              llm,
		model:            model,
		topK:             topK,
		maxContextTokens: defaultMaxContextTokens,
	}
}

// Answer retrieves context for the question and asks the chat model.
// With an empty index the model is still asked, so it can say the
// information is not available.
func (r *Responder) Answer(ctx context.Context, question string) (Answer, error) {
	chunks, err := r.retriever.Retrieve(ctx, question, r.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}

	system := systemPrompt
	if section := buildContext(chunks, r.maxContextTokens); section != "" {
		system += "\n\n" + contextPreamble + "\n\n" + section
	}

	text, err := r.llm.Chat(ctx, r.model, []ollama.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("asking model: %w", err)
	}

	return Answer{Text: text, Sources: sourcesFromChunks(chunks)}, nil
}

func sourcesFromChunks(chunks []retrieval.ContextChunk) []Source {
	sources := make([]Source, len(chunks))
	for i, ch := range chunks {
		sources[i] = Source{
			DocumentID: ch.DocumentID,
			ChunkIndex: ch.ChunkIndex,
			Score:      ch.Score,
			Excerpt:    truncate(ch.Text, excerptMaxLen),
		}
	}
	return sources
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
