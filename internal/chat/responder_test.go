package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eduzmena/eduscan/internal/ollama"
	"github.com/eduzmena/eduscan/internal/retrieval"
)

type mockRetriever struct {
	retrieveFn func(ctx context.Context, query string, topK int) ([]retrieval.ContextChunk, error)
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, topK int) ([]retrieval.ContextChunk, error) {
	return m.retrieveFn(ctx, query, topK)
}

type mockChat struct {
	chatFn func(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

func (m *mockChat) Chat(ctx context.Context, model string, messages []ollama.Message) (string, error) {
	return m.chatFn(ctx, model, messages)
}

func TestAnswer_InjectsContextAndReturnsSources(t *testing.T) {
	retriever := &mockRetriever{retrieveFn: func(_ context.Context, query string, topK int) ([]retrieval.ContextChunk, error) {
		if query != "Kolik dětí se zúčastnilo?" {
			t.Errorf("query = %q", query)
		}
		if topK != 4 {
			t.Errorf("topK = %d", topK)
		}
		return []retrieval.ContextChunk{
			{ID: "v1", DocumentID: "doc-1", ChunkIndex: 0, Text: "Zúčastnilo se 12 dětí.", Score: 0.91},
		}, nil
	}}

	var gotMessages []ollama.Message
	llm := &mockChat{chatFn: func(_ context.Context, model string, messages []ollama.Message) (string, error) {
		if model != "llama3.1:8b" {
			t.Errorf("model = %q", model)
		}
		gotMessages = messages
		return "Zúčastnilo se 12 dětí.", nil
	}}

	r := NewResponder(retriever, llm, "llama3.1:8b", 0)
	ans, err := r.Answer(context.Background(), "Kolik dětí se zúčastnilo?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if ans.Text != "Zúčastnilo se 12 dětí." {
		t.Errorf("Text = %q", ans.Text)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(ans.Sources))
	}
	src := ans.Sources[0]
	if src.DocumentID != "doc-1" || src.ChunkIndex != 0 || src.Score != 0.91 {
		t.Errorf("source = %+v", src)
	}
	if src.Excerpt != "Zúčastnilo se 12 dětí." {
		t.Errorf("excerpt = %q", src.Excerpt)
	}

	if len(gotMessages) != 2 {
		t.Fatalf("got %d messages, want system+user", len(gotMessages))
	}
	if gotMessages[0].Role != "system" || gotMessages[1].Role != "user" {
		t.Errorf("roles = [%s %s]", gotMessages[0].Role, gotMessages[1].Role)
	}
	if !strings.Contains(gotMessages[0].Content, contextPreamble) {
		t.Error("system message missing context preamble")
	}
	if !strings.Contains(gotMessages[0].Content, "[Retrieved Context]") {
		t.Error("system message missing context section")
	}
	if !strings.Contains(gotMessages[0].Content, "Zúčastnilo se 12 dětí.") {
		t.Error("system message missing retrieved chunk text")
	}
	if gotMessages[1].Content != "Kolik dětí se zúčastnilo?" {
		t.Errorf("user message = %q", gotMessages[1].Content)
	}
}

func TestAnswer_EmptyIndexStillAsksModel(t *testing.T) {
	retriever := &mockRetriever{retrieveFn: func(context.Context, string, int) ([]retrieval.ContextChunk, error) {
		return nil, nil
	}}
	llm := &mockChat{chatFn: func(_ context.Context, _ string, messages []ollama.Message) (string, error) {
		if strings.Contains(messages[0].Content, "[Retrieved Context]") {
			t.Error("system message must not include an empty context section")
		}
		if strings.Contains(messages[0].Content, "provided below") {
			t.Error("system message must not promise excerpts that do not follow")
		}
		return "Informace není v lokálních dokumentech k dispozici.", nil
	}}

	r := NewResponder(retriever, llm, "m", 2)
	ans, err := r.Answer(context.Background(), "Co je v zápisu?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %v, want none", ans.Sources)
	}
}

func TestAnswer_RetrieverErrorPropagates(t *testing.T) {
	wantErr := errors.New("store closed")
	retriever := &mockRetriever{retrieveFn: func(context.Context, string, int) ([]retrieval.ContextChunk, error) {
		return nil, wantErr
	}}
	llm := &mockChat{chatFn: func(context.Context, string, []ollama.Message) (string, error) {
		t.Fatal("model must not run when retrieval fails")
		return "", nil
	}}

	r := NewResponder(retriever, llm, "m", 2)
	if _, err := r.Answer(context.Background(), "q"); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want retrieval error", err)
	}
}

func TestAnswer_LongExcerptTruncated(t *testing.T) {
	long := strings.Repeat("ě", 300)
	retriever := &mockRetriever{retrieveFn: func(context.Context, string, int) ([]retrieval.ContextChunk, error) {
		return []retrieval.ContextChunk{{DocumentID: "d", Text: long, Score: 1}}, nil
	}}
	llm := &mockChat{chatFn: func(context.Context, string, []ollama.Message) (string, error) {
		return "ok", nil
	}}

	r := NewResponder(retriever, llm, "m", 1)
	ans, err := r.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if n := len([]rune(ans.Sources[0].Excerpt)); n != excerptMaxLen+1 {
		t.Errorf("excerpt length = %d runes, want %d", n, excerptMaxLen+1)
	}
}

func TestBuildContext_BudgetDropsLowScores(t *testing.T) {
	big := strings.Repeat("slovo ", 100)
	chunks := []retrieval.ContextChunk{
		{DocumentID: "low", Text: big, Score: 0.2},
		{DocumentID: "high", Text: big, Score: 0.9},
	}

	// Budget fits the header plus one chunk; the higher score wins.
	got := buildContext(chunks, estimateTokens("[Retrieved Context]\n")+estimateTokens(formatChunk(chunks[1]))+1)
	if !strings.Contains(got, "high") {
		t.Error("high-scoring chunk missing")
	}
	if strings.Contains(got, "(Score: 0.20") {
		t.Error("low-scoring chunk should have been dropped")
	}
}

func TestBuildContext_Empty(t *testing.T) {
	if got := buildContext(nil, 100); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
