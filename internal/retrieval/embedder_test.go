package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockEmbedClient struct {
	embedFn func(ctx context.Context, model, text string) ([]float32, error)
}

func (m *mockEmbedClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return m.embedFn(ctx, model, text)
}

func TestEmbed_PassesModel(t *testing.T) {
	e := NewEmbedder(&mockEmbedClient{embedFn: func(_ context.Context, model, text string) ([]float32, error) {
		if model != "nomic-embed-text" {
			t.Errorf("model = %q", model)
		}
		if text != "dotaz" {
			t.Errorf("text = %q", text)
		}
		return []float32{0.1, 0.2}, nil
	}}, "nomic-embed-text")

	vec, err := e.Embed(context.Background(), "dotaz")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := NewEmbedder(&mockEmbedClient{embedFn: func(_ context.Context, _, text string) ([]float32, error) {
		// Encode the input length so outputs are distinguishable.
		return []float32{float32(len(text))}, nil
	}}, "m")

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	got, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(got), len(texts))
	}
	for i, vec := range got {
		if int(vec[0]) != len(texts[i]) {
			t.Errorf("vector %d = %v, want length %d", i, vec, len(texts[i]))
		}
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	e := NewEmbedder(&mockEmbedClient{embedFn: func(context.Context, string, string) ([]float32, error) {
		t.Fatal("client must not be called for empty input")
		return nil, nil
	}}, "m")

	got, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestEmbedBatch_ErrorPropagates(t *testing.T) {
	wantErr := errors.New("model offline")
	e := NewEmbedder(&mockEmbedClient{embedFn: func(_ context.Context, _, text string) ([]float32, error) {
		if text == "bad" {
			return nil, wantErr
		}
		return []float32{1}, nil
	}}, "m")

	_, err := e.EmbedBatch(context.Background(), []string{"ok", "bad", "ok"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped model error", err)
	}
	if !strings.Contains(err.Error(), "embedding text 1") {
		t.Errorf("err = %v, want index in message", err)
	}
}
