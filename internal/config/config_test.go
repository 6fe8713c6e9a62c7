package config

import (
	"sort"
	"strings"
	"testing"
	"time"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	data map[string]any
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (b *memBackend) SetString(key, val string) error {
	b.data[key] = val
	return nil
}

func (b *memBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return nil
}

func (b *memBackend) Delete(key string) error {
	delete(b.data, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.ChatModel != "llama3.1:8b" {
		t.Errorf("Ollama.ChatModel = %q", cfg.Ollama.ChatModel)
	}
	if cfg.Ollama.EmbedModel != "embeddinggemma" {
		t.Errorf("Ollama.EmbedModel = %q", cfg.Ollama.EmbedModel)
	}
	if cfg.Worker.Poll() != 5*time.Second {
		t.Errorf("Worker.Poll() = %v, want 5s", cfg.Worker.Poll())
	}
	if cfg.Worker.Timeout() != 5*time.Minute {
		t.Errorf("Worker.Timeout() = %v, want 5m", cfg.Worker.Timeout())
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("Retrieval.TopK = %d, want 4", cfg.Retrieval.TopK)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestBackendValuesApplied(t *testing.T) {
	b := newMemBackend()
	b.data["server.port"] = 9999
	b.data["ollama.chat_model"] = "mistral-nemo"
	b.data["worker.poll_interval"] = "30s"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Ollama.ChatModel != "mistral-nemo" {
		t.Errorf("Ollama.ChatModel = %q", cfg.Ollama.ChatModel)
	}
	if cfg.Worker.Poll() != 30*time.Second {
		t.Errorf("Worker.Poll() = %v, want 30s", cfg.Worker.Poll())
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newMemBackend()
	b.data["ollama.base_url"] = "http://file:11434"

	t.Setenv("EDUSCAN_OLLAMA_BASE_URL", "http://env:11434")
	t.Setenv("EDUSCAN_SERVER_PORT", "7070")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Ollama.BaseURL != "http://env:11434" {
		t.Errorf("Ollama.BaseURL = %q, want env value", cfg.Ollama.BaseURL)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
}

func TestTokenGeneratedAndPersisted(t *testing.T) {
	b := newMemBackend()

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.API.Token == "" {
		t.Fatal("API.Token should be generated")
	}
	if len(cfg.API.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(cfg.API.Token))
	}

	// Persisted token is reused on the next load.
	cfg2, err := loadWith(b)
	if err != nil {
		t.Fatalf("second loadWith: %v", err)
	}
	if cfg2.API.Token != cfg.API.Token {
		t.Error("token changed between loads")
	}
}

func TestTokenFromEnvNotPersisted(t *testing.T) {
	b := newMemBackend()
	t.Setenv("EDUSCAN_API_TOKEN", "env-token")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("API.Token = %q, want env value", cfg.API.Token)
	}
	if _, ok := b.data["api.token"]; ok {
		t.Error("env token must not be written to the backend")
	}
}

func TestWorkerDurationFallbacks(t *testing.T) {
	w := WorkerConfig{PollInterval: "garbage", ModelTimeout: "-3s"}
	if w.Poll() != 5*time.Second {
		t.Errorf("Poll() = %v, want fallback 5s", w.Poll())
	}
	if w.Timeout() != 5*time.Minute {
		t.Errorf("Timeout() = %v, want fallback 5m", w.Timeout())
	}
}

func TestResolveUploadsDir(t *testing.T) {
	c := StorageConfig{DataDir: "/var/lib/eduscan"}
	if got := c.ResolveUploadsDir(); got != "/var/lib/eduscan/uploads" {
		t.Errorf("ResolveUploadsDir() = %q", got)
	}

	c.UploadsDir = "/srv/uploads"
	if got := c.ResolveUploadsDir(); got != "/srv/uploads" {
		t.Errorf("ResolveUploadsDir() = %q", got)
	}
}

func TestSetKeyRejectsUnknownAndSecret(t *testing.T) {
	err := SetKey("nonsense.key", "1")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "valid keys:") {
		t.Errorf("unknown-key error should list valid keys, got %q", err)
	}
	if err := SetKey("api.token", "x"); err == nil {
		t.Error("expected error for secret key")
	}
}

func TestKeysSorted(t *testing.T) {
	if keys := ValidKeys(); !sort.StringsAreSorted(keys) {
		t.Errorf("ValidKeys not sorted: %v", keys)
	}
	infos := ShowAll(defaults())
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Key > infos[i].Key {
			t.Errorf("ShowAll not sorted: %q before %q", infos[i-1].Key, infos[i].Key)
		}
	}
}

func TestShowAllSkipsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.API.Token = "secret-value"

	for _, info := range ShowAll(cfg) {
		if info.Key == "api.token" {
			t.Error("ShowAll must not include api.token")
		}
		if info.Value == "secret-value" {
			t.Errorf("secret leaked under key %s", info.Key)
		}
	}
}
