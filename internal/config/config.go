// Package config loads daemon configuration from a JSON file in the XDG
// config directory, with EDUSCAN_* environment variables taking precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Retrieval RetrievalConfig
	API       APIConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type StorageConfig struct {
	DataDir    string
	UploadsDir string
}

type WorkerConfig struct {
	// PollInterval and ModelTimeout are Go duration strings.
	PollInterval string
	ModelTimeout string
}

type RetrievalConfig struct {
	TopK int
}

type APIConfig struct {
	// Token guards every API route. Generated and persisted on first run
	// when not configured.
	Token string
	// RateLimitPerSecond bounds chat requests; 0 disables the limiter.
	RateLimitPerSecond int
	MaxUploadMB        int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "llama3.1:8b",
			EmbedModel: "embeddinggemma",
		},
		Storage: StorageConfig{
			DataDir:    defaultDataDir(),
			UploadsDir: "", // derived from DataDir when empty
		},
		Worker: WorkerConfig{
			PollInterval: "5s",
			ModelTimeout: "5m",
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		API: APIConfig{
			RateLimitPerSecond: 5,
			MaxUploadMB:        32,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend and applies EDUSCAN_*
// environment overrides. A missing API token is generated and written back
// so restarts keep the same token.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.API.Token == "" {
		token, err := generateToken()
		if err != nil {
			return Config{}, fmt.Errorf("generating api token: %w", err)
		}
		if err := b.SetString("api.token", token); err != nil {
			return Config{}, fmt.Errorf("persisting api token: %w", err)
		}
		cfg.API.Token = token
	}

	return cfg, nil
}

// ResolveUploadsDir returns the configured uploads directory, defaulting to
// DataDir/uploads.
func (c StorageConfig) ResolveUploadsDir() string {
	if c.UploadsDir != "" {
		return c.UploadsDir
	}
	return filepath.Join(c.DataDir, "uploads")
}

// Poll parses the worker poll interval, falling back to 5s on bad input.
func (c WorkerConfig) Poll() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Timeout parses the model call timeout, falling back to 5m on bad input.
func (c WorkerConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.ModelTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
