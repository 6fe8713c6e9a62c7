package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/eduzmena/eduscan/internal/analysis"
	"github.com/eduzmena/eduscan/internal/api"
	"github.com/eduzmena/eduscan/internal/chat"
	"github.com/eduzmena/eduscan/internal/config"
	"github.com/eduzmena/eduscan/internal/export"
	"github.com/eduzmena/eduscan/internal/extract"
	"github.com/eduzmena/eduscan/internal/metrics"
	"github.com/eduzmena/eduscan/internal/ollama"
	"github.com/eduzmena/eduscan/internal/retrieval"
	"github.com/eduzmena/eduscan/internal/storage"
	"github.com/eduzmena/eduscan/internal/worker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the eduscan server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running eduscan server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show eduscan system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "eduscan.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// ensureOllamaReady verifies the Ollama daemon is reachable and that both
// configured models exist locally, pulling any that are missing.
func ensureOllamaReady(ctx context.Context, client *ollama.Client, models ...string) error {
	if !client.IsRunning(ctx) {
		return fmt.Errorf("ollama is not reachable; start it with `ollama serve`")
	}
	for _, model := range models {
		if client.HasModel(ctx, model) {
			continue
		}
		printStep("Pulling model %s...", model)
		var lastStatus string
		err := client.PullModel(ctx, model, func(p ollama.PullProgress) {
			if p.Status != lastStatus {
				lastStatus = p.Status
				fmt.Fprintf(os.Stderr, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
	}
	return nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "eduscan version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Check whether a server is already running before claiming the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("eduscan is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("eduscan is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if err := ensureOllamaReady(ctx, ollamaClient, cfg.Ollama.ChatModel, cfg.Ollama.EmbedModel); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	uploadsDir := cfg.Storage.ResolveUploadsDir()
	if err := os.MkdirAll(uploadsDir, 0o700); err != nil {
		return fmt.Errorf("preparing uploads dir: %w", err)
	}

	// Analysis and retrieval wiring.
	extractor := extract.New()
	analyzer := analysis.NewAnalyzer(uploadsDir, extractor, ollamaClient, cfg.Ollama.ChatModel, cfg.Worker.Timeout())
	embedder := retrieval.NewEmbedder(ollamaClient, cfg.Ollama.EmbedModel)
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	indexer := retrieval.NewIndexer(embedder, vectorStore)
	retriever := retrieval.NewRetriever(embedder, vectorStore)
	responder := chat.NewResponder(retriever, ollamaClient, cfg.Ollama.ChatModel, cfg.Retrieval.TopK)
	exporter := export.NewService(store, slog.Default())

	collector := metrics.Collector{}

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:              store,
		UploadsDir:         uploadsDir,
		Token:              cfg.API.Token,
		Responder:          responder,
		Exporter:           exporter,
		Vectors:            vectorStore,
		Ollama:             ollamaClient,
		Metrics:            collector,
		MaxUploadBytes:     int64(cfg.API.MaxUploadMB) << 20,
		RateLimitPerSecond: cfg.API.RateLimitPerSecond,
	})

	topRouter := chi.NewRouter()
	topRouter.Handle("/metrics", metrics.Handler())
	topRouter.Mount("/", appHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	// Analysis worker.
	w := worker.NewWorker(store, analyzer, indexer, cfg.Worker.Poll())
	w.SetMetrics(collector)
	go w.Run(ctx)

	// MCP server over stdio.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     store,
		Retriever: retriever,
		Responder: responder,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "eduscan listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("eduscan is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop eduscan (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to eduscan (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}

	printStatus("Chat model", "%s", cfg.Ollama.ChatModel)
	printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)

	// Document counts if the server is up.
	if resp != nil && resp.StatusCode == 200 {
		statusResp, err := apiGet(client, serverURL+"/status", cfg.API.Token)
		if err == nil {
			var body struct {
				Documents map[string]int `json:"documents"`
			}
			if decodeJSON(statusResp, &body) == nil {
				for _, s := range []string{"pending", "processing", "done", "failed"} {
					printStatus("Documents "+s, "%d", body.Documents[s])
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
