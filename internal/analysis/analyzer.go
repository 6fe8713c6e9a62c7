package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrSourceNotFound is returned when the backing file for a document is
// missing from the uploads directory. Fatal to the attempt, retryable later.
var ErrSourceNotFound = errors.New("source file not found")

// defaultModelTimeout is the hard ceiling on a single model call. There is no
// cancellation for an in-flight analysis beyond this bound.
const defaultModelTimeout = 5 * time.Minute

// TextExtractor converts a stored file into plain UTF-8 text.
type TextExtractor interface {
	Extract(path, filename string) (string, error)
}

// ModelClient asks the language model for a JSON answer.
type ModelClient interface {
	AskJSON(ctx context.Context, model, prompt string) (any, error)
}

// Request identifies the document to analyze. When OverrideText is non-nil
// (e.g. a pre-computed transcript for non-textual media) it is used verbatim
// and the backing file is never touched.
type Request struct {
	StorageID    string
	Filename     string
	OverrideText *string
}

// Report is everything one analysis run produced. The raw model response is
// preserved for audit regardless of classification outcome.
type Report struct {
	Text        string
	Stats       TextStats
	RawResponse json.RawMessage
	Result      Result
}

// Analyzer resolves source text, prompts the model, and classifies the
// response. Persistence is the caller's responsibility.
type Analyzer struct {
	uploadsDir string
	extractor  TextExtractor
	llm        ModelClient
	model      string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewAnalyzer creates an Analyzer reading backing files from uploadsDir and
// prompting the given model. If timeout <= 0 the default (5m) applies.
func NewAnalyzer(uploadsDir string, extractor TextExtractor, llm ModelClient, model string, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	return &Analyzer{
		uploadsDir: uploadsDir,
		extractor:  extractor,
		llm:        llm,
		model:      model,
		timeout:    timeout,
		logger:     slog.Default(),
	}
}

// Analyze runs one analysis attempt. Errors propagate to the caller
// unwrapped in meaning: ErrSourceNotFound for a missing backing file,
// ollama.ErrInvalidOutput for undecodable model output.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Report, error) {
	var text string
	if req.OverrideText != nil {
		text = *req.OverrideText
	} else {
		path := filepath.Join(a.uploadsDir, req.StorageID)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return Report{}, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
			}
			return Report{}, fmt.Errorf("checking source file: %w", err)
		}

		extracted, err := a.extractor.Extract(path, req.Filename)
		if err != nil {
			return Report{}, fmt.Errorf("extracting text from %s: %w", req.Filename, err)
		}
		text = extracted
	}

	stats := ComputeStats(text)
	prompt := BuildPrompt(text)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	parsed, err := a.llm.AskJSON(callCtx, a.model, prompt)
	if err != nil {
		return Report{}, err
	}
	a.logger.Debug("model call finished",
		"storage_id", req.StorageID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	raw, err := json.Marshal(parsed)
	if err != nil {
		return Report{}, fmt.Errorf("re-encoding model response: %w", err)
	}

	return Report{
		Text:        text,
		Stats:       stats,
		RawResponse: raw,
		Result:      Classify(parsed),
	}, nil
}
