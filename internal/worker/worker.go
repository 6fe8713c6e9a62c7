// Package worker polls the document store for pending uploads and runs the
// analysis pipeline on them one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduzmena/eduscan/internal/analysis"
	"github.com/eduzmena/eduscan/internal/storage"
)

// DocumentStore abstracts the document queue operations.
type DocumentStore interface {
	PendingDocuments(limit int) ([]storage.Document, error)
	ClaimDocument(id string, startedAt time.Time) error
	CompleteAnalysis(id string, rep analysis.Report, finishedAt time.Time) error
	FailAnalysis(id, errMsg string, finishedAt time.Time) error
}

// DocumentAnalyzer runs the full extract-stats-model pipeline on one document.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Report, error)
}

// ChunkIndexer feeds analyzed text into the vector index. Optional.
type ChunkIndexer interface {
	IndexDocument(ctx context.Context, documentID, text string) (int, error)
}

// Recorder receives analysis outcomes for metrics. Optional.
type Recorder interface {
	ObserveAnalysis(status string, d time.Duration)
}

// Worker drains pending documents from the store.
type Worker struct {
	store    DocumentStore
	analyzer DocumentAnalyzer
	indexer  ChunkIndexer
	metrics  Recorder
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. indexer may be nil to skip vector indexing.
// If pollInterval is <= 0, it defaults to 5s.
func NewWorker(store DocumentStore, analyzer DocumentAnalyzer, indexer ChunkIndexer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		store:    store,
		analyzer: analyzer,
		indexer:  indexer,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// SetMetrics attaches an outcome recorder. Call before Run.
func (w *Worker) SetMetrics(rec Recorder) {
	w.metrics = rec
}

// Run polls for pending documents until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and analyzes a single pending document.
// Returns true if a document was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	docs, err := w.store.PendingDocuments(1)
	if err != nil {
		return false, fmt.Errorf("listing pending documents: %w", err)
	}
	if len(docs) == 0 {
		return false, nil
	}
	doc := docs[0]

	started := time.Now().UTC()
	if err := w.store.ClaimDocument(doc.ID, started); err != nil {
		// Lost the claim race; the document is no longer pending.
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("claiming document %s: %w", doc.ID, err)
	}

	w.process(ctx, doc, started)
	return true, nil
}

func (w *Worker) process(ctx context.Context, doc storage.Document, started time.Time) {
	rep, err := w.analyzer.Analyze(ctx, analysis.Request{StorageID: doc.ID, Filename: doc.Filename})
	finished := time.Now().UTC()

	if err != nil {
		w.logger.Warn("analysis failed", "document_id", doc.ID, "filename", doc.Filename, "error", err)
		w.observe(storage.StatusFailed, finished.Sub(started))
		if failErr := w.store.FailAnalysis(doc.ID, err.Error(), finished); failErr != nil {
			w.logger.Error("failed to mark document as failed", "document_id", doc.ID, "error", failErr)
		}
		return
	}

	if err := w.store.CompleteAnalysis(doc.ID, rep, finished); err != nil {
		w.logger.Error("failed to store analysis result", "document_id", doc.ID, "error", err)
		return
	}
	w.observe(storage.StatusDone, finished.Sub(started))
	w.logger.Info("document analyzed", "document_id", doc.ID, "type", rep.Result.Type,
		"words", rep.Stats.WordCount, "duration", finished.Sub(started))

	if w.indexer == nil {
		return
	}
	// Indexing failures do not fail the analysis; the document stays done
	// and the next re-analysis will index again.
	n, err := w.indexer.IndexDocument(ctx, doc.ID, rep.Text)
	if err != nil {
		w.logger.Warn("vector indexing failed", "document_id", doc.ID, "error", err)
		return
	}
	w.logger.Debug("document indexed", "document_id", doc.ID, "chunks", n)
}

func (w *Worker) observe(status string, d time.Duration) {
	if w.metrics != nil {
		w.metrics.ObserveAnalysis(status, d)
	}
}
