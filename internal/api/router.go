// Package api exposes the document pipeline over HTTP: file upload and
// lifecycle, region/school management, retrieval-augmented chat, and an
// XLSX export. All routes except /health sit behind a bearer token.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eduzmena/eduscan/internal/chat"
	"github.com/eduzmena/eduscan/internal/storage"
)

// Answerer abstracts the RAG responder for the API layer.
type Answerer interface {
	Answer(ctx context.Context, question string) (chat.Answer, error)
}

// Exporter produces the documents workbook.
type Exporter interface {
	ExportDocumentsXLSX(f storage.DocumentFilter) ([]byte, error)
}

// VectorCleaner removes a document's chunks from the vector index.
type VectorCleaner interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Pinger reports whether the model backend is reachable.
type Pinger interface {
	IsRunning(ctx context.Context) bool
}

// RequestRecorder observes completed HTTP requests.
type RequestRecorder interface {
	ObserveRequest(path string, status int)
	ObserveUpload()
}

type AppDeps struct {
	Store      *storage.Store
	UploadsDir string
	Token      string

	Responder Answerer      // optional; if nil, /chat returns 503
	Exporter  Exporter      // optional; if nil, export returns 503
	Vectors   VectorCleaner // optional; if nil, vector cleanup is skipped on delete
	Ollama    Pinger        // optional; /status reports ollama=false when nil
	Metrics   RequestRecorder

	MaxUploadBytes     int64
	RateLimitPerSecond int
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	if deps.Metrics != nil {
		r.Use(requestMetrics(deps.Metrics))
	}

	r.Get("/health", handleHealth())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/files", handleUploadFile(deps))
		r.Get("/files", handleListFiles(deps))
		r.Get("/files/{id}", handleGetFile(deps))
		r.Get("/files/{id}/text", handleGetFileText(deps))
		r.Post("/files/{id}/retry", handleRetryFile(deps))
		r.Delete("/files/{id}", handleDeleteFile(deps))

		r.Post("/regions", handleCreateRegion(deps))
		r.Get("/regions", handleListRegions(deps))
		r.Put("/regions/{id}", handleUpdateRegion(deps))
		r.Delete("/regions/{id}", handleDeleteRegion(deps))

		r.Post("/schools", handleCreateSchool(deps))
		r.Get("/schools", handleListSchools(deps))
		r.Delete("/schools/{id}", handleDeleteSchool(deps))

		r.With(RateLimit(deps.RateLimitPerSecond)).Post("/chat", handleChat(deps))

		r.Get("/export/documents.xlsx", handleExportDocuments(deps))
		r.Get("/status", handleStatus(deps))
	})

	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := deps.Store.CountDocumentsByStatus()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "counting documents: %v", err)
			return
		}
		ollamaUp := false
		if deps.Ollama != nil {
			ollamaUp = deps.Ollama.IsRunning(r.Context())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"documents": counts,
			"ollama":    ollamaUp,
		})
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestMetrics(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					path = p
				}
			}
			rec.ObserveRequest(path, sr.status)
		})
	}
}
