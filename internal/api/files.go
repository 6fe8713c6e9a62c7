package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eduzmena/eduscan/internal/storage"
)

const defaultMaxUploadBytes = 32 << 20 // 32MB

// DocumentResponse is the JSON shape of a document. Analysis output fields
// appear only once populated; the payload field carries whichever of the
// three typed columns is set.
type DocumentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SchoolID   *int64    `json:"school_id,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`

	AnalysisStatus     string     `json:"analysis_status"`
	AnalysisStartedAt  *time.Time `json:"analysis_started_at,omitempty"`
	AnalysisFinishedAt *time.Time `json:"analysis_finished_at,omitempty"`
	AnalysisError      string     `json:"analysis_error,omitempty"`

	BasicStats   json.RawMessage `json:"basic_stats,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	AnalysisType string          `json:"analysis_type,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func documentResponse(d storage.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                 d.ID,
		Filename:           d.Filename,
		SchoolID:           d.SchoolID,
		UploadedAt:         d.UploadedAt,
		AnalysisStatus:     d.AnalysisStatus,
		AnalysisStartedAt:  d.AnalysisStartedAt,
		AnalysisFinishedAt: d.AnalysisFinishedAt,
		AnalysisError:      d.AnalysisError,
		Summary:            d.Summary,
		AnalysisType:       d.AnalysisType,
	}
	if d.BasicStats != "" {
		resp.BasicStats = json.RawMessage(d.BasicStats)
	}
	switch {
	case d.AttendanceData != "":
		resp.Data = json.RawMessage(d.AttendanceData)
	case d.FeedbackData != "":
		resp.Data = json.RawMessage(d.FeedbackData)
	case d.RecordData != "":
		resp.Data = json.RawMessage(d.RecordData)
	}
	return resp
}

func handleUploadFile(deps AppDeps) http.HandlerFunc {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		defer r.Body.Close()

		if err := r.ParseMultipartForm(maxBytes); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart form: %v", err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file field is required")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "filename is required")
			return
		}

		var schoolID *int64
		if v := r.FormValue("school_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid school_id: %v", err)
				return
			}
			if _, err := deps.Store.GetSchool(id); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "school %d does not exist", id)
					return
				}
				httpError(w, http.StatusInternalServerError, "api_error", "looking up school: %v", err)
				return
			}
			schoolID = &id
		}

		doc := storage.Document{
			ID:         uuid.NewString(),
			Filename:   header.Filename,
			SchoolID:   schoolID,
			UploadedAt: time.Now().UTC(),
		}

		if err := os.MkdirAll(deps.UploadsDir, 0o700); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "preparing uploads dir: %v", err)
			return
		}
		dst, err := os.OpenFile(filepath.Join(deps.UploadsDir, doc.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating upload file: %v", err)
			return
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			os.Remove(dst.Name())
			httpError(w, http.StatusInternalServerError, "api_error", "writing upload: %v", err)
			return
		}
		if err := dst.Close(); err != nil {
			os.Remove(dst.Name())
			httpError(w, http.StatusInternalServerError, "api_error", "writing upload: %v", err)
			return
		}

		if err := deps.Store.CreateDocument(doc); err != nil {
			os.Remove(filepath.Join(deps.UploadsDir, doc.ID))
			httpError(w, http.StatusInternalServerError, "api_error", "recording document: %v", err)
			return
		}

		if deps.Metrics != nil {
			deps.Metrics.ObserveUpload()
		}
		doc.AnalysisStatus = storage.StatusPending
		writeJSON(w, http.StatusCreated, documentResponse(doc))
	}
}

func handleListFiles(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := storage.DocumentFilter{
			Status: r.URL.Query().Get("status"),
			Limit:  parseIntParam(r, "limit", 50, 500),
			Offset: parseIntParam(r, "offset", 0, 0),
		}
		if v := r.URL.Query().Get("school_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid school_id: %v", err)
				return
			}
			f.SchoolID = &id
		}

		docs, err := deps.Store.ListDocuments(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing documents: %v", err)
			return
		}

		out := make([]DocumentResponse, 0, len(docs))
		for _, d := range docs {
			out = append(out, documentResponse(d))
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": out})
	}
}

func handleGetFile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Store.GetDocument(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, documentResponse(doc))
	}
}

func handleGetFileText(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Store.GetDocument(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading document: %v", err)
			return
		}
		if doc.ExtractedText == "" {
			httpError(w, http.StatusNotFound, "not_found_error", "no extracted text for document %s", doc.ID)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":   doc.ID,
			"text": doc.ExtractedText,
		})
	}
}

func handleRetryFile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading document: %v", err)
			return
		}

		if err := deps.Store.ResetDocument(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusConflict, "invalid_request_error",
					"document is %s; only done or failed documents can be retried", doc.AnalysisStatus)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "resetting document: %v", err)
			return
		}

		doc, err = deps.Store.GetDocument(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, documentResponse(doc))
	}
}

func handleDeleteFile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetDocument(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found_error", "document not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "loading document: %v", err)
			return
		}

		if deps.Vectors != nil {
			if err := deps.Vectors.DeleteByDocument(r.Context(), id); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "removing vectors: %v", err)
				return
			}
		}
		if err := deps.Store.DeleteDocument(id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting document: %v", err)
			return
		}
		// Best effort: the record is gone even if the file lingers.
		os.Remove(filepath.Join(deps.UploadsDir, id))

		writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	}
}
