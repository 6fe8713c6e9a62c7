package api

import (
	"net/http"
	"strconv"

	"github.com/eduzmena/eduscan/internal/storage"
)

func handleExportDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Exporter == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "export is not configured")
			return
		}

		f := storage.DocumentFilter{
			Status: r.URL.Query().Get("status"),
		}
		if v := r.URL.Query().Get("school_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid school_id: %v", err)
				return
			}
			f.SchoolID = &id
		}

		data, err := deps.Exporter.ExportDocumentsXLSX(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "building export: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
