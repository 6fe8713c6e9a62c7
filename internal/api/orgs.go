package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eduzmena/eduscan/internal/storage"
)

const maxOrgBodySize = 64 << 10 // 64KB

type regionRequest struct {
	Name string `json:"name"`
}

type schoolRequest struct {
	Name     string `json:"name"`
	RegionID int64  `json:"region_id"`
}

type regionResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type schoolResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	RegionID int64  `json:"region_id"`
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func handleCreateRegion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxOrgBodySize)
		var req regionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		reg, err := deps.Store.CreateRegion(req.Name)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating region: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, regionResponse{ID: reg.ID, Name: reg.Name})
	}
}

func handleListRegions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regions, err := deps.Store.ListRegions()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing regions: %v", err)
			return
		}
		out := make([]regionResponse, 0, len(regions))
		for _, reg := range regions {
			out = append(out, regionResponse{ID: reg.ID, Name: reg.Name})
		}
		writeJSON(w, http.StatusOK, map[string]any{"regions": out})
	}
}

func handleUpdateRegion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid region id")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxOrgBodySize)
		var req regionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if err := deps.Store.UpdateRegion(id, req.Name); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found_error", "region not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "updating region: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, regionResponse{ID: id, Name: req.Name})
	}
}

func handleDeleteRegion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid region id")
			return
		}
		if err := deps.Store.DeleteRegion(id); err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				httpError(w, http.StatusNotFound, "not_found_error", "region not found")
			case errors.Is(err, storage.ErrRegionInUse):
				httpError(w, http.StatusConflict, "invalid_request_error", "region has schools; delete them first")
			default:
				httpError(w, http.StatusInternalServerError, "api_error", "deleting region: %v", err)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

func handleCreateSchool(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxOrgBodySize)
		var req schoolRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		sch, err := deps.Store.CreateSchool(req.Name, req.RegionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "region %d does not exist", req.RegionID)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "creating school: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, schoolResponse{ID: sch.ID, Name: sch.Name, RegionID: sch.RegionID})
	}
}

func handleListSchools(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var regionID *int64
		if v := r.URL.Query().Get("region_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid region_id: %v", err)
				return
			}
			regionID = &id
		}
		schools, err := deps.Store.ListSchools(regionID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing schools: %v", err)
			return
		}
		out := make([]schoolResponse, 0, len(schools))
		for _, sch := range schools {
			out = append(out, schoolResponse{ID: sch.ID, Name: sch.Name, RegionID: sch.RegionID})
		}
		writeJSON(w, http.StatusOK, map[string]any{"schools": out})
	}
}

func handleDeleteSchool(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid school id")
			return
		}
		if err := deps.Store.DeleteSchool(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found_error", "school not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "deleting school: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}
