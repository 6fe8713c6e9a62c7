package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

const maxChatBodySize = 256 << 10 // 256KB

type chatRequest struct {
	Question string `json:"question"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Responder == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "chat is not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxChatBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.Question = strings.TrimSpace(req.Question)
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		ans, err := deps.Responder.Answer(r.Context(), req.Question)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "answering question: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"answer":  ans.Text,
			"sources": ans.Sources,
		})
	}
}
