// Package handlers implements the HTTP API surface.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/llm"
	"github.com/pysugar/digital-twin/internal/orchestrator"
)

// ChatRequest is one user message plus the conversation so far.
type ChatRequest struct {
	Message string              `json:"message"`
	History []orchestrator.Turn `json:"history"`
}

// ChatResponse carries the reply and the tool activity behind it, in enough
// detail for the client to replay the turn in a later request.
type ChatResponse struct {
	Response    string                        `json:"response"`
	ContextUsed []string                      `json:"context_used"`
	ToolCalls   []orchestrator.ToolInvocation `json:"tool_calls"`
}

// ChatHandler runs one conversation turn. The session is optional: anonymous
// users chat without tools.
func ChatHandler(orch *orchestrator.Orchestrator, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}

		userID := sessions.UserID(r)

		result, err := orch.Run(r.Context(), userID, req.Message, req.History)
		if err != nil {
			log.Printf("❌ Chat turn failed: %v", err)
			status := http.StatusInternalServerError
			if errors.Is(err, llm.ErrUnavailable) {
				status = http.StatusBadGateway
			}
			writeError(w, status, fmt.Sprintf("Error: %v", err))
			return
		}

		resp := ChatResponse{
			Response:    result.Response,
			ContextUsed: result.ToolsUsed,
			ToolCalls:   result.ToolCalls,
		}
		if resp.ContextUsed == nil {
			resp.ContextUsed = []string{}
		}
		if resp.ToolCalls == nil {
			resp.ToolCalls = []orchestrator.ToolInvocation{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}
