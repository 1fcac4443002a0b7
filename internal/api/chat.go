package api

import (
	"log/slog"
	"net/http"

	"github.com/kalambet/shopper/internal/chat"
)

type chatRequest struct {
	Message   string         `json:"message" validate:"required"`
	History   []chat.Message `json:"history" validate:"omitempty,dive"`
	SessionID string         `json:"session_id" validate:"omitempty,max=128"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req) {
			return
		}

		s := sessionFor(w, r, deps.Sessions, req.SessionID)
		reply := deps.Dialogue.Turn(r.Context(), s, req.Message, req.History)
		slog.Debug("chat turn", "session", s.ID, "tools", len(reply.ToolCalls), "products", len(reply.Products))

		writeJSON(w, http.StatusOK, reply)
	}
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

// handleReset clears the session's cart and conversation. The body is
// optional.
func handleReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if r.ContentLength > 0 && !decodeBody(w, r, &req) {
			return
		}
		s := sessionFor(w, r, deps.Sessions, req.SessionID)
		deps.Sessions.Reset(s.ID)
		slog.Info("session reset", "session", s.ID)

		writeJSON(w, http.StatusOK, map[string]string{"status": "Agent reset"})
	}
}
