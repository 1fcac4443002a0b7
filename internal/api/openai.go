package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/proxy"
	"github.com/kalambet/shopper/internal/session"
)

type completionRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages" validate:"required,min=1,dive"`
}

// handleModels lists the active reasoning engine as the only model.
func handleModels(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, proxy.ModelList{
			Object: "list",
			Data:   []proxy.Model{{ID: deps.Dialogue.Engine().Name(), Object: "model", OwnedBy: "shopper"}},
		})
	}
}

// handleChatCompletions answers an OpenAI chat completion with one shopping
// turn. The last message is the utterance and the rest is history. Without
// an X-Session-ID header the turn runs on a throwaway cart.
func handleChatCompletions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		last := req.Messages[len(req.Messages)-1]
		if last.Role != chat.RoleUser {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "the last message must have role user")
			return
		}
		history := req.Messages[:len(req.Messages)-1]
		if history == nil {
			history = []chat.Message{}
		}

		var s *session.Session
		if id := r.Header.Get(headerSessionID); id != "" {
			s = sessionFor(w, r, deps.Sessions, id)
		} else {
			s = session.NewSession("")
		}

		reply := deps.Dialogue.Turn(r.Context(), s, last.Content, history)

		model := req.Model
		if model == "" {
			model = deps.Dialogue.Engine().Name()
		}
		writeJSON(w, http.StatusOK, proxy.CompletionResponse{
			ID:      "chatcmpl-" + uuid.NewString(),
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []proxy.Choice{{
				Index:        0,
				Message:      chat.Message{Role: reply.Role, Content: reply.Content},
				FinishReason: "stop",
			}},
		})
	}
}
