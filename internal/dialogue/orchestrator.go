// Package dialogue drives one conversational turn: it asks the reasoning
// engine for the next step, runs at most one shopping tool and asks the
// engine again to put the tool result into words.
package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/engine"
	"github.com/kalambet/shopper/internal/session"
	"github.com/kalambet/shopper/internal/shop"
)

// Reply is the outcome of one turn.
type Reply struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	ToolCalls []chat.ToolCall   `json:"tool_calls,omitempty"`
	Products  []catalog.Product `json:"products,omitempty"`
	SessionID string            `json:"session_id,omitempty"`

	// Messages are the messages this turn appended to the conversation,
	// user message first.
	Messages []chat.Message `json:"-"`
}

// Orchestrator runs turns against sessions. It holds no per-session state
// and is safe for concurrent use.
type Orchestrator struct {
	engine  engine.Engine
	toolbox *shop.Toolbox
	prompt  string
}

func New(e engine.Engine, tb *shop.Toolbox) *Orchestrator {
	return &Orchestrator{engine: e, toolbox: tb, prompt: SystemPrompt}
}

// Engine returns the reasoning engine the orchestrator consults.
func (o *Orchestrator) Engine() engine.Engine { return o.engine }

// Turn handles one user utterance on s. When history is non-nil it replaces
// the session's conversation before the turn.
//
// Turn never returns an error: failures become an apology reply. The session
// is locked for the duration of the turn.
func (o *Orchestrator) Turn(ctx context.Context, s *session.Session, utterance string, history []chat.Message) Reply {
	s.Lock()
	defer s.Unlock()

	if history != nil {
		s.History = slices.Clone(history)
	}
	s.History = chat.WithSystem(s.History, o.prompt)

	userMsg := chat.Message{Role: chat.RoleUser, Content: utterance}
	base := len(s.History)
	s.History = append(s.History, userMsg)

	reply, appended, err := o.run(ctx, s)
	if err != nil {
		slog.Error("dialogue turn failed", "session", s.ID, "engine", o.engine.Name(), "error", err)
		apology := chat.Message{Role: chat.RoleAssistant, Content: fmt.Sprintf("I apologize, but I encountered an error: %v", err)}
		s.History = append(s.History[:base+1], apology)
		return Reply{
			Role:      apology.Role,
			Content:   apology.Content,
			SessionID: s.ID,
			Messages:  []chat.Message{userMsg, apology},
		}
	}

	s.History = append(s.History, appended...)
	reply.SessionID = s.ID
	reply.Messages = append([]chat.Message{userMsg}, appended...)
	return reply
}

// run performs the engine and tool round-trip. It does not touch s.History;
// the messages to append are returned instead.
func (o *Orchestrator) run(ctx context.Context, s *session.Session) (reply Reply, appended []chat.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	defs := shop.ToolDefs()
	msg, err := o.engine.Complete(ctx, s.History, defs)
	if err != nil {
		return Reply{}, nil, err
	}
	msg.Role = chat.RoleAssistant

	if len(msg.ToolCalls) == 0 {
		return Reply{Role: msg.Role, Content: msg.Content, Products: decodeProducts(msg.Content)}, []chat.Message{msg}, nil
	}

	// One tool round-trip per turn. Extra calls are dropped so that every
	// call in the history has a matching tool message.
	if len(msg.ToolCalls) > 1 {
		slog.Warn("engine requested several tools, running the first", "count", len(msg.ToolCalls))
		msg.ToolCalls = msg.ToolCalls[:1]
	}
	call := msg.ToolCalls[0]
	if call.ID == "" {
		call.ID = chat.NewToolCall(call.Function.Name, "").ID
		msg.ToolCalls[0].ID = call.ID
	}

	result, err := shop.Execute(ctx, o.toolbox.For(s.ID, s.Cart), call)
	if err != nil {
		return Reply{}, nil, fmt.Errorf("run %s: %w", call.Function.Name, err)
	}
	toolMsg := chat.Message{
		Role:       chat.RoleTool,
		Name:       call.Function.Name,
		Content:    result,
		ToolCallID: call.ID,
	}
	slog.Debug("tool finished", "session", s.ID, "tool", call.Function.Name, "bytes", len(result))

	conv := append(slices.Clip(s.History), msg, toolMsg)
	final, err := o.engine.Complete(ctx, conv, defs)
	if err != nil {
		return Reply{}, nil, fmt.Errorf("finalize: %w", err)
	}
	final.Role = chat.RoleAssistant
	if len(final.ToolCalls) > 0 {
		slog.Debug("ignoring chained tool call", "tool", final.ToolCalls[0].Function.Name)
		final.ToolCalls = nil
	}
	if strings.TrimSpace(final.Content) == "" {
		final.Content = engine.Finalize(result)
	}

	return Reply{
		Role:      final.Role,
		Content:   final.Content,
		ToolCalls: []chat.ToolCall{call},
		Products:  decodeProducts(result),
	}, []chat.Message{msg, toolMsg, final}, nil
}

// decodeProducts returns the products in a JSON list payload, or nil when
// s is not a product list.
func decodeProducts(s string) []catalog.Product {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil
	}
	var products []catalog.Product
	if err := json.Unmarshal([]byte(s), &products); err != nil || len(products) == 0 {
		return nil
	}
	return products
}
