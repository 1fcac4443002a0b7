package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/proxy"
	"github.com/kalambet/shopper/internal/shop"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{"rules", Config{Provider: ProviderRules, APIKey: "ignored"}, "rules", false},
		{"auto without key", Config{Provider: ProviderAuto}, "rules", false},
		{"empty provider without key", Config{}, "rules", false},
		{"auto with key", Config{Provider: ProviderAuto, APIKey: "k", Model: "m"}, "remote:m+rules", false},
		{"remote with key", Config{Provider: ProviderRemote, APIKey: "k", Model: "m"}, "remote:m", false},
		{"remote without key", Config{Provider: ProviderRemote}, "", true},
		{"unknown", Config{Provider: "azure"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Select(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Select(%+v) succeeded, want error", tt.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if e.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", e.Name(), tt.wantName)
			}
		})
	}
}

func TestRemoteEngine_Complete(t *testing.T) {
	m := &mockCompleter{resp: proxy.CompletionResponse{Choices: []proxy.Choice{{
		Message: chat.Message{ToolCalls: []chat.ToolCall{{ID: "call_1", Type: "function", Function: chat.FunctionCall{Name: "get_cart", Arguments: "{}"}}}},
	}}}}
	e := NewRemoteEngine(m, "llama-3.1-8b-instant")

	msg, err := e.Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "cart?"}}, shop.ToolDefs())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if msg.Role != chat.RoleAssistant || len(msg.ToolCalls) != 1 {
		t.Errorf("message = %+v", msg)
	}

	req := m.got[0]
	if req.Model != "llama-3.1-8b-instant" || req.ToolChoice != "auto" || len(req.Tools) != 4 || req.MaxTokens != remoteMaxTokens {
		t.Errorf("request = %+v", req)
	}
}

func TestRemoteEngine_NoChoices(t *testing.T) {
	e := NewRemoteEngine(&mockCompleter{}, "m")
	if _, err := e.Complete(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for an empty choice list")
	}
}

type failingEngine struct{ err error }

func (f failingEngine) Name() string { return "failing" }
func (f failingEngine) Complete(context.Context, []chat.Message, []chat.ToolDef) (chat.Message, error) {
	return chat.Message{}, f.err
}

func TestWithFallback_UsesSecondaryOnError(t *testing.T) {
	e := WithFallback(failingEngine{err: errors.New("boom")}, NewRuleEngine())

	msg, err := e.Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "checkout"}}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != shop.ToolCheckout {
		t.Errorf("message = %+v, want checkout call from the rule engine", msg)
	}
}

func TestWithFallback_CancelledContextNotMasked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := WithFallback(failingEngine{err: context.Canceled}, NewRuleEngine())

	if _, err := e.Complete(ctx, []chat.Message{{Role: chat.RoleUser, Content: "hi"}}, nil); err == nil {
		t.Fatal("expected the cancellation error")
	}
}
