// Package engine provides the reasoning collaborators of a shopping dialogue.
// Every engine takes the conversation and the tool schema and answers with
// one assistant message: plain text, or a request to call a tool.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/proxy"
)

// Engine produces the next assistant message for a conversation.
type Engine interface {
	// Complete returns an assistant message. When the last message is a
	// tool result the reply is the final text for the user.
	Complete(ctx context.Context, history []chat.Message, tools []chat.ToolDef) (chat.Message, error)

	// Name identifies the engine in logs and API responses.
	Name() string
}

const (
	ProviderRules  = "rules"
	ProviderRemote = "remote"
	ProviderAuto   = "auto"
)

// Config selects and configures an engine.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

// Select builds the engine named by cfg.Provider. "auto" picks the remote
// engine, backed by the rule engine, when an API key is configured and the
// rule engine alone otherwise.
func Select(cfg Config) (Engine, error) {
	switch cfg.Provider {
	case ProviderRules:
		return NewRuleEngine(), nil
	case ProviderRemote:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("reasoner provider %q requires reasoner.api_key", cfg.Provider)
		}
		return newRemoteFromConfig(cfg), nil
	case ProviderAuto, "":
		if cfg.APIKey == "" {
			slog.Warn("reasoner API key not set, using the rule engine")
			return NewRuleEngine(), nil
		}
		return WithFallback(newRemoteFromConfig(cfg), NewRuleEngine()), nil
	default:
		return nil, fmt.Errorf("unknown reasoner provider %q (want rules, remote or auto)", cfg.Provider)
	}
}

func newRemoteFromConfig(cfg Config) *RemoteEngine {
	return NewRemoteEngine(proxy.NewClient(cfg.APIKey, cfg.BaseURL), cfg.Model)
}

type fallbackEngine struct {
	primary, secondary Engine
}

// WithFallback returns an engine that answers with secondary whenever
// primary fails.
func WithFallback(primary, secondary Engine) Engine {
	return &fallbackEngine{primary: primary, secondary: secondary}
}

func (f *fallbackEngine) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *fallbackEngine) Complete(ctx context.Context, history []chat.Message, tools []chat.ToolDef) (chat.Message, error) {
	msg, err := f.primary.Complete(ctx, history, tools)
	if err == nil {
		return msg, nil
	}
	if ctx.Err() != nil {
		return chat.Message{}, err
	}
	slog.Warn("reasoner failed, falling back", "engine", f.primary.Name(), "fallback", f.secondary.Name(), "error", err)
	return f.secondary.Complete(ctx, history, tools)
}
