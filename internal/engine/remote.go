package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/proxy"
)

const remoteMaxTokens = 1024

// Completer is the transport the remote engine sends requests through.
type Completer interface {
	Complete(ctx context.Context, req proxy.CompletionRequest) (proxy.CompletionResponse, error)
	ListModels(ctx context.Context) ([]proxy.Model, error)
}

// RemoteEngine delegates reasoning to a hosted chat model with function calling.
type RemoteEngine struct {
	client Completer
	model  string
}

func NewRemoteEngine(client Completer, model string) *RemoteEngine {
	return &RemoteEngine{client: client, model: model}
}

func (e *RemoteEngine) Name() string { return "remote:" + e.model }

// Model returns the configured model name.
func (e *RemoteEngine) Model() string { return e.model }

func (e *RemoteEngine) Complete(ctx context.Context, history []chat.Message, tools []chat.ToolDef) (chat.Message, error) {
	req := proxy.CompletionRequest{
		Model:     e.model,
		Messages:  history,
		Tools:     tools,
		MaxTokens: remoteMaxTokens,
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
	}

	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		return chat.Message{}, fmt.Errorf("remote completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return chat.Message{}, errors.New("remote completion returned no choices")
	}

	msg := resp.Choices[0].Message
	msg.Role = chat.RoleAssistant
	return msg, nil
}

// ListModels lists the provider's model ids.
func (e *RemoteEngine) ListModels(ctx context.Context) ([]string, error) {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids, nil
}
