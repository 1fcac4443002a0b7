package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/intent"
	"github.com/kalambet/shopper/internal/resolver"
	"github.com/kalambet/shopper/internal/shop"
	"github.com/kalambet/shopper/internal/stylist"
)

// Canned replies of the rule engine.
const (
	GreetingReply = "I am your Personal Stylist. I can help you find specific items like 'Summer Floral Dress for Women' or 'Boys Navy Suit'. What are you looking for?"
	ClarifyReply  = "Please specify which item you'd like to add (e.g., 'Add gen_123 to cart'), or describe it more uniquely."
	NotFoundReply = "I couldn't find any specific items matching that, but I can help with other requests!"
	FoundReply    = "I found some items for you."
)

// RuleEngine is the deterministic reasoner: keyword intent classification,
// stylist query building and context resolution. It does no I/O.
type RuleEngine struct{}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

func (*RuleEngine) Name() string { return "rules" }

func (e *RuleEngine) Complete(ctx context.Context, history []chat.Message, _ []chat.ToolDef) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	if len(history) == 0 {
		return assistantText(GreetingReply), nil
	}

	last := history[len(history)-1]
	if last.Role == chat.RoleTool {
		return assistantText(Finalize(last.Content)), nil
	}

	utterance := strings.ToLower(last.Content)
	kind := intent.Classify(utterance)
	slog.Debug("rule engine classified utterance", "intent", kind)

	switch kind {
	case intent.Checkout:
		return toolCall(shop.ToolCheckout, "{}"), nil

	case intent.AddToCart:
		res, ok := resolver.Resolve(history, utterance)
		if !ok {
			return assistantText(ClarifyReply), nil
		}
		slog.Debug("resolved product reference", "product_id", res.ProductID, "explicit", res.Explicit, "score", res.Score)
		args, err := json.Marshal(map[string]string{"product_id": res.ProductID})
		if err != nil {
			return chat.Message{}, err
		}
		return toolCall(shop.ToolAddToCart, string(args)), nil

	case intent.ViewCart:
		return toolCall(shop.ToolGetCart, "{}"), nil

	case intent.Search:
		req := stylist.Build(utterance)
		args, err := json.Marshal(searchArgs{Query: req.Query, Tags: req.Tags})
		if err != nil {
			return chat.Message{}, err
		}
		return toolCall(shop.ToolSearchProducts, string(args)), nil

	default:
		return assistantText(GreetingReply), nil
	}
}

// searchArgs always carries tags, even when empty.
type searchArgs struct {
	Query string   `json:"query"`
	Tags  []string `json:"tags"`
}

// Finalize turns a tool result into the reply text. A non-empty JSON list is
// surfaced verbatim; an object with a message surfaces the message.
func Finalize(toolResult string) string {
	var data any
	if err := json.Unmarshal([]byte(toolResult), &data); err != nil {
		return FoundReply
	}
	switch v := data.(type) {
	case []any:
		if len(v) > 0 {
			return toolResult
		}
	case map[string]any:
		if msg, ok := v["message"]; ok {
			if s, ok := msg.(string); ok {
				return s
			}
			b, _ := json.Marshal(msg)
			return string(b)
		}
	}
	return NotFoundReply
}

func assistantText(content string) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: content}
}

func toolCall(name, args string) chat.Message {
	return chat.Message{
		Role:      chat.RoleAssistant,
		ToolCalls: []chat.ToolCall{chat.NewToolCall(name, args)},
	}
}
