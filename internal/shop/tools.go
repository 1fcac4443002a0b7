package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/storage"
)

const (
	ToolSearchProducts = "search_products"
	ToolAddToCart      = "add_to_cart"
	ToolCheckout       = "checkout"
	ToolGetCart        = "get_cart"
)

// Catalog is the read side of the product catalog the tools query.
type Catalog interface {
	Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// OrderRecorder persists placed orders.
type OrderRecorder interface {
	SaveOrder(ctx context.Context, o storage.Order) (storage.Order, error)
}

// Toolbox builds the per-session tool registry.
type Toolbox struct {
	catalog Catalog
	orders  OrderRecorder
	// orderNumber returns the customer-facing order code.
	orderNumber func() string
}

// NewToolbox creates a Toolbox over cat. orders may be nil, in which case
// placed orders are not persisted.
func NewToolbox(cat Catalog, orders OrderRecorder) *Toolbox {
	return &Toolbox{catalog: cat, orders: orders, orderNumber: randomOrderNumber}
}

func randomOrderNumber() string {
	return fmt.Sprintf("ORD-%d", 1000+rand.IntN(9000))
}

// For returns the tools bound to one session's cart.
func (tb *Toolbox) For(sessionID string, cart *Cart) map[string]tools.Tool {
	return map[string]tools.Tool{
		ToolSearchProducts: &searchProductsTool{catalog: tb.catalog},
		ToolAddToCart:      &addToCartTool{catalog: tb.catalog, cart: cart},
		ToolCheckout:       &checkoutTool{tb: tb, sessionID: sessionID, cart: cart},
		ToolGetCart:        &getCartTool{cart: cart},
	}
}

// Execute runs call against registry and returns the JSON payload for the
// tool message. An unknown tool yields an error payload, not a Go error.
func Execute(ctx context.Context, registry map[string]tools.Tool, call chat.ToolCall) (string, error) {
	t, ok := registry[call.Function.Name]
	if !ok {
		slog.Warn("unknown tool requested", "tool", call.Function.Name)
		return `{"error":"Unknown tool"}`, nil
	}
	slog.Debug("executing tool", "tool", call.Function.Name, "args", call.Function.Arguments)
	return t.Call(ctx, call.Function.Arguments)
}

// ToolDefs returns the function-calling schema of the shopping tools.
func ToolDefs() []chat.ToolDef {
	return []chat.ToolDef{
		buildToolDef(ToolSearchProducts, "Search the product catalog for items based on keywords, category, or tags.", map[string]any{
			"query":    map[string]any{"type": "string", "description": "Free text search query (e.g., 'red dress', 'steamer')"},
			"category": map[string]any{"type": "string", "description": "Category filter (e.g., 'Clothing', 'Accessories')"},
			"tags":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "List of tags to filter by"},
		}, []string{}),
		buildToolDef(ToolAddToCart, "Add a specific product to the user's shopping cart.", map[string]any{
			"product_id": map[string]any{"type": "string", "description": "The ID of the product to add"},
		}, []string{"product_id"}),
		buildToolDef(ToolCheckout, "Process the checkout for the current cart.", map[string]any{}, []string{}),
		buildToolDef(ToolGetCart, "Get the current items in the cart.", map[string]any{}, []string{}),
	}
}

func buildToolDef(name, description string, properties map[string]any, required []string) chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.FunctionDef{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// decodeArgs parses a JSON arguments string. Malformed input yields the
// zero value, never a partially filled one.
func decodeArgs[T any](tool, input string) T {
	var v T
	if strings.TrimSpace(input) == "" {
		return v
	}
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		slog.Warn("malformed tool arguments, using none", "tool", tool, "error", err)
		var zero T
		return zero
	}
	return v
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// statusPayload is the object result of the cart-mutating tools.
type statusPayload struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	CartSize int    `json:"cart_size,omitempty"`
}

type orderPayload struct {
	Status  string  `json:"status"`
	OrderID string  `json:"order_id"`
	Total   float64 `json:"total"`
	Message string  `json:"message"`
}

type searchProductsTool struct {
	catalog Catalog
}

func (t *searchProductsTool) Name() string { return ToolSearchProducts }
func (t *searchProductsTool) Description() string {
	return "Search the product catalog. Input is a JSON object with optional query, category and tags."
}
func (t *searchProductsTool) Call(ctx context.Context, input string) (string, error) {
	req := decodeArgs[catalog.SearchRequest](t.Name(), input)

	results, err := t.catalog.Search(ctx, req)
	if err != nil {
		return "", err
	}
	return marshal(results)
}

type addToCartArgs struct {
	ProductID string `json:"product_id"`
}

type addToCartTool struct {
	catalog Catalog
	cart    *Cart
}

func (t *addToCartTool) Name() string { return ToolAddToCart }
func (t *addToCartTool) Description() string {
	return "Add a product to the cart. Input is a JSON object with product_id."
}
func (t *addToCartTool) Call(ctx context.Context, input string) (string, error) {
	args := decodeArgs[addToCartArgs](t.Name(), input)

	p, err := t.catalog.Get(ctx, args.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		return marshal(statusPayload{Status: "error", Message: "Product not found."})
	}
	if err != nil {
		return "", err
	}

	t.cart.Add(p)
	return marshal(statusPayload{
		Status:   "success",
		Message:  fmt.Sprintf("Added %s to cart.", p.Name),
		CartSize: t.cart.Len(),
	})
}

type checkoutTool struct {
	tb        *Toolbox
	sessionID string
	cart      *Cart
}

func (t *checkoutTool) Name() string { return ToolCheckout }
func (t *checkoutTool) Description() string {
	return "Place an order for everything in the cart and empty it."
}
func (t *checkoutTool) Call(ctx context.Context, _ string) (string, error) {
	if t.cart.Len() == 0 {
		return marshal(statusPayload{Status: "error", Message: "Cart is empty."})
	}

	items := t.cart.Items()
	number := t.tb.orderNumber()
	total := t.cart.Total()

	names := make([]string, len(items))
	for i, p := range items {
		names[i] = p.Name
	}

	payload, err := marshal(orderPayload{
		Status:  "success",
		OrderID: number,
		Total:   total,
		Message: fmt.Sprintf("Order %s placed successfully for %s.", number, strings.Join(names, ", ")),
	})
	if err != nil {
		return "", err
	}

	t.cart.Clear()
	t.record(ctx, number, total, items)
	return payload, nil
}

func (t *checkoutTool) record(ctx context.Context, number string, total float64, items []catalog.Product) {
	if t.tb.orders == nil {
		return
	}
	o := storage.Order{Number: number, SessionID: t.sessionID, Total: total}
	for _, p := range items {
		o.Items = append(o.Items, storage.OrderItem{ProductID: p.ID, Name: p.Name, Price: p.Price})
	}
	if _, err := t.tb.orders.SaveOrder(ctx, o); err != nil {
		slog.Warn("recording order failed", "order", number, "error", err)
	}
}

type getCartTool struct {
	cart *Cart
}

func (t *getCartTool) Name() string { return ToolGetCart }
func (t *getCartTool) Description() string {
	return "List the products currently in the cart."
}
func (t *getCartTool) Call(_ context.Context, _ string) (string, error) {
	return marshal(t.cart.Items())
}
