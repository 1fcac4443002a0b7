package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/session"
	"github.com/kalambet/shopper/internal/shop"
)

const productURIPrefix = "catalog://products/"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Sessions *session.Manager
	Toolbox  *shop.Toolbox
	Catalog  Catalog
	Orders   OrderLedger // optional; the orders resource is omitted without it
}

// NewMCPServer creates an MCP server exposing the shopping tools, a product
// resource template and the recent orders resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"shopper",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("shopper: product catalog search, cart and checkout for a personal shopping assistant."),
		server.WithRecovery(),
	)

	sessionOpt := mcp.WithString("session_id", mcp.Description("Cart session (default: "+DefaultSessionID+")"))

	s.AddTool(
		mcp.NewTool(shop.ToolSearchProducts,
			mcp.WithDescription("Search the product catalog for items based on keywords, category, or tags."),
			mcp.WithString("query", mcp.Description("Free text search query (e.g., 'red dress')")),
			mcp.WithString("category", mcp.Description("Category filter (e.g., 'Clothing', 'Accessories')")),
			mcp.WithArray("tags", mcp.Description("List of tags to filter by")),
		),
		mcpSearchProducts(deps),
	)

	s.AddTool(
		mcp.NewTool(shop.ToolAddToCart,
			mcp.WithDescription("Add a specific product to the shopping cart."),
			mcp.WithString("product_id", mcp.Description("The ID of the product to add"), mcp.Required()),
			sessionOpt,
		),
		mcpAddToCart(deps),
	)

	s.AddTool(
		mcp.NewTool(shop.ToolCheckout,
			mcp.WithDescription("Place an order for everything in the cart and empty it."),
			sessionOpt,
		),
		mcpSessionTool(deps, shop.ToolCheckout),
	)

	s.AddTool(
		mcp.NewTool(shop.ToolGetCart,
			mcp.WithDescription("List the products currently in the cart."),
			sessionOpt,
		),
		mcpSessionTool(deps, shop.ToolGetCart),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			productURIPrefix+"{id}",
			"Product",
			mcp.WithTemplateDescription("A catalog product as JSON"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceProduct(deps),
	)

	if deps.Orders != nil {
		s.AddResource(
			mcp.NewResource(
				"shop://orders/recent",
				"Recent Orders",
				mcp.WithResourceDescription("Last 10 placed orders"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecentOrders(deps),
		)
	}

	return s
}

// runTool executes a shopping tool on the named session's cart.
func runTool(ctx context.Context, deps MCPDeps, sessionID, name string, args any) (*mcp.CallToolResult, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal arguments: %v", err)), nil
	}

	s := deps.Sessions.GetOrCreate(sessionID)
	s.Lock()
	defer s.Unlock()

	out, err := shop.Execute(ctx, deps.Toolbox.For(s.ID, s.Cart), chat.NewToolCall(name, string(raw)))
	if err != nil {
		return mcpError(fmt.Sprintf("%s failed: %v", name, err)), nil
	}
	return mcpText(out), nil
}

func mcpSearchProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := catalog.SearchRequest{
			Query:    req.GetString("query", ""),
			Category: req.GetString("category", ""),
			Tags:     req.GetStringSlice("tags", nil),
		}
		return runTool(ctx, deps, "", shop.ToolSearchProducts, args)
	}
}

func mcpAddToCart(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("product_id")
		if err != nil || id == "" {
			return mcpError("product_id is required"), nil
		}
		args := map[string]string{"product_id": id}
		return runTool(ctx, deps, req.GetString("session_id", ""), shop.ToolAddToCart, args)
	}
}

func mcpSessionTool(deps MCPDeps, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return runTool(ctx, deps, req.GetString("session_id", ""), name, struct{}{})
	}
}

func mcpResourceProduct(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(req.Params.URI, productURIPrefix)
		p, err := deps.Catalog.Get(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("product %q not found", id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal product: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecentOrders(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		orders, err := deps.Orders.ListOrders(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}

		type orderSummary struct {
			OrderID   string  `json:"order_id"`
			CreatedAt string  `json:"created_at"`
			Total     float64 `json:"total"`
			Items     int     `json:"items"`
		}

		summaries := make([]orderSummary, len(orders))
		for i, o := range orders {
			summaries[i] = orderSummary{
				OrderID:   o.Number,
				CreatedAt: o.CreatedAt.Format(time.RFC3339),
				Total:     o.Total,
				Items:     len(o.Items),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal orders: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
