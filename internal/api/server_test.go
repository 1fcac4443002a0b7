package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/dialogue"
	"github.com/kalambet/shopper/internal/engine"
	"github.com/kalambet/shopper/internal/proxy"
	"github.com/kalambet/shopper/internal/session"
	"github.com/kalambet/shopper/internal/shop"
	"github.com/kalambet/shopper/internal/storage"
)

type testEnv struct {
	handler  http.Handler
	sessions *session.Manager
	store    *storage.Store
	toolbox  *shop.Toolbox
	searcher *catalog.Searcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	err = store.SaveProducts(context.Background(), []catalog.Product{
		{ID: "gen_1", Name: "Floral Summer Dress", Category: "Clothing", Price: 40, Description: "Light dress", Tags: []string{"floral", "summer", "dress", "women"}, Image: "https://example.com/1.jpg"},
		{ID: "gen_2", Name: "Navy Wool Suit", Category: "Clothing", Price: 120, Description: "Tailored suit", Tags: []string{"navy", "suit", "men"}, Image: "https://example.com/2.jpg"},
		{ID: "gen_3", Name: "Linen Shirt", Category: "Clothing", Price: 25.5, Description: "Breezy shirt", Tags: []string{"linen", "shirt", "men"}, Image: "https://example.com/3.jpg"},
		{ID: "gen_7", Name: "Red Leather Heels", Category: "Shoes", Price: 30.5, Description: "Classic heels", Tags: []string{"red", "heels", "women"}, Image: "https://example.com/7.jpg"},
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}

	searcher := catalog.NewSearcher(store)
	tb := shop.NewToolbox(searcher, store)
	sessions := session.NewManager(time.Hour)
	return &testEnv{
		handler: NewHandler(Deps{
			Dialogue: dialogue.New(engine.NewRuleEngine(), tb),
			Sessions: sessions,
			Catalog:  searcher,
			Orders:   store,
		}),
		sessions: sessions,
		store:    store,
		toolbox:  tb,
		searcher: searcher,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]map[string]string](t, rr)
	return body["error"]["message"]
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/", "")
	if got := decode[map[string]string](t, rr); got["status"] != "Shopper Agent API is running" {
		t.Errorf("root = %v", got)
	}

	rr = env.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rr.Code, rr.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", "")
	if rr.Header().Get(headerRequestID) == "" {
		t.Error("no request id generated")
	}

	rr = env.do(t, http.MethodGet, "/health", "", headerRequestID, "abc-123")
	if got := rr.Header().Get(headerRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want the caller's", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestChat_Search(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/chat", `{"message":"I need a floral summer dress for women"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	reply := decode[dialogue.Reply](t, rr)
	if reply.Role != "assistant" || len(reply.Products) != 1 || reply.Products[0].ID != "gen_1" {
		t.Errorf("reply = %+v", reply)
	}
	if reply.SessionID != DefaultSessionID || rr.Header().Get(headerSessionID) != DefaultSessionID {
		t.Errorf("session = %q, header %q", reply.SessionID, rr.Header().Get(headerSessionID))
	}
}

func TestChat_MessageRequired(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/chat", `{"history":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "message is required" {
		t.Errorf("message = %q", msg)
	}
}

func TestChat_InvalidHistoryRole(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/chat", `{"message":"hi","history":[{"role":"robot","content":"x"}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if msg := errorMessage(t, rr); !strings.HasPrefix(msg, "history[0].role must be one of") {
		t.Errorf("message = %q", msg)
	}
}

func TestChat_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodPost, "/chat", `{"message":`); rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestChat_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/chat", `{"message":"add gen_1 to cart","session_id":"alice"}`)
	env.do(t, http.MethodPost, "/chat", `{"message":"add gen_2 to cart"}`, headerSessionID, "bob")

	alice := decode[[]catalog.Product](t, env.do(t, http.MethodGet, "/cart", "", headerSessionID, "alice"))
	bob := decode[[]catalog.Product](t, env.do(t, http.MethodGet, "/cart", "", headerSessionID, "bob"))
	if len(alice) != 1 || alice[0].ID != "gen_1" || len(bob) != 1 || bob[0].ID != "gen_2" {
		t.Errorf("alice = %+v, bob = %+v", alice, bob)
	}
}

func TestChat_CheckoutRecordsOrder(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/chat", `{"message":"add gen_3 to cart"}`)
	env.do(t, http.MethodPost, "/chat", `{"message":"add gen_7 to cart"}`)
	rr := env.do(t, http.MethodPost, "/chat", `{"message":"checkout please"}`)

	reply := decode[dialogue.Reply](t, rr)
	if !strings.Contains(reply.Content, "placed successfully") {
		t.Errorf("content = %q", reply.Content)
	}

	orders := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/orders", ""))
	if len(orders) != 1 || orders[0]["total"] != 56.0 || orders[0]["session_id"] != DefaultSessionID {
		t.Fatalf("orders = %v", orders)
	}

	id, _ := orders[0]["id"].(string)
	rr = env.do(t, http.MethodGet, "/orders/"+id, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /orders/%s status = %d", id, rr.Code)
	}
	o := decode[storage.Order](t, rr)
	if o.ID != id || len(o.Items) != 2 || o.Number != orders[0]["order_id"] {
		t.Errorf("order = %+v", o)
	}
}

func TestOrders_GetUnknown(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/orders/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "Order not found" {
		t.Errorf("message = %q", msg)
	}
}

func TestCart_AddListRemove(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/cart/items", `{"product_id":"gen_7"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rr.Code, rr.Body.String())
	}
	added := decode[cartResponse](t, rr)
	if added != (cartResponse{Status: "success", CartCount: 1, Message: "Added Red Leather Heels to cart"}) {
		t.Errorf("add = %+v", added)
	}

	items := decode[[]catalog.Product](t, env.do(t, http.MethodGet, "/cart", ""))
	if len(items) != 1 || items[0].ID != "gen_7" {
		t.Errorf("cart = %+v", items)
	}

	rr = env.do(t, http.MethodDelete, "/cart/items/gen_7", "")
	removed := decode[cartResponse](t, rr)
	if removed != (cartResponse{Status: "success", CartCount: 0, Message: "Removed Red Leather Heels from cart"}) {
		t.Errorf("remove = %+v", removed)
	}
}

func TestCart_EmptyListIsArray(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/cart", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rr.Body.String())
	}
}

func TestCart_AddErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/cart/items", `{}`)
	if rr.Code != http.StatusBadRequest || errorMessage(t, rr) != "product_id is required" {
		t.Errorf("missing id: %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/cart/items", `{"product_id":"gen_999"}`)
	if rr.Code != http.StatusNotFound || errorMessage(t, rr) != "Product not found" {
		t.Errorf("unknown id: %d", rr.Code)
	}
}

func TestCart_RemoveMissing(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodDelete, "/cart/items/gen_1", "")
	if rr.Code != http.StatusNotFound || errorMessage(t, rr) != "Item not found in cart" {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/cart/items", `{"product_id":"gen_1"}`)
	env.do(t, http.MethodPost, "/chat", `{"message":"hello"}`)

	rr := env.do(t, http.MethodPost, "/reset", "")
	if got := decode[map[string]string](t, rr); got["status"] != "Agent reset" {
		t.Errorf("reset = %v", got)
	}

	s, _ := env.sessions.Get(DefaultSessionID)
	if s.Cart.Len() != 0 || len(s.History) != 0 {
		t.Errorf("after reset: cart=%d history=%d", s.Cart.Len(), len(s.History))
	}
}

func TestProducts_Search(t *testing.T) {
	env := newTestEnv(t)

	got := decode[[]catalog.Product](t, env.do(t, http.MethodGet, "/products?q=shirt&category=cloth", ""))
	if len(got) != 1 || got[0].ID != "gen_3" {
		t.Errorf("search = %+v", got)
	}

	got = decode[[]catalog.Product](t, env.do(t, http.MethodGet, "/products?tags=Women,+red", ""))
	if len(got) != 2 || got[0].ID != "gen_1" || got[1].ID != "gen_7" {
		t.Errorf("tag search = %+v", got)
	}
}

func TestProducts_GetAndRecommendations(t *testing.T) {
	env := newTestEnv(t)

	p := decode[catalog.Product](t, env.do(t, http.MethodGet, "/products/gen_2", ""))
	if p.Name != "Navy Wool Suit" || len(p.Tags) != 3 {
		t.Errorf("product = %+v", p)
	}

	if rr := env.do(t, http.MethodGet, "/products/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing product status = %d", rr.Code)
	}

	recs := decode[[]catalog.Product](t, env.do(t, http.MethodGet, "/products/gen_1/recommendations", ""))
	if len(recs) != 2 || recs[0].ID != "gen_2" || recs[1].ID != "gen_3" {
		t.Errorf("recommendations = %+v", recs)
	}
}

func TestOrders_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodGet, "/orders?limit=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/orders", ""); strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty ledger = %s", rr.Body.String())
	}
}

func TestChatCompletions(t *testing.T) {
	env := newTestEnv(t)

	body := `{"model":"shopper","messages":[{"role":"user","content":"show me heels"}]}`
	rr := env.do(t, http.MethodPost, "/v1/chat/completions", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[proxy.CompletionResponse](t, rr)
	if resp.Object != "chat.completion" || !strings.HasPrefix(resp.ID, "chatcmpl-") || len(resp.Choices) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if !strings.Contains(resp.Choices[0].Message.Content, "gen_7") || resp.Choices[0].FinishReason != "stop" {
		t.Errorf("choice = %+v", resp.Choices[0])
	}
	if env.sessions.Len() != 0 {
		t.Error("stateless completion created a managed session")
	}
}

func TestChatCompletions_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"no messages", `{"model":"m"}`},
		{"empty messages", `{"model":"m","messages":[]}`},
		{"last not user", `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(t, http.MethodPost, "/v1/chat/completions", tt.body); rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)
	list := decode[proxy.ModelList](t, env.do(t, http.MethodGet, "/v1/models", ""))
	if len(list.Data) != 1 || list.Data[0].ID != "rules" {
		t.Errorf("models = %+v", list)
	}
}
