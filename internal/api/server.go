package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/dialogue"
	"github.com/kalambet/shopper/internal/session"
	"github.com/kalambet/shopper/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DefaultSessionID is used by requests that name no session, so a single
// browser front end shares one cart without any setup.
const DefaultSessionID = "default"

const (
	headerRequestID = "X-Request-ID"
	headerSessionID = "X-Session-ID"
)

// Catalog is the catalog surface served over HTTP.
type Catalog interface {
	Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	Recommendations(ctx context.Context, id string) ([]catalog.Product, error)
}

// OrderLedger reads the order ledger.
type OrderLedger interface {
	ListOrders(ctx context.Context, limit int) ([]storage.Order, error)
	GetOrder(ctx context.Context, id string) (storage.Order, error)
}

// Deps holds what the HTTP handlers need.
type Deps struct {
	Dialogue *dialogue.Orchestrator
	Sessions *session.Manager
	Catalog  Catalog
	Orders   OrderLedger // optional; GET /orders answers 404 without it
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewHandler returns the shopping API: chat, cart, catalog, reset, health
// and the OpenAI-compatible completions endpoint.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", headerRequestID, headerSessionID},
		ExposedHeaders: []string{headerRequestID, headerSessionID},
		MaxAge:         300,
	}))

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)

	r.Post("/chat", handleChat(deps))
	r.Post("/reset", handleReset(deps))

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handleGetCart(deps))
		r.Post("/items", handleAddCartItem(deps))
		r.Delete("/items/{id}", handleRemoveCartItem(deps))
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handleSearchProducts(deps))
		r.Get("/{id}", handleGetProduct(deps))
		r.Get("/{id}/recommendations", handleRecommendations(deps))
	})

	r.Get("/orders", handleListOrders(deps))
	r.Get("/orders/{id}", handleGetOrder(deps))

	r.Get("/v1/models", handleModels(deps))
	r.Post("/v1/chat/completions", handleChatCompletions(deps))

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}

// sessionFor returns the session named by id, the X-Session-ID header or
// the default session, in that order, creating it when needed.
func sessionFor(w http.ResponseWriter, r *http.Request, m *session.Manager, id string) *session.Session {
	if id == "" {
		id = r.Header.Get(headerSessionID)
	}
	if id == "" {
		id = DefaultSessionID
	}
	s := m.GetOrCreate(id)
	w.Header().Set(headerSessionID, s.ID)
	return s
}

// decodeBody reads a size-limited JSON body into v and validates it.
// On failure it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Shopper Agent API is running"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
