package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/storage"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 100
)

// handleSearchProducts runs a catalog search from query parameters:
// q, category and a comma separated tags list.
func handleSearchProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := catalog.SearchRequest{
			Query:    q.Get("q"),
			Category: q.Get("category"),
		}
		if raw := q.Get("tags"); raw != "" {
			req.Tags = catalog.NormalizeTags(strings.Split(raw, ","))
		}

		products, err := deps.Catalog.Search(r.Context(), req)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func handleGetProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, catalog.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "Product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "looking up product: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleRecommendations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := deps.Catalog.Recommendations(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "recommendations failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleListOrders(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Orders == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "order ledger not configured")
			return
		}

		limit := defaultOrderLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = min(n, maxOrderLimit)
		}

		orders, err := deps.Orders.ListOrders(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing orders: %v", err)
			return
		}
		if orders == nil {
			orders = []storage.Order{}
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func handleGetOrder(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Orders == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "order ledger not configured")
			return
		}

		o, err := deps.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "Order not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reading order: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}
