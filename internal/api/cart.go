package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/shopper/internal/catalog"
)

type cartResponse struct {
	Status    string `json:"status"`
	CartCount int    `json:"cart_count"`
	Message   string `json:"message"`
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

func handleGetCart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFor(w, r, deps.Sessions, "")
		s.Lock()
		items := s.Cart.Items()
		s.Unlock()

		if items == nil {
			items = []catalog.Product{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleAddCartItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if !decodeBody(w, r, &req) {
			return
		}

		p, err := deps.Catalog.Get(r.Context(), req.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "Product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "looking up product: %v", err)
			return
		}

		s := sessionFor(w, r, deps.Sessions, "")
		s.Lock()
		s.Cart.Add(p)
		n := s.Cart.Len()
		s.Unlock()

		writeJSON(w, http.StatusOK, cartResponse{
			Status:    "success",
			CartCount: n,
			Message:   fmt.Sprintf("Added %s to cart", p.Name),
		})
	}
}

func handleRemoveCartItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s := sessionFor(w, r, deps.Sessions, "")
		s.Lock()
		p, ok := s.Cart.Remove(id)
		n := s.Cart.Len()
		s.Unlock()

		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "Item not found in cart")
			return
		}
		writeJSON(w, http.StatusOK, cartResponse{
			Status:    "success",
			CartCount: n,
			Message:   fmt.Sprintf("Removed %s from cart", p.Name),
		})
	}
}
