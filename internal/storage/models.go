package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested order does not exist. Product
// lookups return catalog.ErrNotFound instead.
var ErrNotFound = errors.New("not found")

// Order is a placed checkout. Number is the customer-facing ORD-#### code;
// ID is the storage key.
type Order struct {
	ID        string      `json:"id"`
	Number    string      `json:"order_id"`
	SessionID string      `json:"session_id"`
	Total     float64     `json:"total"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}
