package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveOrder records a placed order. A missing ID or CreatedAt is filled in.
func (s *Store) SaveOrder(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.CreatedAt = o.CreatedAt.UTC().Truncate(time.Second)

	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return Order{}, fmt.Errorf("encoding order items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, session_id, total, items, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.Number, o.SessionID, o.Total, string(b), o.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Order{}, fmt.Errorf("saving order %s: %w", o.Number, err)
	}
	return o, nil
}

// GetOrder returns the order stored under id or ErrNotFound.
func (s *Store) GetOrder(ctx context.Context, id string) (Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, session_id, total, items, created_at
		FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListOrders returns up to limit orders, newest first.
func (s *Store) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, session_id, total, items, created_at
		FROM orders ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row scanner) (Order, error) {
	var o Order
	var items, createdAt string
	if err := row.Scan(&o.ID, &o.Number, &o.SessionID, &o.Total, &items, &createdAt); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return Order{}, fmt.Errorf("decoding items of order %s: %w", o.ID, err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Order{}, fmt.Errorf("parsing created_at: %w", err)
	}
	o.CreatedAt = t
	return o, nil
}
