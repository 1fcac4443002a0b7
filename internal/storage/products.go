package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/shopper/internal/catalog"
)

// Compile-time check that Store serves the catalog.
var _ catalog.Store = (*Store)(nil)

const productColumns = `id, name, category, price, description, tags, stock, image`

// SaveProducts validates and upserts products in one transaction. Existing
// ids keep their position in the store order.
func (s *Store) SaveProducts(ctx context.Context, products []catalog.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning product import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, category = excluded.category, price = excluded.price,
			description = excluded.description, tags = excluded.tags,
			stock = excluded.stock, image = excluded.image`)
	if err != nil {
		return fmt.Errorf("preparing product upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if err := catalog.Validate(p); err != nil {
			return err
		}
		tags, err := encodeTags(p.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags of %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Category, p.Price, p.Description, tags, p.Stock, p.Image); err != nil {
			return fmt.Errorf("saving product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteProducts empties the catalog.
func (s *Store) DeleteProducts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	return err
}

// CountProducts returns the number of products in the catalog.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// Get returns the product with the given id or catalog.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("getting product %s: %w", id, err)
	}
	return p, nil
}

// Query evaluates pred in SQL and returns matches in insertion order.
func (s *Store) Query(ctx context.Context, pred catalog.Predicate) ([]catalog.Product, error) {
	where, args := compilePredicate(pred)
	if where == "" && pred.Mode == catalog.MatchAny {
		return nil, nil
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// compilePredicate turns pred into a WHERE clause of escaped LIKE tests.
// Each token must appear in the name, description or tags column.
func compilePredicate(pred catalog.Predicate) (string, []any) {
	var clauses []string
	var args []any

	if pred.Category != "" {
		clauses = append(clauses, `lower(category) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(pred.Category))
	}
	for _, tok := range pred.Tokens {
		pat := likePattern(tok)
		clauses = append(clauses, `(lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\' OR lower(tags) LIKE ? ESCAPE '\')`)
		args = append(args, pat, pat, pat)
	}
	if len(clauses) == 0 {
		return "", nil
	}

	sep := " AND "
	if pred.Mode == catalog.MatchAny {
		sep = " OR "
	}
	return strings.Join(clauses, sep), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (catalog.Product, error) {
	var p catalog.Product
	var tags string
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Description, &tags, &p.Stock, &p.Image); err != nil {
		return catalog.Product{}, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return catalog.Product{}, fmt.Errorf("decoding tags of %s: %w", p.ID, err)
	}
	return p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	return string(b), err
}
