package catalog

import (
	"context"
	"strings"
	"sync"
)

// Mode selects how the clauses of a Predicate combine.
type Mode int

const (
	// MatchAll requires every token clause and the category clause to hold.
	MatchAll Mode = iota
	// MatchAny requires at least one token clause or the category clause to hold.
	MatchAny
)

// Predicate is a store-agnostic product filter. Each token is a clause that
// holds when the token is a case-insensitive substring of the product name,
// description or concatenated tags. Category, when set, is a clause that
// holds when it is a case-insensitive substring of the product category.
type Predicate struct {
	Mode     Mode
	Tokens   []string
	Category string
}

// Empty reports whether the predicate has no clauses.
func (p Predicate) Empty() bool {
	return len(p.Tokens) == 0 && p.Category == ""
}

// Match evaluates the predicate against a single product. An empty MatchAll
// predicate matches everything; an empty MatchAny predicate matches nothing.
func (p Predicate) Match(prod Product) bool {
	if p.Empty() {
		return p.Mode == MatchAll
	}

	haystack := strings.ToLower(prod.Name + "\x00" + prod.Description + "\x00" + strings.Join(prod.Tags, " "))
	category := strings.ToLower(prod.Category)

	switch p.Mode {
	case MatchAny:
		if p.Category != "" && strings.Contains(category, strings.ToLower(p.Category)) {
			return true
		}
		for _, tok := range p.Tokens {
			if strings.Contains(haystack, strings.ToLower(tok)) {
				return true
			}
		}
		return false
	default:
		if p.Category != "" && !strings.Contains(category, strings.ToLower(p.Category)) {
			return false
		}
		for _, tok := range p.Tokens {
			if !strings.Contains(haystack, strings.ToLower(tok)) {
				return false
			}
		}
		return true
	}
}

// Store is the queryable product collection the search engine runs on.
// Query must return matches in the store's natural iteration order.
type Store interface {
	Query(ctx context.Context, pred Predicate) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store that keeps products in insertion order.
// It is safe for concurrent reads; writes should finish before reads begin.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
	index    map[string]int
}

// NewMemoryStore creates a MemoryStore seeded with products. Later
// duplicates of an ID replace the earlier entry in place.
func NewMemoryStore(products ...Product) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int)}
	s.Put(products...)
	return s
}

// Put inserts or replaces products.
func (s *MemoryStore) Put(products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		p = p.Clone()
		if i, ok := s.index[p.ID]; ok {
			s.products[i] = p
			continue
		}
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
}

// Len returns the number of stored products.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func (s *MemoryStore) Query(ctx context.Context, pred Predicate) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Product
	for _, p := range s.products {
		if pred.Match(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return s.products[i].Clone(), nil
}
