package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// MaxResults caps every search result list.
	MaxResults = 10

	maxRecommendations = 3
)

// Searcher runs the two-pass catalog search over a Store: a strict pass
// requiring every query token to match, then a broad pass accepting any
// single token or category match when the strict pass finds nothing.
// Results are never ranked beyond that; store order is preserved.
type Searcher struct {
	store Store
}

// NewSearcher creates a Searcher over store.
func NewSearcher(store Store) *Searcher {
	return &Searcher{store: store}
}

// Search returns at most MaxResults products for req.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) ([]Product, error) {
	tokens := strings.Fields(strings.ToLower(req.Query))
	category := strings.TrimSpace(req.Category)

	results, err := s.store.Query(ctx, Predicate{Mode: MatchAll, Tokens: tokens, Category: category})
	if err != nil {
		return nil, fmt.Errorf("strict search: %w", err)
	}

	if len(req.Tags) > 0 {
		results = filterByTags(results, req.Tags)
	}

	// Broad pass only when the strict pass starved and there is text to relax.
	if len(results) < 1 && (len(tokens) > 0 || category != "") {
		broad, err := s.store.Query(ctx, Predicate{Mode: MatchAny, Tokens: tokens, Category: category})
		if err != nil {
			return nil, fmt.Errorf("broad search: %w", err)
		}
		results = mergeByID(results, broad)
		slog.Debug("catalog search broadened", "query", req.Query, "category", category, "results", len(results))
	}

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	if results == nil {
		results = []Product{}
	}
	return results, nil
}

// Get returns the product with the given id or ErrNotFound.
func (s *Searcher) Get(ctx context.Context, id string) (Product, error) {
	return s.store.Get(ctx, id)
}

// Recommendations returns up to three other products from the same category
// as id, in store order. An unknown id yields an empty list.
func (s *Searcher) Recommendations(ctx context.Context, id string) ([]Product, error) {
	target, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return []Product{}, nil
	}
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Query(ctx, Predicate{Mode: MatchAll, Category: target.Category})
	if err != nil {
		return nil, fmt.Errorf("recommendations for %s: %w", id, err)
	}

	recs := make([]Product, 0, maxRecommendations)
	for _, p := range candidates {
		if p.ID == target.ID || p.Category != target.Category {
			continue
		}
		recs = append(recs, p)
		if len(recs) == maxRecommendations {
			break
		}
	}
	return recs, nil
}

func filterByTags(products []Product, tags []string) []Product {
	out := products[:0:0]
	for _, p := range products {
		if p.HasAnyTag(tags) {
			out = append(out, p)
		}
	}
	return out
}

// mergeByID appends the items of extra that are not already in base.
func mergeByID(base, extra []Product) []Product {
	seen := make(map[string]struct{}, len(base))
	for _, p := range base {
		seen[p.ID] = struct{}{}
	}
	for _, p := range extra {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		base = append(base, p)
	}
	return base
}
