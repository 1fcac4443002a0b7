package catalog

import (
	"errors"
	"slices"
	"strings"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a single catalog entry. Products are immutable once seeded;
// callers that need to keep a product around take a copy via Clone.
type Product struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Price       float64  `json:"price" validate:"gte=0"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Image       string   `json:"image" validate:"omitempty,uri"`
}

// Clone returns a deep copy of p so that mutating the copy's tags never
// reaches the catalog.
func (p Product) Clone() Product {
	out := p
	out.Tags = slices.Clone(p.Tags)
	return out
}

// HasAnyTag reports whether p carries at least one of tags (case-insensitive).
func (p Product) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SearchRequest is the structured input of a catalog search.
type SearchRequest struct {
	Query    string   `json:"query,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}
