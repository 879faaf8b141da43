// Package catalog holds the pure product filtering used by both the shop
// listing and the search type-ahead.
package catalog

import (
	"strings"

	"gift-store/internal/domain"
)

// Criteria narrows a product collection. Empty fields match everything.
type Criteria struct {
	Category  string `json:"category,omitempty"`
	Occasion  string `json:"occasion,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Query     string `json:"q,omitempty"`
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.Category == "" && c.Occasion == "" && c.Recipient == "" && c.Query == ""
}

// Matches reports whether p passes every criterion in c.
func Matches(p domain.Product, c Criteria) bool {
	if c.Category != "" && p.Category != c.Category {
		return false
	}
	if c.Occasion != "" && !p.HasOccasion(c.Occasion) {
		return false
	}
	if c.Recipient != "" && !p.HasRecipient(c.Recipient) {
		return false
	}
	if c.Query != "" {
		q := strings.ToLower(c.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.Category), q) {
			return false
		}
	}
	return true
}

// Filter returns the products matching c, preserving input order. With no
// criteria the input slice is returned as is.
func Filter(products []domain.Product, c Criteria) []domain.Product {
	if c.IsZero() {
		return products
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, c) {
			out = append(out, p)
		}
	}
	return out
}

// Search is the type-ahead variant: a blank query yields nothing and results
// are capped at limit when limit > 0.
func Search(products []domain.Product, query string, limit int) []domain.Product {
	if strings.TrimSpace(query) == "" {
		return []domain.Product{}
	}

	found := Filter(products, Criteria{Query: query})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

// CountByCategory tallies products per category id.
func CountByCategory(products []domain.Product) map[string]int {
	counts := make(map[string]int)
	for _, p := range products {
		counts[p.Category]++
	}
	return counts
}

// CountByOccasion tallies products per occasion id.
func CountByOccasion(products []domain.Product) map[string]int {
	counts := make(map[string]int)
	for _, p := range products {
		for _, o := range p.Occasion {
			counts[o]++
		}
	}
	return counts
}
