package services

import (
	"sort"
	"strings"

	"printstore/internal/domain"
)

// Sort orders understood by the store listing.
const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortName      = "name"
)

type ListQuery struct {
	Q        string
	Category string
	Sort     string
}

type CatalogService struct{}

func NewCatalogService() *CatalogService { return &CatalogService{} }

// List filters the catalog by search text and category, then sorts it. The
// input slice is not modified.
func (s *CatalogService) List(cat domain.Catalog, q ListQuery) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]domain.Product, 0, len(cat.Products))
	for _, p := range cat.Products {
		if q.Category != "" && q.Category != "all" && p.Category != q.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortName:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Featured && !out[j].Featured })
	}
	return out
}

func (s *CatalogService) GetProduct(cat domain.Catalog, id string) (domain.Product, error) {
	p, ok := cat.Product(id)
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}

// Categories returns the declared categories, or those used by products when
// the catalog declares none.
func (s *CatalogService) Categories(cat domain.Catalog) []string {
	if len(cat.Categories) > 0 {
		return cat.Categories
	}
	seen := map[string]bool{}
	var out []string
	for _, p := range cat.Products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}
