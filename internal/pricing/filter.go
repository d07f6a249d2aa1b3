package pricing

import (
	"cmp"
	"slices"
	"strings"

	"eyewear/internal/domain"
)

type SortMode string

const (
	SortDefault   SortMode = "default"
	SortPriceAsc  SortMode = "price-asc"
	SortPriceDesc SortMode = "price-desc"
)

// ParseSortMode maps a query value to a SortMode; unknown values sort by default.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	}
	return SortDefault
}

// Filter is the listing filter state. Zero values disable the matching stage.
type Filter struct {
	BrandID    string
	Categories []string // category names
	Colors     []string // color names
	MinPrice   int64    // inclusive; 0 disables
	MaxPrice   int64    // inclusive; 0 disables
	Sort       SortMode
	Policy     Policy
}

// PriceActive reports whether the price range stage applies.
func (f Filter) PriceActive() bool { return f.MinPrice > 0 || f.MaxPrice > 0 }

// Active reports whether any filter or sort is set.
func (f Filter) Active() bool {
	return f.BrandID != "" || len(f.Categories) > 0 || len(f.Colors) > 0 ||
		f.PriceActive() || (f.Sort != "" && f.Sort != SortDefault)
}

// Apply runs the listing pipeline in fixed order: active status, brand,
// categories, colors, price range, then an optional stable price sort. The
// input slice is not modified.
func (f Filter) Apply(products []domain.Product) []domain.Product {
	cats := nameSet(f.Categories)
	colors := nameSet(f.Colors)

	out := make([]domain.Product, 0, len(products))
	prices := make(map[int]int64, len(products))
	for _, p := range products {
		if !p.Status {
			continue
		}
		if f.BrandID != "" && p.Brand.ID != f.BrandID {
			continue
		}
		if len(cats) > 0 && !cats[normName(p.Category.Name)] {
			continue
		}
		if len(colors) > 0 && !hasColor(p, colors) {
			continue
		}
		price := Lowest(p, f.Policy).Current
		if f.MinPrice > 0 && price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && price > f.MaxPrice {
			continue
		}
		prices[len(out)] = price
		out = append(out, p)
	}

	if f.Sort != SortPriceAsc && f.Sort != SortPriceDesc {
		return out
	}
	type ranked struct {
		p     domain.Product
		price int64
	}
	rs := make([]ranked, len(out))
	for i, p := range out {
		rs[i] = ranked{p: p, price: prices[i]}
	}
	desc := f.Sort == SortPriceDesc
	slices.SortStableFunc(rs, func(a, b ranked) int {
		if desc {
			return cmp.Compare(b.price, a.price)
		}
		return cmp.Compare(a.price, b.price)
	})
	for i := range rs {
		out[i] = rs[i].p
	}
	return out
}

func hasColor(p domain.Product, set map[string]bool) bool {
	for _, v := range p.Variants {
		if n := normName(v.Color.Name); n != "" && set[n] {
			return true
		}
	}
	return false
}

func nameSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		if n = normName(n); n != "" {
			m[n] = true
		}
	}
	return m
}

func normName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Listing is a product prepared for a grid cell.
type Listing struct {
	Product domain.Product
	Quote   Quote
	Image   string
	Colors  []domain.Color
}

// Listings prices each product for display. placeholder is used when a
// product has no image.
func Listings(products []domain.Product, policy Policy, placeholder string) []Listing {
	out := make([]Listing, 0, len(products))
	for _, p := range products {
		q := Lowest(p, policy)
		img := ""
		if q.VariantIndex >= 0 {
			if imgs := p.Variants[q.VariantIndex].Images; len(imgs) > 0 {
				img = imgs[0]
			}
		}
		if img == "" {
			img = p.FirstImage()
		}
		if img == "" {
			img = placeholder
		}
		out = append(out, Listing{Product: p, Quote: q, Image: img, Colors: Colors(p)})
	}
	return out
}
