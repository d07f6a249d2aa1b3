package pricing

import (
	"slices"
	"strings"

	"eyewear/internal/domain"
)

// Facet is one selectable value in the listing sidebar.
type Facet struct {
	Name  string
	Hex   string
	Count int
}

// PriceRange is the observed span of list prices.
type PriceRange struct {
	Min int64
	Max int64
}

// Facets summarizes a product collection for the filter sidebar.
type Facets struct {
	Categories []Facet
	Colors     []Facet
	Price      PriceRange
}

// BuildFacets counts active products per category and per color name and
// records the range of list prices. A product counts once per color even if
// several variants share it.
func BuildFacets(products []domain.Product, policy Policy) Facets {
	var f Facets
	catIdx := map[string]int{}
	colIdx := map[string]int{}
	first := true
	for _, p := range products {
		if !p.Status {
			continue
		}
		price := Lowest(p, policy).Current
		if first || price < f.Price.Min {
			f.Price.Min = price
		}
		if first || price > f.Price.Max {
			f.Price.Max = price
		}
		first = false

		cat := p.Category.Label()
		if i, ok := catIdx[cat]; ok {
			f.Categories[i].Count++
		} else {
			catIdx[cat] = len(f.Categories)
			f.Categories = append(f.Categories, Facet{Name: cat, Count: 1})
		}

		seen := map[string]bool{}
		for _, v := range p.Variants {
			n := strings.TrimSpace(v.Color.Name)
			k := strings.ToLower(n)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			if i, ok := colIdx[k]; ok {
				f.Colors[i].Count++
			} else {
				colIdx[k] = len(f.Colors)
				f.Colors = append(f.Colors, Facet{Name: n, Hex: v.Color.HexCode, Count: 1})
			}
		}
	}
	byName := func(a, b Facet) int { return strings.Compare(a.Name, b.Name) }
	slices.SortFunc(f.Categories, byName)
	slices.SortFunc(f.Colors, byName)
	return f
}
