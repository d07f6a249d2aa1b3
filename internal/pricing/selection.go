package pricing

import "eyewear/internal/domain"

// Selection is the state of the product detail view for one color and
// sub-variant choice.
type Selection struct {
	VariantIndex    int
	SubVariantIndex int // -1 when the variant has no sub-variants
	Color           domain.Color
	Price           int64
	OriginalPrice   int64
	Discount        int
	Quantity        int
	InStock         bool
	Images          []string
	SubVariants     []domain.SubVariant
}

// HasDiscount reports whether a struck-through original price applies.
func (s Selection) HasDiscount() bool { return s.Discount > 0 && s.Price < s.OriginalPrice }

// Colors returns the distinct colors of p's variants in variant order.
// Variants with no usable color reference are skipped.
func Colors(p domain.Product) []domain.Color {
	seen := make(map[string]bool, len(p.Variants))
	var out []domain.Color
	for _, v := range p.Variants {
		k := v.Color.Key()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v.Color)
	}
	return out
}

// VariantByColor returns the index of the first variant whose color matches
// colorID (by id, or by name when ids are absent), or -1.
func VariantByColor(p domain.Product, colorID string) int {
	if colorID == "" {
		return -1
	}
	for i, v := range p.Variants {
		if v.Color.ID == colorID || (v.Color.ID == "" && v.Color.Key() == domain.Color{Name: colorID}.Key()) {
			return i
		}
	}
	return -1
}

// Select resolves the detail view for a color and sub-variant index. An
// unknown color falls back to the first variant; an out-of-range sub-variant
// index falls back to the first sub-variant. A variant without sub-variants is
// priced at its bare base price less discount and has no stock. A product
// without variants yields the zero Selection with indexes at -1.
func Select(p domain.Product, colorID string, subIndex int) Selection {
	if len(p.Variants) == 0 {
		return Selection{VariantIndex: -1, SubVariantIndex: -1}
	}
	vi := VariantByColor(p, colorID)
	if vi < 0 {
		vi = 0
	}
	v := p.Variants[vi]
	s := Selection{
		VariantIndex:    vi,
		SubVariantIndex: -1,
		Color:           v.Color,
		Discount:        ClampDiscount(v.Discount),
		Images:          v.Images,
		SubVariants:     v.SubVariants,
	}
	if len(v.SubVariants) == 0 {
		s.OriginalPrice = max(v.BasePrice, 0)
		s.Price = Discounted(v.BasePrice, v.Discount)
		return s
	}
	if subIndex < 0 || subIndex >= len(v.SubVariants) {
		subIndex = 0
	}
	sv := v.SubVariants[subIndex]
	s.SubVariantIndex = subIndex
	s.OriginalPrice = max(RawPrice(v, sv), 0)
	s.Price = FinalPrice(v, sv)
	s.Quantity = max(sv.Quantity, 0)
	s.InStock = Available(sv)
	return s
}

// Available reports whether a sub-variant can be bought.
func Available(sv domain.SubVariant) bool { return sv.Quantity > 0 }
