// Package pricing computes displayed prices, stock and color choices for
// products with color variants and sub-variants, and filters/sorts product
// collections by those computed prices. Every function is pure: inputs are
// never mutated.
package pricing

import (
	"fmt"
	"strings"

	"eyewear/internal/domain"
)

// Policy chooses which variant represents a product in list views.
type Policy int

const (
	// FirstVariant prices a product from its first variant only.
	FirstVariant Policy = iota
	// CheapestVariant prices a product from whichever variant yields the
	// lowest current price.
	CheapestVariant
)

// ParsePolicy maps "first" / "cheapest" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstVariant, nil
	case "cheapest":
		return CheapestVariant, nil
	}
	return FirstVariant, fmt.Errorf("unknown price policy %q", s)
}

func (p Policy) String() string {
	if p == CheapestVariant {
		return "cheapest"
	}
	return "first"
}

// ClampDiscount bounds a discount percentage to [0,100].
func ClampDiscount(d int) int {
	switch {
	case d < 0:
		return 0
	case d > 100:
		return 100
	}
	return d
}

// Discounted applies a percentage discount to an amount. The discount amount
// is rounded half up to the smallest currency unit, so the result never
// exceeds amount and equals it when discount is 0.
func Discounted(amount int64, discount int) int64 {
	if amount <= 0 {
		return 0
	}
	d := int64(ClampDiscount(discount))
	off := (amount*d + 50) / 100
	return amount - off
}

// RawPrice is base price plus the sub-variant delta, before discount.
func RawPrice(v domain.Variant, sv domain.SubVariant) int64 {
	return v.BasePrice + sv.AdditionalPrice
}

// FinalPrice is RawPrice less the variant's discount.
func FinalPrice(v domain.Variant, sv domain.SubVariant) int64 {
	return Discounted(RawPrice(v, sv), v.Discount)
}

// Quote is the price shown for a product in list views.
type Quote struct {
	Current  int64 // after discount
	Original int64 // before discount
	Discount int

	// VariantIndex and SubVariantIndex point at the combination that produced
	// Current; -1 when the product has no variants / the variant has no
	// sub-variants.
	VariantIndex    int
	SubVariantIndex int
}

// HasDiscount reports whether the quote should show a struck-through price.
func (q Quote) HasDiscount() bool { return q.Discount > 0 && q.Current < q.Original }

// variantQuote returns the lowest combination within one variant.
func variantQuote(v domain.Variant, idx int) Quote {
	q := Quote{Discount: ClampDiscount(v.Discount), VariantIndex: idx, SubVariantIndex: -1}
	if len(v.SubVariants) == 0 {
		q.Original = max(v.BasePrice, 0)
		q.Current = Discounted(v.BasePrice, v.Discount)
		return q
	}
	for i, sv := range v.SubVariants {
		cur := FinalPrice(v, sv)
		orig := max(RawPrice(v, sv), 0)
		if i == 0 || cur < q.Current {
			q.Current = cur
			q.SubVariantIndex = i
		}
		if i == 0 || orig < q.Original {
			q.Original = orig
		}
	}
	return q
}

// Lowest returns the list-view price of p. With FirstVariant the first variant
// is used even when another color is cheaper. A product without variants is
// priced at 0.
func Lowest(p domain.Product, policy Policy) Quote {
	if len(p.Variants) == 0 {
		return Quote{VariantIndex: -1, SubVariantIndex: -1}
	}
	best := variantQuote(p.Variants[0], 0)
	if policy != CheapestVariant {
		return best
	}
	for i := 1; i < len(p.Variants); i++ {
		q := variantQuote(p.Variants[i], i)
		if q.Current < best.Current {
			best = q
		}
	}
	return best
}
