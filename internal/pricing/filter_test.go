package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eyewear/internal/domain"
	"eyewear/internal/pricing"
)

func catalog() []domain.Product {
	return []domain.Product{
		{
			ID: "p1", Name: "Aviator", Status: true,
			Brand:    domain.Brand{ID: "rayban"},
			Category: domain.Category{Name: "Sunglasses"},
			Variants: []domain.Variant{
				variant("Black", 1_200_000, 50, sub("52mm", 0, 3)),
				variant("Red", 1_000_000, 0, sub("52mm", 0, 1)),
			},
		},
		{
			ID: "p2", Name: "Cat Eye", Status: true,
			Brand:    domain.Brand{ID: "gucci"},
			Category: domain.Category{Name: "Optical"},
			Variants: []domain.Variant{variant("Tortoise", 2_600_000, 10, sub("50mm", 0, 2))},
		},
		{
			ID: "p3", Name: "Broken data", Status: true,
			Brand:    domain.Brand{ID: "rayban"},
			Category: domain.Category{Name: "Sunglasses"},
		},
		{
			ID: "p4", Name: "Retired", Status: false,
			Brand:    domain.Brand{ID: "rayban"},
			Category: domain.Category{Name: "Sunglasses"},
			Variants: []domain.Variant{variant("Red", 100_000, 0, sub("s", 0, 1))},
		},
		{
			ID: "p5", Name: "Sport", Status: true,
			Brand:    domain.Brand{ID: "oakley"},
			Category: domain.Category{Name: "Sport"},
			Variants: []domain.Variant{variant("Blue", 600_000, 0, sub("m", 0, 1))},
		},
	}
}

func ids(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestApply_DefaultDropsInactiveOnly(t *testing.T) {
	got := pricing.Filter{}.Apply(catalog())
	assert.Equal(t, []string{"p1", "p2", "p3", "p5"}, ids(got))
}

func TestApply_BrandCategoryColor(t *testing.T) {
	ps := catalog()

	assert.Equal(t, []string{"p1", "p3"}, ids(pricing.Filter{BrandID: "rayban"}.Apply(ps)))
	assert.Equal(t, []string{"p1", "p3"}, ids(pricing.Filter{Categories: []string{"sunglasses"}}.Apply(ps)))

	// the matching color is not the first variant
	assert.Equal(t, []string{"p1"}, ids(pricing.Filter{Colors: []string{"Red"}}.Apply(ps)))

	// no color data never matches a color filter
	got := pricing.Filter{Colors: []string{"Black", "Tortoise"}}.Apply(ps)
	assert.Equal(t, []string{"p1", "p2"}, ids(got))
}

func TestApply_PriceRangeExcludesZeroPriced(t *testing.T) {
	ps := catalog()
	got := pricing.Filter{MinPrice: 1}.Apply(ps)
	assert.NotContains(t, ids(got), "p3")

	// p1 lists at 600_000 from its first (Black) variant
	got = pricing.Filter{MinPrice: 500_000, MaxPrice: 700_000}.Apply(ps)
	assert.Equal(t, []string{"p1", "p5"}, ids(got))

	// under the cheapest policy p1 is 600_000 too (Black 50% off beats Red)
	got = pricing.Filter{MaxPrice: 700_000, Policy: pricing.CheapestVariant}.Apply(ps)
	assert.Equal(t, []string{"p1", "p3", "p5"}, ids(got))
}

func TestApply_SortAscDescReverse(t *testing.T) {
	ps := catalog()
	asc := pricing.Filter{Sort: pricing.SortPriceAsc}.Apply(ps)
	desc := pricing.Filter{Sort: pricing.SortPriceDesc}.Apply(ps)

	assert.Equal(t, []string{"p3", "p1", "p5", "p2"}, ids(asc))
	// p1 (600_000) and p5 (600_000) tie; ties keep input order both ways
	assert.Equal(t, []string{"p2", "p1", "p5", "p3"}, ids(desc))
}

func TestApply_SortReversesDistinctPrices(t *testing.T) {
	ps := []domain.Product{
		{ID: "a", Status: true, Variants: []domain.Variant{variant("Black", 300, 0)}},
		{ID: "b", Status: true, Variants: []domain.Variant{variant("Black", 100, 0)}},
		{ID: "c", Status: true, Variants: []domain.Variant{variant("Black", 200, 0)}},
	}
	asc := ids(pricing.Filter{Sort: pricing.SortPriceAsc}.Apply(ps))
	desc := ids(pricing.Filter{Sort: pricing.SortPriceDesc}.Apply(ps))
	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestApply_PureIdempotentAndShrinking(t *testing.T) {
	filters := []pricing.Filter{
		{},
		{BrandID: "rayban", Sort: pricing.SortPriceDesc},
		{Colors: []string{"Red", "Blue"}, MinPrice: 1},
		{Categories: []string{"Sunglasses", "Sport"}, MaxPrice: 1_000_000, Sort: pricing.SortPriceAsc},
	}
	for _, f := range filters {
		ps := catalog()
		before := ids(ps)

		once := f.Apply(ps)
		twice := f.Apply(once)

		assert.Equal(t, ids(once), ids(twice))
		assert.LessOrEqual(t, len(once), len(ps))
		assert.Equal(t, before, ids(ps), "input must not be reordered")
	}
}

func TestEmptyVariantsProduct(t *testing.T) {
	p := domain.Product{ID: "bare", Status: true}
	ls := pricing.Listings([]domain.Product{p}, pricing.FirstVariant, "/static/placeholder.png")
	require.Len(t, ls, 1)
	assert.Zero(t, ls[0].Quote.Current)
	assert.Zero(t, ls[0].Quote.Original)
	assert.Equal(t, "/static/placeholder.png", ls[0].Image)

	assert.Len(t, pricing.Filter{}.Apply([]domain.Product{p}), 1)
	assert.Empty(t, pricing.Filter{MinPrice: 1}.Apply([]domain.Product{p}))
}

func TestParseSortMode(t *testing.T) {
	assert.Equal(t, pricing.SortPriceAsc, pricing.ParseSortMode("price-asc"))
	assert.Equal(t, pricing.SortPriceDesc, pricing.ParseSortMode(" PRICE-DESC "))
	assert.Equal(t, pricing.SortDefault, pricing.ParseSortMode("popularity"))
}

func TestBuildFacets(t *testing.T) {
	f := pricing.BuildFacets(catalog(), pricing.FirstVariant)
	assert.Equal(t, int64(0), f.Price.Min)
	assert.Equal(t, int64(2_340_000), f.Price.Max)

	counts := map[string]int{}
	for _, c := range f.Categories {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, map[string]int{"Sunglasses": 2, "Optical": 1, "Sport": 1}, counts)

	colors := map[string]int{}
	for _, c := range f.Colors {
		colors[c.Name] = c.Count
	}
	assert.Equal(t, map[string]int{"Black": 1, "Red": 1, "Tortoise": 1, "Blue": 1}, colors)
}
