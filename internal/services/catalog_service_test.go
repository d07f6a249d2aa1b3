package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eyewear/internal/cache"
	"eyewear/internal/domain"
	"eyewear/internal/pricing"
	"eyewear/internal/services"
)

func frame(id, name string, active bool, colorID string, base int64) domain.Product {
	return domain.Product{
		ID: id, Name: name, Status: active,
		Brand:    domain.Brand{ID: "b1"},
		Category: domain.Category{ID: "cat1"},
		Variants: []domain.Variant{{
			Color:       domain.Color{ID: colorID},
			BasePrice:   base,
			Images:      []string{"/img/" + id + ".jpg"},
			SubVariants: []domain.SubVariant{{Specification: "size", Value: "M", Quantity: 3}},
		}},
	}
}

func seeded() *memBackend {
	b := newMemBackend()
	b.brands = []domain.Brand{{ID: "b1", Name: "Rayban"}}
	b.colors = []domain.Color{{ID: "c1", Name: "Black"}, {ID: "c2", Name: "Tortoise"}}
	b.categories = []domain.Category{{ID: "cat1", Name: "Sunglasses"}}
	b.products = []domain.Product{
		frame("p1", "Aviator Classic", true, "c1", 300_000),
		frame("p2", "Wayfarer", true, "c2", 100_000),
		frame("p3", "Clubmaster", false, "c1", 200_000),
		frame("p4", "Round Metal", true, "c2", 200_000),
	}
	return b
}

func TestBrowse_ResolvesNamesAndFilters(t *testing.T) {
	b := seeded()
	svc := services.NewCatalogService(b, cache.New(time.Minute), pricing.FirstVariant, 100, "")

	res, err := svc.Browse(context.Background(), pricing.Filter{Colors: []string{"tortoise"}, Sort: pricing.SortPriceAsc})
	require.NoError(t, err)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, "p2", res.Listings[0].Product.ID)
	assert.Equal(t, "p4", res.Listings[1].Product.ID)
	assert.Equal(t, "Rayban", res.Listings[0].Product.Brand.Name)
	assert.Equal(t, "Sunglasses", res.Listings[0].Product.Category.Name)
	assert.Equal(t, 2, res.Total)
}

func TestSearch_MatchesNameAndSkipsInactive(t *testing.T) {
	svc := services.NewCatalogService(seeded(), nil, pricing.FirstVariant, 100, "")

	res, err := svc.Search(context.Background(), "  CLUB ", pricing.Filter{})
	require.NoError(t, err)
	assert.Empty(t, res.Listings)

	res, err = svc.Search(context.Background(), "way", pricing.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "p2", res.Listings[0].Product.ID)
}

func TestReferenceListsAreCached(t *testing.T) {
	b := seeded()
	svc := services.NewCatalogService(b, cache.New(time.Minute), pricing.FirstVariant, 100, "")
	ctx := context.Background()

	_, err := svc.ListColors(ctx)
	require.NoError(t, err)
	_, err = svc.ListColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.colorCalls)

	svc.Invalidate()
	_, err = svc.ListColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.colorCalls)
}

func TestDetail_SelectsColorAndSimilar(t *testing.T) {
	svc := services.NewCatalogService(seeded(), nil, pricing.FirstVariant, 100, "/ph.png")

	d, err := svc.Detail(context.Background(), "p1", "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Black", d.Selection.Color.Name)
	assert.Equal(t, int64(300_000), d.Selection.Price)
	assert.Equal(t, "/img/p1.jpg", d.Image)
	for _, l := range d.Similar {
		assert.NotEqual(t, "p1", l.Product.ID)
		assert.True(t, l.Product.Status)
	}
	assert.LessOrEqual(t, len(d.Similar), 4)
}

func TestDetail_InactiveIsNotFound(t *testing.T) {
	svc := services.NewCatalogService(seeded(), nil, pricing.FirstVariant, 100, "")
	_, err := svc.Detail(context.Background(), "p3", "", 0)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.Detail(context.Background(), "nope", "", 0)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDetail_SimilarFailureIsIgnored(t *testing.T) {
	b := seeded()
	svc := services.NewCatalogService(b, nil, pricing.FirstVariant, 100, "")
	b.failList = errBoom

	d, err := svc.Detail(context.Background(), "p2", "", 0)
	require.NoError(t, err)
	assert.Empty(t, d.Similar)
}

func TestHome_ErrorsPropagate(t *testing.T) {
	b := seeded()
	b.failList = errBoom
	svc := services.NewCatalogService(b, nil, pricing.FirstVariant, 100, "")
	_, err := svc.Home(context.Background())
	assert.ErrorIs(t, err, errBoom)
}
