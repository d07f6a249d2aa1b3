package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productsJSON struct {
	Items []struct {
		ID            string   `json:"id"`
		Name          string   `json:"name"`
		Price         int64    `json:"price"`
		OriginalPrice int64    `json:"originalPrice"`
		Discount      int      `json:"discount"`
		Colors        []string `json:"colors"`
	} `json:"items"`
	Total int `json:"total"`
}

func (a *testApp) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp := a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (a *testApp) page(t *testing.T, path string, cookies ...*http.Cookie) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := a.do(t, req)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func names(p productsJSON) []string {
	out := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, it.Name)
	}
	return out
}

func TestHomeListsActiveProductsOnly(t *testing.T) {
	app := newTestApp(t)
	status, body := app.page(t, "/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Aviator Classic")
	assert.Contains(t, body, "Holbrook")
	assert.NotContains(t, body, "Clubmaster")
}

func TestAPIProductsListsWithFirstVariantPrices(t *testing.T) {
	app := newTestApp(t)
	var out productsJSON
	resp := app.getJSON(t, "/api/v1/products", &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, out.Total)

	byName := map[string]int64{}
	for _, it := range out.Items {
		byName[it.Name] = it.Price
	}
	assert.Equal(t, int64(3_510_000), byName["Aviator Classic"], "gold 3.9M less 10%")
	assert.Equal(t, int64(3_200_000), byName["Original Wayfarer"], "first variant wins over the discounted tortoise")
	assert.Equal(t, int64(2_240_000), byName["Holbrook"])
	assert.Equal(t, int64(6_500_000), byName["Round Optical"])
}

func TestAPIProductsFiltersAndSorts(t *testing.T) {
	app := newTestApp(t)

	var asc productsJSON
	app.getJSON(t, "/api/v1/products?sort=price-asc", &asc)
	assert.Equal(t, []string{"Holbrook", "Original Wayfarer", "Aviator Classic", "Round Optical"}, names(asc))

	var desc productsJSON
	app.getJSON(t, "/api/v1/products?sort=price-desc", &desc)
	assert.Equal(t, []string{"Round Optical", "Aviator Classic", "Original Wayfarer", "Holbrook"}, names(desc))

	var gold productsJSON
	app.getJSON(t, "/api/v1/products?color=gold&sort=price-asc", &gold)
	assert.Equal(t, []string{"Aviator Classic", "Round Optical"}, names(gold))

	var sun productsJSON
	app.getJSON(t, "/api/v1/products?category=Sunglasses&brand=rayban", &sun)
	assert.ElementsMatch(t, []string{"Aviator Classic", "Original Wayfarer"}, names(sun))

	var ranged productsJSON
	app.getJSON(t, "/api/v1/products?min=3000000&max=4000000", &ranged)
	assert.ElementsMatch(t, []string{"Aviator Classic", "Original Wayfarer"}, names(ranged))
}

func TestAPIQuoteFollowsColorAndSubVariant(t *testing.T) {
	app := newTestApp(t)

	var q struct {
		ColorID       string `json:"colorId"`
		SubIndex      int    `json:"subVariantIndex"`
		Price         int64  `json:"price"`
		OriginalPrice int64  `json:"originalPrice"`
		Discount      int    `json:"discount"`
		Quantity      int    `json:"quantity"`
		InStock       bool   `json:"inStock"`
	}
	resp := app.getJSON(t, "/api/v1/products/aviator-classic/quote?color=gold&sub=1", &q)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gold", q.ColorID)
	assert.Equal(t, 1, q.SubIndex)
	assert.Equal(t, int64(4_100_000), q.OriginalPrice)
	assert.Equal(t, int64(3_690_000), q.Price)
	assert.Equal(t, 10, q.Discount)
	assert.Equal(t, 2, q.Quantity)
	assert.True(t, q.InStock)

	app.getJSON(t, "/api/v1/products/aviator-classic/quote?color=silver&sub=9", &q)
	assert.Equal(t, "silver", q.ColorID)
	assert.Equal(t, 0, q.SubIndex, "out-of-range sub-variant falls back to the first")
	assert.Equal(t, int64(3_700_000), q.Price)
	assert.False(t, q.InStock)

	app.getJSON(t, "/api/v1/products/aviator-classic/quote?color=purple", &q)
	assert.Equal(t, "gold", q.ColorID, "unknown color falls back to the first variant")
}

func TestAPIQuoteHidesInactiveAndMissing(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, app.getJSON(t, "/api/v1/products/clubmaster/quote", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, app.getJSON(t, "/api/v1/products/nope/quote", nil).StatusCode)
}

func TestProductPageShowsSelection(t *testing.T) {
	app := newTestApp(t)

	status, body := app.page(t, "/product/aviator-classic?color=silver")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Aviator Classic")
	assert.Contains(t, body, "Color: Silver")
	assert.Contains(t, body, "Out of stock")
	assert.Contains(t, body, "You may also like")

	status, body = app.page(t, "/product/aviator-classic?color=gold&sub=1")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "In stock (2)")
	assert.Contains(t, body, "-10%")
}

func TestProductPageNotFound(t *testing.T) {
	app := newTestApp(t)
	status, body := app.page(t, "/product/clubmaster")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "no longer available")

	status, _ = app.page(t, "/product/missing-id")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductsPageRendersFacets(t *testing.T) {
	app := newTestApp(t)
	status, body := app.page(t, "/products?color=Gold")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "2 products")
	assert.Contains(t, body, "Tortoise", "facets count the unfiltered collection")
	assert.NotContains(t, body, "Holbrook")
}

func TestSearchMatchesName(t *testing.T) {
	app := newTestApp(t)
	status, body := app.page(t, "/search?q=wayfarer")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Original Wayfarer")
	assert.NotContains(t, body, "Holbrook")

	status, body = app.page(t, "/search")
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "results for")
}
