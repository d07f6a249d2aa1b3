package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationBadInputs(t *testing.T) {
	app := newTestApp(t)

	var status int
	entries := captureLogs(t, func() { status, _ = app.page(t, "/search?q=%3Cscript%3E") })
	assert.Equal(t, http.StatusBadRequest, status)
	e, ok := findAction(entries, "validation.fail")
	require.True(t, ok)
	assert.Equal(t, "q", e.Fields["field"])

	status, _ = app.page(t, "/products?brand=%27%20OR%201%3D1")
	assert.Equal(t, http.StatusBadRequest, status)

	resp := app.getJSON(t, "/api/v1/products?brand=%3Cx%3E", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, _ = app.page(t, "/product/%3Cbad%3E")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGarbagePriceAndSortAreIgnored(t *testing.T) {
	app := newTestApp(t)
	var out productsJSON
	resp := app.getJSON(t, "/api/v1/products?min=abc&max=-5&sort=sideways", &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, out.Total)
}

func TestSwappedPriceBoundsAreNormalized(t *testing.T) {
	app := newTestApp(t)
	var out productsJSON
	app.getJSON(t, "/api/v1/products?min=4000000&max=3000000", &out)
	assert.ElementsMatch(t, []string{"Aviator Classic", "Original Wayfarer"}, names(out))
}
