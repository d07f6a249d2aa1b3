package handlers_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	field, name, contentType string
	data                     []byte
}

// postMultipart sends an admin form with files, the way the product editor does.
func (a *testApp) postMultipart(t *testing.T, path string, fields map[string]string, files []upload, sid *http.Cookie) *http.Response {
	t.Helper()
	tok := a.csrfToken(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("csrf", tok))
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(f.data)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	req.AddCookie(sid)
	return a.do(t, req)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func productFields(variants string) map[string]string {
	return map[string]string{
		"name":        "Panto Titanium",
		"description": "<p>Featherweight titanium panto.</p>",
		"brand":       "gucci",
		"category":    "eyeglasses",
		"gender":      "female",
		"status":      "on",
		"variants":    variants,
	}
}

func TestAdminCreatesProductWithUploads(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")
	variants := `[{"color":"gold","basePrice":5000000,"discount":20,"images":[],
	  "subVariants":[{"specification":"Size","value":"48","additionalPrice":0,"quantity":3}]}]`

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = app.postMultipart(t, "/admin/products", productFields(variants),
			[]upload{{field: "images_0", name: "front.png", contentType: "image/png", data: pngBytes}}, sid)
	})
	require.Equal(t, http.StatusFound, resp.StatusCode, "expected redirect after save")
	assert.Equal(t, "/admin/products?ok=saved", resp.Header.Get("Location"))

	e, ok := findAction(entries, "admin.products.create")
	require.True(t, ok)
	assert.Equal(t, "u-admin", e.UserID)
	assert.Regexp(t, `^SP\d{5}$`, e.Fields["code"])

	var id string
	require.NoError(t, app.DB.Get(&id, `SELECT id FROM products WHERE name='Panto Titanium'`))
	var images string
	require.NoError(t, app.DB.Get(&images, `SELECT images_json FROM variants WHERE product_id=?`, id))
	assert.Contains(t, images, "/media/uploads/")

	files, err := os.ReadDir(app.UploadDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	var q struct {
		Price int64 `json:"price"`
	}
	app.getJSON(t, "/api/v1/products/"+id+"/quote", &q)
	assert.Equal(t, int64(4_000_000), q.Price)
}

func TestAdminProductValidationRerendersForm(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")

	cases := []struct {
		name     string
		variants string
		want     string
	}{
		{"no variants", `[]`, "At least one variant"},
		{"malformed json", `[{`, "Variants must be a JSON list"},
		{"duplicate color", `[
		  {"color":"gold","basePrice":1,"images":["/a.jpg"],"subVariants":[{"specification":"Size","value":"1","quantity":1}]},
		  {"color":"gold","basePrice":1,"images":["/b.jpg"],"subVariants":[{"specification":"Size","value":"1","quantity":1}]}]`,
			"Color Gold is used by more than one variant"},
		{"no image", `[{"color":"black","basePrice":10,"subVariants":[{"specification":"Size","value":"1","quantity":1}]}]`,
			"Variant Black needs at least one image"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := app.postMultipart(t, "/admin/products", productFields(tc.variants), nil, sid)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tc.want)
		})
	}

	var n int
	require.NoError(t, app.DB.Get(&n, `SELECT COUNT(*) FROM products`))
	assert.Equal(t, 5, n, "nothing is written on a rejected form")
}

func TestAdminRejectedUploadLeavesNoFiles(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")
	variants := `[{"color":"gold","basePrice":100,"images":[],"subVariants":[{"specification":"Size","value":"1","quantity":1}]}]`

	resp := app.postMultipart(t, "/admin/products", productFields(variants), []upload{
		{field: "images_0", name: "a.png", contentType: "image/png", data: pngBytes},
		{field: "images_0", name: "notes.txt", contentType: "text/plain", data: []byte("hi")},
	}, sid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	files, err := os.ReadDir(app.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, files, "the image uploaded before the failure is removed")
}

func TestAdminEditsAndDeletesProduct(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")

	code, body := app.page(t, "/admin/products/holbrook/edit", sid)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Holbrook")
	assert.Contains(t, body, "basePrice")

	fields := productFields(`[{"color":"black","basePrice":2000000,"images":["/static/img/products/holbrook-black.jpg"],
	  "subVariants":[{"specification":"Size","value":"55","quantity":5}]}]`)
	fields["code"] = "SP31456"
	fields["name"] = "Holbrook XL"
	resp := app.postMultipart(t, "/admin/products/holbrook", fields, nil, sid)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var name string
	require.NoError(t, app.DB.Get(&name, `SELECT name FROM products WHERE id='holbrook'`))
	assert.Equal(t, "Holbrook XL", name)

	var out struct {
		Price int64 `json:"price"`
	}
	app.getJSON(t, "/api/v1/products/holbrook/quote", &out)
	assert.Equal(t, int64(2_000_000), out.Price)

	entries := captureLogs(t, func() {
		resp = app.postForm(t, "/admin/products/holbrook/delete", nil, sid)
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	_, ok := findAction(entries, "admin.products.delete")
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, app.getJSON(t, "/api/v1/products/holbrook/quote", nil).StatusCode)
}

func TestAdminColorRules(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = app.postForm(t, "/admin/colors", url.Values{"name": {" Navy "}, "hexCode": {"#1f2a44"}}, sid)
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	e, ok := findAction(entries, "admin.colors.create")
	require.True(t, ok)
	assert.Equal(t, "Navy", e.Fields["name"])
	assert.Equal(t, "#1F2A44", e.Fields["hex"])

	resp = app.postForm(t, "/admin/colors", url.Values{"name": {"BLACK"}, "hexCode": {"#111111"}}, sid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Color Black already exists")

	resp = app.postForm(t, "/admin/colors", url.Values{"name": {"Teal"}, "hexCode": {"teal"}}, sid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.postForm(t, "/admin/colors/black/delete", nil, sid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "colors in use cannot be deleted")
}

func TestAdminColorChangeReachesStorefront(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")

	// warm the reference cache
	_, _ = app.page(t, "/products")
	resp := app.postForm(t, "/admin/colors/tortoise", url.Values{"name": {"Havana"}, "hexCode": {"#8B4513"}}, sid)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := app.page(t, "/product/wayfarer?color=tortoise")
	assert.Contains(t, body, "Color: Havana")
}

func TestAdminBrandRules(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")

	resp := app.postMultipart(t, "/admin/brands", map[string]string{"name": "Persol"},
		[]upload{{field: "file", name: "persol.png", contentType: "image/png", data: pngBytes}}, sid)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var image string
	require.NoError(t, app.DB.Get(&image, `SELECT image FROM brands WHERE name='Persol'`))
	assert.Contains(t, image, "/media/uploads/")

	resp = app.postForm(t, "/admin/brands/rayban/delete", nil, sid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "brands in use cannot be deleted")

	var id string
	require.NoError(t, app.DB.Get(&id, `SELECT id FROM brands WHERE name='Persol'`))
	resp = app.postForm(t, "/admin/brands/"+id+"/delete", nil, sid)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestAdminDashboardAndLists(t *testing.T) {
	app := newTestApp(t)
	sid := app.session(t, "sid-admin", "u-admin")

	code, body := app.page(t, "/admin", sid)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "5 products")

	code, body = app.page(t, "/admin/products", sid)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Clubmaster", "drafts are listed in the back office")
	assert.Contains(t, body, "Hidden")

	code, body = app.page(t, "/admin/colors", sid)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "#D4AF37")
}
