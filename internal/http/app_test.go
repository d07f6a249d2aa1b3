package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"eyewear/internal/config"
	"eyewear/internal/http/handlers"
	applog "eyewear/internal/log"
	"eyewear/internal/repos"
	"eyewear/internal/storage"
)

type testApp struct {
	*fiber.App
	DB        *sqlx.DB
	Users     *repos.UserRepo
	UploadDir string
}

func testConfig() config.Config {
	return config.Config{
		DBDSN:            ":memory:",
		PricePolicy:      "first",
		ListLimit:        100,
		Locale:           "en",
		Currency:         "USD",
		CacheTTL:         time.Minute,
		PlaceholderImage: "/static/img/placeholder.svg",
		RequestTimeout:   5 * time.Second,
	}
}

// newTestApp wires the storefront and back-office over an in-memory SQLite
// catalog with uploads going to a temp dir.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	backend := repos.NewStore(db, storage.Images{Storage: storage.NewLocal(dir, "/media/uploads")})
	users := repos.NewUserRepo(db)
	deps, err := handlers.NewDeps(backend, users, cfg)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{Views: handlers.NewEngine("../../web/templates", deps.Money), BodyLimit: 4 << 20})
	app.Use(requestid.New())
	app.Use(handlers.LoadUser(deps.Auth, cfg.RequestTimeout))
	app.Use(csrf.New(csrf.Config{
		KeyLookup: "form:csrf", CookieName: "csrf_", CookieSameSite: "Lax",
		Next: func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") },
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	shop := deps.ShopHandler
	app.Get("/", shop.Home)
	app.Get("/products", shop.Products)
	app.Get("/search", shop.Search)
	app.Get("/product/:id", shop.Detail)
	api := app.Group("/api/v1")
	api.Get("/products", deps.APIHandler.Products)
	api.Get("/products/:id/quote", deps.APIHandler.Quote)

	wish := app.Group("/wishlist", handlers.RequireUser(deps.Auth))
	wish.Get("/", deps.WishlistHandler.List)
	wish.Post("/toggle", deps.WishlistHandler.Toggle)
	wish.Post("/remove", deps.WishlistHandler.Remove)

	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{Max: 3, Expiration: time.Minute}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	a := deps.AdminHandler
	admin := app.Group("/admin", handlers.RequireAdmin(deps.Auth))
	admin.Get("/", a.Dashboard)
	admin.Get("/products", a.Products)
	admin.Get("/products/new", a.NewProduct)
	admin.Post("/products", a.SaveProduct)
	admin.Get("/products/:id/edit", a.EditProduct)
	admin.Post("/products/:id", a.SaveProduct)
	admin.Post("/products/:id/delete", a.DeleteProduct)
	admin.Get("/brands", a.Brands)
	admin.Post("/brands", a.SaveBrand)
	admin.Post("/brands/:id/delete", a.DeleteBrand)
	admin.Get("/colors", a.Colors)
	admin.Post("/colors", a.SaveColor)
	admin.Post("/colors/:id", a.SaveColor)
	admin.Post("/colors/:id/delete", a.DeleteColor)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return &testApp{App: app, DB: db, Users: users, UploadDir: dir}
}

// session binds sid to a seeded user.
func (a *testApp) session(t *testing.T, sid, userID string) *http.Cookie {
	t.Helper()
	require.NoError(t, a.Users.BindSession(context.Background(), sid, userID))
	return &http.Cookie{Name: "sid", Value: sid}
}

func (a *testApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := a.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func (a *testApp) csrfToken(t *testing.T) string {
	t.Helper()
	resp := a.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))
	tok := cookieValue(resp, "csrf_")
	require.NotEmpty(t, tok, "csrf token missing")
	return tok
}

// postForm sends an urlencoded form carrying the CSRF token plus cookies.
func (a *testApp) postForm(t *testing.T, path string, vals url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	tok := a.csrfToken(t)
	if vals == nil {
		vals = url.Values{}
	}
	vals.Set("csrf", tok)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return a.do(t, req)
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs redirects the structured logger while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
