package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"eyewear/internal/apiclient"
	"eyewear/internal/config"
	"eyewear/internal/http/handlers"
	applog "eyewear/internal/log"
	"eyewear/internal/repos"
	"eyewear/internal/repos/mongostore"
	"eyewear/internal/services"
	"eyewear/internal/storage"
)

// maxBodySize covers an admin product form with several images per variant.
const maxBodySize = 20 << 20

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			applog.L().Warn().Err(err).Str("file", cfg.LogFile).Msg("could not open log file")
		} else {
			defer f.Close()
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		applog.L().Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	backend, closeBackend, err := openBackend(ctx, cfg, db)
	if err != nil {
		applog.L().Fatal().Err(err).Str("backend", cfg.Backend).Msg("catalog backend")
	}
	defer closeBackend()

	deps, err := handlers.NewDeps(backend, repos.NewUserRepo(db), cfg)
	if err != nil {
		applog.L().Fatal().Err(err).Msg("wire handlers")
	}
	go deps.Cache.Janitor(ctx, cfg.CacheTTL)

	engine := handlers.NewEngine("./web/templates", deps.Money)
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views:       engine,
		BodyLimit:   maxBodySize,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(applog.Access())
	app.Use(helmet.New())
	app.Use(handlers.LoadUser(deps.Auth, cfg.RequestTimeout))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	mediaDir := cfg.MediaDir
	if abs, err := filepath.Abs(mediaDir); err == nil {
		mediaDir = abs
	}
	app.Static("/static", "./web/static")
	app.Get("/media/*", mediaHandler(mediaDir))

	// ---------- Storefront ----------
	shop := deps.ShopHandler
	app.Get("/", shop.Home)
	app.Get("/products", shop.Products)
	app.Get("/search", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), shop.Search)
	app.Get("/product", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "This item is no longer available"})
	})
	app.Get("/product/:id", shop.Detail)

	api := app.Group("/api/v1")
	api.Get("/products", deps.APIHandler.Products)
	api.Get("/products/:id/quote", deps.APIHandler.Quote)

	// Wishlist
	wish := app.Group("/wishlist", handlers.RequireUser(deps.Auth))
	wish.Get("/", deps.WishlistHandler.List)
	wish.Post("/toggle", deps.WishlistHandler.Toggle)
	wish.Post("/remove", deps.WishlistHandler.Remove)

	// Auth routes (login throttled)
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	// ---------- Admin ----------
	adminH := deps.AdminHandler
	admin := app.Group("/admin", handlers.RequireAdmin(deps.Auth))
	admin.Get("/", adminH.Dashboard)
	admin.Get("/products", adminH.Products)
	admin.Get("/products/new", adminH.NewProduct)
	admin.Post("/products", adminH.SaveProduct)
	admin.Get("/products/:id/edit", adminH.EditProduct)
	admin.Post("/products/:id", adminH.SaveProduct)
	admin.Post("/products/:id/delete", adminH.DeleteProduct)
	admin.Get("/brands", adminH.Brands)
	admin.Get("/brands/new", adminH.NewBrand)
	admin.Post("/brands", adminH.SaveBrand)
	admin.Get("/brands/:id/edit", adminH.EditBrand)
	admin.Post("/brands/:id", adminH.SaveBrand)
	admin.Post("/brands/:id/delete", adminH.DeleteBrand)
	admin.Get("/colors", adminH.Colors)
	admin.Get("/colors/new", adminH.NewColor)
	admin.Post("/colors", adminH.SaveColor)
	admin.Get("/colors/:id/edit", adminH.EditColor)
	admin.Post("/colors/:id", adminH.SaveColor)
	admin.Post("/colors/:id/delete", adminH.DeleteColor)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true, "backend": cfg.Backend}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()
	applog.L().Info().Str("port", cfg.Port).Str("backend", cfg.Backend).Msg("listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		applog.L().Fatal().Err(err).Msg("listen")
	}
}

// openBackend builds the catalog backend selected by CATALOG_BACKEND. The
// embedded backends store admin uploads through the configured storage; the
// REST backend uploads through the API itself.
func openBackend(ctx context.Context, cfg config.Config, db *sqlx.DB) (services.Backend, func(), error) {
	nop := func() {}
	if cfg.Backend == "rest" {
		return apiclient.New(cfg.APIBaseURL, cfg.APITimeout), nop, nil
	}

	st, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		return nil, nop, err
	}
	images := storage.Images{Storage: st.Storage}
	applog.L().Info().Str("driver", st.Driver).Msg("image storage ready")

	switch cfg.Backend {
	case "", "sqlite":
		return repos.NewStore(db, images), nop, nil
	case "mongo":
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		mdb, err := mongostore.Connect(cctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nop, err
		}
		store := mongostore.New(mdb, images)
		if err := store.EnsureIndexes(cctx); err != nil {
			return nil, nop, err
		}
		closer := func() { _ = mdb.Client().Disconnect(context.Background()) }
		return store, closer, nil
	}
	return nil, nop, fmt.Errorf("unknown CATALOG_BACKEND: %s", cfg.Backend)
}

// mediaHandler serves files under dir, refusing traversal attempts.
func mediaHandler(dir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(dir, clean), true)
	}
}
