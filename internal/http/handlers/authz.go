package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/services"
)

// resolveUser prefers the user LoadUser attached and falls back to the
// session lookup for routes mounted without it.
func resolveUser(c *fiber.Ctx, auth *services.AuthService, timeout time.Duration) *domain.User {
	if u := CurrentUser(c); u != nil {
		return u
	}
	sid := c.Cookies("sid")
	if sid == "" {
		return nil
	}
	ctx, cancel := requestContext(c, timeout)
	defer cancel()
	u, err := auth.CurrentUser(ctx, sid)
	if err != nil {
		applog.Error(c, "auth.session.lookup.fail", err, nil)
		return nil
	}
	setUser(c, u)
	return u
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Cookies("sid") == "" && CurrentUser(c) == nil {
			return c.Redirect("/login")
		}
		u := resolveUser(c, auth, DefaultTimeout)
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user": u.GetID()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied", "User": u})
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if resolveUser(c, auth, DefaultTimeout) == nil {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}
