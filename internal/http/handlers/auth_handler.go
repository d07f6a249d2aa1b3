package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eyewear/internal/log"
	"eyewear/internal/services"
	"eyewear/internal/validate"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Timeout time.Duration
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Next": safeNext(c.Query("next"))})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email := c.FormValue("email")
	pass := c.FormValue("password")
	next := safeNext(c.FormValue("next"))
	deny := func(reason string) error {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"Err": "Invalid email or password", "CSRFToken": c.Cookies("csrf_"), "Next": next,
		})
	}
	if _, ok := validate.Email(email); !ok {
		return deny("bad_format")
	}
	if !validate.Password(pass) {
		return deny("bad_password_format")
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	u, err := h.Auth.Login(ctx, sid, email, pass)
	if err != nil {
		return deny("bad_credentials")
	}
	setUser(c, u)

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect(next)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	if err := h.Auth.Logout(ctx, sid); err != nil {
		log.Error(c, "auth.logout.fail", err, nil)
	}
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if len(next) < 1 || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return "/"
	}
	return next
}
