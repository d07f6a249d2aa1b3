package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/services"
)

const userKey = "user"

// DefaultTimeout bounds backend work for one request when none is configured.
const DefaultTimeout = 10 * time.Second

// CurrentUser returns the logged-in user attached to the request, or nil.
func CurrentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(userKey).(*domain.User)
	return u
}

func setUser(c *fiber.Ctx, u *domain.User) {
	if u != nil {
		c.Locals(userKey, u)
	}
}

// LoadUser attaches the session's user, if any, for templates and logging.
func LoadUser(auth *services.AuthService, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			ctx, cancel := requestContext(c, timeout)
			u, err := auth.CurrentUser(ctx, sid)
			cancel()
			if err != nil {
				applog.Error(c, "auth.session.lookup.fail", err, nil)
			}
			setUser(c, u)
		}
		return c.Next()
	}
}

// requestContext derives the backend context for this request. Work still
// running when it ends is abandoned and its result ignored.
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

// fail logs err and renders the error page with a status matching its kind.
func fail(c *fiber.Ctx, action string, err error, msg string, fields map[string]any) error {
	status := fiber.StatusInternalServerError
	var ve *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
		msg = "This item is no longer available"
	case errors.As(err, &ve):
		status = fiber.StatusBadRequest
		msg = ve.Message
	case errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusGatewayTimeout
		msg = "The catalog is taking too long to answer. Please retry."
	}
	if status >= 500 {
		applog.Error(c, action, err, fields)
	} else {
		applog.Info(c, action, mergeFields(fields, map[string]any{"reason": err.Error()}))
	}
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg, "User": CurrentUser(c)})
}

func mergeFields(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
