package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "eyewear/internal/log"
	"eyewear/internal/services"
	"eyewear/internal/validate"
)

type WishlistHandler struct {
	Wish    *services.WishlistService
	Timeout time.Duration
}

func wantsJSON(c *fiber.Ctx) bool {
	return c.XHR() || strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	items, err := h.Wish.List(ctx, CurrentUser(c))
	if err != nil {
		return fail(c, "wishlist.list.fail", err, "Could not load wishlist", nil)
	}
	return render(c, "wishlist", fiber.Map{"Items": items})
}

// Toggle flips one product's membership. On failure the previous membership
// is reported unchanged.
func (h *WishlistHandler) Toggle(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	set, in, err := h.Wish.Toggle(ctx, CurrentUser(c), pid)
	if err != nil {
		applog.Error(c, "wishlist.toggle.fail", err, map[string]any{"product": pid})
		if wantsJSON(c) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Could not update wishlist", "inWishlist": in, "ids": set.IDs(),
			})
		}
		return c.Status(fiber.StatusBadGateway).SendString("Could not update wishlist")
	}
	applog.Audit(c, "wishlist.toggle", map[string]any{"product": pid, "in": in})
	if wantsJSON(c) {
		return c.JSON(fiber.Map{"inWishlist": in, "ids": set.IDs()})
	}
	back := c.Get(fiber.HeaderReferer)
	if back == "" {
		back = "/product/" + pid
	}
	return c.Redirect(back)
}

func (h *WishlistHandler) Remove(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	if _, err := h.Wish.Remove(ctx, CurrentUser(c), pid); err != nil {
		applog.Error(c, "wishlist.remove.fail", err, map[string]any{"product": pid})
		return c.Status(fiber.StatusBadGateway).SendString("Could not remove item")
	}
	applog.Audit(c, "wishlist.remove", map[string]any{"product": pid})
	return c.Redirect("/wishlist")
}
