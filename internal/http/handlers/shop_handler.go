package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"eyewear/internal/domain"
	"eyewear/internal/log"
	"eyewear/internal/pricing"
	"eyewear/internal/services"
	"eyewear/internal/validate"
)

// ShopHandler serves the storefront pages: home, listing, search and the
// product page.
type ShopHandler struct {
	Catalog *services.CatalogService
	Wish    *services.WishlistService
	Timeout time.Duration
}

func queryMulti(c *fiber.Ctx, key string) []string {
	var out []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}

// parseFilter reads the listing filter from the query string. ok is false
// when the brand parameter is malformed.
func parseFilter(c *fiber.Ctx) (pricing.Filter, bool) {
	f := pricing.Filter{
		Categories: validate.Names(queryMulti(c, "category")),
		Colors:     validate.Names(queryMulti(c, "color")),
		MinPrice:   validate.Price(c.Query("min")),
		MaxPrice:   validate.Price(c.Query("max")),
		Sort:       pricing.ParseSortMode(c.Query("sort")),
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		f.MinPrice, f.MaxPrice = f.MaxPrice, f.MinPrice
	}
	if raw := strings.TrimSpace(c.Query("brand")); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return f, false
		}
		f.BrandID = id
	}
	return f, true
}

func (h *ShopHandler) wishlist(c *fiber.Ctx) services.IDSet {
	u := CurrentUser(c)
	if u == nil || h.Wish == nil {
		return services.IDSet{}
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	set, err := h.Wish.IDs(ctx, u)
	if err != nil {
		log.Error(c, "wishlist.load.fail", err, nil)
		return services.IDSet{}
	}
	return set
}

func (h *ShopHandler) Home(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	listings, err := h.Catalog.Home(ctx)
	if err != nil {
		return fail(c, "home.load.fail", err, "Could not load products. Please retry.", nil)
	}
	return render(c, "home", fiber.Map{"Listings": listings, "Wish": h.wishlist(c)})
}

// Products is the filterable listing at /products.
func (h *ShopHandler) Products(c *fiber.Ctx) error {
	f, ok := parseFilter(c)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "brand"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Invalid filter"})
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	res, err := h.Catalog.Browse(ctx, f)
	if err != nil {
		return fail(c, "products.list.fail", err, "Could not load products. Please retry.", nil)
	}
	brands, err := h.Catalog.ListBrands(ctx)
	if err != nil {
		log.Error(c, "brands.list.fail", err, nil)
	}
	return render(c, "products", fiber.Map{
		"Browse": res, "Brands": brands, "Filter": f, "Wish": h.wishlist(c),
		"Sorts": []pricing.SortMode{pricing.SortDefault, pricing.SortPriceAsc, pricing.SortPriceDesc},
	})
}

func (h *ShopHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		// Initial page load: show empty search without errors
		return render(c, "search", fiber.Map{"Q": "", "Listings": []pricing.Listing{}, "Count": 0})
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
		return c.Status(fiber.StatusBadRequest).Render("search", fiber.Map{
			"Q": "", "Listings": []pricing.Listing{}, "Count": 0, "Err": "Enter a valid keyword (letters/numbers only)",
		})
	}
	f, ok := parseFilter(c)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "brand"})
		return c.Status(fiber.StatusBadRequest).Render("search", fiber.Map{
			"Q": q, "Listings": []pricing.Listing{}, "Count": 0, "Err": "Invalid filter",
		})
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	res, err := h.Catalog.Search(ctx, q, f)
	if err != nil {
		return fail(c, "search.error", err, "Could not load results. Please retry.", map[string]any{"q": q})
	}
	return render(c, "search", fiber.Map{
		"Q": q, "Browse": res, "Listings": res.Listings, "Count": res.Total, "Filter": f, "Wish": h.wishlist(c),
	})
}

// Detail renders /product/:id?color=<colorId>&sub=<index>.
func (h *ShopHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "This item is no longer available"})
	}
	colorID, _ := validate.ID(c.Query("color"))
	sub := validate.Index(c.Query("sub"))

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	d, err := h.Catalog.Detail(ctx, id, colorID, sub)
	if err != nil {
		return fail(c, "product.load.fail", err, "Could not load this product. Please retry.", map[string]any{"product": id})
	}
	wish := h.wishlist(c)
	return render(c, "product", fiber.Map{
		"D":          d,
		"P":          d.Product,
		"Sel":        d.Selection,
		"InWishlist": wish.Has(d.Product.ID),
		"Wish":       wish,
		"Gender":     genderLabel(d.Product.Gender),
	})
}

func genderLabel(g string) string {
	switch g {
	case domain.GenderMale:
		return "Men"
	case domain.GenderFemale:
		return "Women"
	case domain.GenderUnisex:
		return "Unisex"
	}
	return domain.Unspecified
}
