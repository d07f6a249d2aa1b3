package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"eyewear/internal/log"
	"eyewear/internal/pricing"
	"eyewear/internal/services"
	"eyewear/internal/validate"
)

// APIHandler exposes priced listings and quotes as JSON.
type APIHandler struct {
	Catalog *services.CatalogService
	Timeout time.Duration
}

type listingJSON struct {
	ID            string   `json:"id"`
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Category      string   `json:"category"`
	Image         string   `json:"image"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"originalPrice"`
	Discount      int      `json:"discount"`
	Colors        []string `json:"colors"`
}

type quoteJSON struct {
	ProductID     string   `json:"productId"`
	ColorID       string   `json:"colorId"`
	Color         string   `json:"color"`
	VariantIndex  int      `json:"variantIndex"`
	SubIndex      int      `json:"subVariantIndex"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"originalPrice"`
	Discount      int      `json:"discount"`
	Quantity      int      `json:"quantity"`
	InStock       bool     `json:"inStock"`
	Images        []string `json:"images"`
}

func toListingJSON(l pricing.Listing) listingJSON {
	out := listingJSON{
		ID: l.Product.ID, Code: l.Product.Code, Name: l.Product.Name,
		Brand: l.Product.Brand.Name, Category: l.Product.Category.Label(),
		Image: l.Image, Price: l.Quote.Current, OriginalPrice: l.Quote.Original, Discount: l.Quote.Discount,
		Colors: make([]string, 0, len(l.Colors)),
	}
	for _, c := range l.Colors {
		out.Colors = append(out.Colors, c.Name)
	}
	return out
}

func apiError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Error(c, action, err, nil)
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": "catalog timed out"})
	default:
		log.Error(c, action, err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "catalog unavailable"})
	}
}

// Products: GET /api/v1/products with the listing filter parameters.
func (h *APIHandler) Products(c *fiber.Ctx) error {
	f, ok := parseFilter(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid brand"})
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	res, err := h.Catalog.Browse(ctx, f)
	if err != nil {
		return apiError(c, "api.products.fail", err)
	}
	items := make([]listingJSON, 0, len(res.Listings))
	for _, l := range res.Listings {
		items = append(items, toListingJSON(l))
	}
	return c.JSON(fiber.Map{"items": items, "total": res.Total, "facets": res.Facets})
}

// Quote: GET /api/v1/products/:id/quote?color=&sub=
func (h *APIHandler) Quote(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	colorID, _ := validate.ID(c.Query("color"))
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	d, err := h.Catalog.Quote(ctx, id, colorID, validate.Index(c.Query("sub")))
	if err != nil {
		return apiError(c, "api.quote.fail", err)
	}
	s := d.Selection
	return c.JSON(quoteJSON{
		ProductID: d.Product.ID, ColorID: s.Color.ID, Color: s.Color.Name,
		VariantIndex: s.VariantIndex, SubIndex: s.SubVariantIndex,
		Price: s.Price, OriginalPrice: s.OriginalPrice, Discount: s.Discount,
		Quantity: s.Quantity, InStock: s.InStock, Images: s.Images,
	})
}
