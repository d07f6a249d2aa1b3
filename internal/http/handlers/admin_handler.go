package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	json "github.com/goccy/go-json"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/services"
	"eyewear/internal/validate"
)

// maxVariantSlots is how many per-variant file inputs the product form offers.
const maxVariantSlots = 8

type AdminHandler struct {
	Admin   *services.AdminService
	Catalog *services.CatalogService
	Timeout time.Duration
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	page, err := h.Admin.ListProducts(ctx, domain.PageQuery{Limit: 1, Page: 1})
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
	}
	brands, _ := h.Catalog.ListBrands(ctx)
	colors, _ := h.Catalog.ListColors(ctx)
	return render(c, "admin_dashboard", fiber.Map{
		"Products": page.TotalDocs, "Brands": len(brands), "Colors": len(colors),
	})
}

// ---------- products ----------

// GET /admin/products
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	q := domain.PageQuery{Limit: 20, Page: validate.Page(c.Query("page"))}.Normalize()
	page, err := h.Admin.ListProducts(ctx, q)
	if err != nil {
		return fail(c, "admin.products.list.fail", err, "Could not load products", nil)
	}
	return render(c, "admin_products", fiber.Map{
		"Page": page, "Prev": page.Page - 1, "Next": nextPage(page),
		"Listings": h.Catalog.Prepare(ctx, page.Docs),
		"Flash":    c.Query("ok"),
	})
}

func nextPage(p domain.ProductPage) int {
	if p.Page < p.TotalPages {
		return p.Page + 1
	}
	return 0
}

type productFormView struct {
	Form         services.ProductForm
	VariantsJSON string
	Action       string
	Brands       []domain.Brand
	Colors       []domain.Color
	Categories   []domain.Category
	Slots        []int
	Err          string
}

func (h *AdminHandler) productForm(c *fiber.Ctx, status int, v productFormView) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	var err error
	if v.Brands, err = h.Catalog.ListBrands(ctx); err != nil {
		applog.Error(c, "admin.brands.list.fail", err, nil)
	}
	if v.Colors, err = h.Catalog.ListColors(ctx); err != nil {
		applog.Error(c, "admin.colors.list.fail", err, nil)
	}
	if v.Categories, err = h.Catalog.ListCategories(ctx); err != nil {
		applog.Error(c, "admin.categories.list.fail", err, nil)
	}
	if v.VariantsJSON == "" {
		b, _ := json.MarshalIndent(v.Form.Variants, "", "  ")
		v.VariantsJSON = string(b)
	}
	for i := 0; i < maxVariantSlots; i++ {
		v.Slots = append(v.Slots, i)
	}
	return c.Status(status).Render("admin_product_form", withSession(c, fiber.Map{"V": v}))
}

// GET /admin/products/new
func (h *AdminHandler) NewProduct(c *fiber.Ctx) error {
	return h.productForm(c, fiber.StatusOK, productFormView{
		Form:   services.ProductForm{Gender: domain.GenderUnisex, Status: true, Variants: []services.VariantForm{}},
		Action: "/admin/products",
	})
}

// GET /admin/products/:id/edit
func (h *AdminHandler) EditProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Product not found"})
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	p, err := h.Admin.GetProduct(ctx, id)
	if err != nil {
		return fail(c, "admin.products.load.fail", err, "Could not load product", map[string]any{"product": id})
	}
	return h.productForm(c, fiber.StatusOK, productFormView{Form: productToForm(p), Action: "/admin/products/" + id})
}

// POST /admin/products and POST /admin/products/:id
func (h *AdminHandler) SaveProduct(c *fiber.Ctx) error {
	id := ""
	if raw := c.Params("id"); raw != "" {
		var ok bool
		if id, ok = validate.ID(raw); !ok {
			return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Product not found"})
		}
	}
	action := "/admin/products"
	if id != "" {
		action += "/" + id
	}

	f, rawVariants, perr := parseProductForm(c)
	f.ID = id
	if perr != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "variants"})
		return h.productForm(c, fiber.StatusBadRequest, productFormView{Form: f, VariantsJSON: rawVariants, Action: action, Err: perr.Error()})
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	p, err := h.Admin.SaveProduct(ctx, f)
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		applog.Security(c, "validation.fail", map[string]any{"field": ve.Field, "reason": ve.Message})
		return h.productForm(c, fiber.StatusBadRequest, productFormView{Form: f, VariantsJSON: rawVariants, Action: action, Err: ve.Message})
	case err != nil:
		return fail(c, "admin.products.save.fail", err, "Could not save product", map[string]any{"product": id})
	}

	event := "admin.products.create"
	if id != "" {
		event = "admin.products.update"
	}
	applog.Audit(c, event, map[string]any{"product": p.ID, "code": p.Code, "variants": len(p.Variants)})
	return c.Redirect("/admin/products?ok=saved")
}

// POST /admin/products/:id/delete
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	if err := h.Admin.DeleteProduct(ctx, id); err != nil {
		return fail(c, "admin.products.delete.fail", err, "Could not delete product", map[string]any{"product": id})
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"product": id})
	return c.Redirect("/admin/products?ok=deleted")
}

// parseProductForm reads the scalar fields, the variants JSON and the
// per-variant files named images_<index>.
func parseProductForm(c *fiber.Ctx) (services.ProductForm, string, error) {
	status := c.FormValue("status")
	f := services.ProductForm{
		Code:        strings.TrimSpace(c.FormValue("code")),
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		BrandID:     c.FormValue("brand"),
		CategoryID:  c.FormValue("category"),
		Gender:      c.FormValue("gender"),
		Status:      status == "on" || status == "true" || status == "1",
	}
	raw := strings.TrimSpace(c.FormValue("variants"))
	if raw == "" {
		raw = "[]"
	}
	if err := json.Unmarshal([]byte(raw), &f.Variants); err != nil {
		return f, raw, errors.New("Variants must be a JSON list")
	}
	if len(f.Variants) > maxVariantSlots {
		return f, raw, fmt.Errorf("At most %d variants are allowed", maxVariantSlots)
	}
	if form, err := c.MultipartForm(); err == nil {
		for i := range f.Variants {
			for _, fh := range form.File[fmt.Sprintf("images_%d", i)] {
				f.Variants[i].Uploads = append(f.Variants[i].Uploads, uploadOf(fh))
			}
		}
	}
	return f, raw, nil
}

func uploadOf(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func productToForm(p domain.Product) services.ProductForm {
	f := services.ProductForm{
		ID: p.ID, Code: p.Code, Name: p.Name, Description: p.Description,
		BrandID: p.Brand.ID, CategoryID: p.Category.ID, Gender: p.Gender, Status: p.Status,
		Variants: make([]services.VariantForm, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		vf := services.VariantForm{Color: v.Color.ID, BasePrice: v.BasePrice, Discount: v.Discount, Images: v.Images}
		for _, sv := range v.SubVariants {
			vf.SubVariants = append(vf.SubVariants, services.SubVariantForm(sv))
		}
		f.Variants = append(f.Variants, vf)
	}
	return f
}

// ---------- brands ----------

// GET /admin/brands
func (h *AdminHandler) Brands(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	brands, err := h.Admin.ListBrands(ctx)
	if err != nil {
		return fail(c, "admin.brands.list.fail", err, "Could not load brands", nil)
	}
	return render(c, "admin_brands", fiber.Map{"Brands": brands, "Flash": c.Query("ok")})
}

func (h *AdminHandler) brandForm(c *fiber.Ctx, status int, f services.BrandForm, errMsg string) error {
	action := "/admin/brands"
	if f.ID != "" {
		action += "/" + f.ID
	}
	return c.Status(status).Render("admin_brand_form", withSession(c, fiber.Map{"Form": f, "Action": action, "Err": errMsg}))
}

// GET /admin/brands/new
func (h *AdminHandler) NewBrand(c *fiber.Ctx) error {
	return h.brandForm(c, fiber.StatusOK, services.BrandForm{}, "")
}

// GET /admin/brands/:id/edit
func (h *AdminHandler) EditBrand(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Brand not found"})
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	b, err := h.Admin.GetBrand(ctx, id)
	if err != nil {
		return fail(c, "admin.brands.load.fail", err, "Could not load brand", map[string]any{"brand": id})
	}
	return h.brandForm(c, fiber.StatusOK, services.BrandForm{ID: b.ID, Name: b.Name, Image: b.Image}, "")
}

// POST /admin/brands and POST /admin/brands/:id
func (h *AdminHandler) SaveBrand(c *fiber.Ctx) error {
	f := services.BrandForm{Name: c.FormValue("name"), Image: strings.TrimSpace(c.FormValue("image"))}
	if raw := c.Params("id"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Brand not found"})
		}
		f.ID = id
	}
	if fh, err := c.FormFile("file"); err == nil && fh.Size > 0 {
		u := uploadOf(fh)
		f.Upload = &u
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	b, err := h.Admin.SaveBrand(ctx, f)
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		applog.Security(c, "validation.fail", map[string]any{"field": ve.Field, "reason": ve.Message})
		return h.brandForm(c, fiber.StatusBadRequest, f, ve.Message)
	case err != nil:
		return fail(c, "admin.brands.save.fail", err, "Could not save brand", map[string]any{"brand": f.ID})
	}
	event := "admin.brands.create"
	if f.ID != "" {
		event = "admin.brands.update"
	}
	applog.Audit(c, event, map[string]any{"brand": b.ID, "name": b.Name})
	return c.Redirect("/admin/brands?ok=saved")
}

// POST /admin/brands/:id/delete
func (h *AdminHandler) DeleteBrand(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	if err := h.Admin.DeleteBrand(ctx, id); err != nil {
		return fail(c, "admin.brands.delete.fail", err, "Could not delete brand", map[string]any{"brand": id})
	}
	applog.Audit(c, "admin.brands.delete", map[string]any{"brand": id})
	return c.Redirect("/admin/brands?ok=deleted")
}

// ---------- colors ----------

// GET /admin/colors
func (h *AdminHandler) Colors(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	colors, err := h.Admin.ListColors(ctx)
	if err != nil {
		return fail(c, "admin.colors.list.fail", err, "Could not load colors", nil)
	}
	return render(c, "admin_colors", fiber.Map{"Colors": colors, "Flash": c.Query("ok")})
}

func (h *AdminHandler) colorForm(c *fiber.Ctx, status int, f services.ColorForm, errMsg string) error {
	action := "/admin/colors"
	if f.ID != "" {
		action += "/" + f.ID
	}
	return c.Status(status).Render("admin_color_form", withSession(c, fiber.Map{"Form": f, "Action": action, "Err": errMsg}))
}

// GET /admin/colors/new
func (h *AdminHandler) NewColor(c *fiber.Ctx) error {
	return h.colorForm(c, fiber.StatusOK, services.ColorForm{HexCode: "#000000"}, "")
}

// GET /admin/colors/:id/edit
func (h *AdminHandler) EditColor(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Color not found"})
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	col, err := h.Admin.GetColor(ctx, id)
	if err != nil {
		return fail(c, "admin.colors.load.fail", err, "Could not load color", map[string]any{"color": id})
	}
	return h.colorForm(c, fiber.StatusOK, services.ColorForm{ID: col.ID, Name: col.Name, HexCode: col.HexCode}, "")
}

// POST /admin/colors and POST /admin/colors/:id
func (h *AdminHandler) SaveColor(c *fiber.Ctx) error {
	f := services.ColorForm{Name: c.FormValue("name"), HexCode: c.FormValue("hexCode")}
	if raw := c.Params("id"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Color not found"})
		}
		f.ID = id
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	col, err := h.Admin.SaveColor(ctx, f)
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		applog.Security(c, "validation.fail", map[string]any{"field": ve.Field, "reason": ve.Message})
		return h.colorForm(c, fiber.StatusBadRequest, f, ve.Message)
	case err != nil:
		return fail(c, "admin.colors.save.fail", err, "Could not save color", map[string]any{"color": f.ID})
	}
	event := "admin.colors.create"
	if f.ID != "" {
		event = "admin.colors.update"
	}
	applog.Audit(c, event, map[string]any{"color": col.ID, "name": col.Name, "hex": col.HexCode})
	return c.Redirect("/admin/colors?ok=saved")
}

// POST /admin/colors/:id/delete
func (h *AdminHandler) DeleteColor(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()
	if err := h.Admin.DeleteColor(ctx, id); err != nil {
		return fail(c, "admin.colors.delete.fail", err, "Could not delete color", map[string]any{"color": id})
	}
	applog.Audit(c, "admin.colors.delete", map[string]any{"color": id})
	return c.Redirect("/admin/colors?ok=deleted")
}
