package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
)

type SubVariantForm struct {
	Specification   string `json:"specification" validate:"required,max=50"`
	Value           string `json:"value" validate:"required,max=50"`
	AdditionalPrice int64  `json:"additionalPrice" validate:"gte=0"`
	Quantity        int    `json:"quantity" validate:"gte=0"`
}

type VariantForm struct {
	Color       string           `json:"color"`
	BasePrice   int64            `json:"basePrice"`
	Discount    int              `json:"discount" validate:"gte=0,lte=100"`
	Images      []string         `json:"images"`
	SubVariants []SubVariantForm `json:"subVariants" validate:"dive"`

	// Uploads are new image files for this variant.
	Uploads []Upload `json:"-"`
}

type ProductForm struct {
	ID          string        `form:"-"`
	Code        string        `form:"code" validate:"omitempty,max=20"`
	Name        string        `form:"name" validate:"required,max=200"`
	Description string        `form:"description" validate:"required"`
	BrandID     string        `form:"brand" validate:"required"`
	CategoryID  string        `form:"category" validate:"required"`
	Gender      string        `form:"gender" validate:"required,oneof=male female unisex"`
	Status      bool          `form:"status"`
	Variants    []VariantForm `form:"-"`
}

type BrandForm struct {
	ID     string  `form:"-"`
	Name   string  `form:"name" validate:"required,max=100"`
	Image  string  `form:"image" validate:"omitempty,max=500"`
	Upload *Upload `form:"-"`
}

type ColorForm struct {
	ID      string `form:"-"`
	Name    string `form:"name" validate:"required,max=50"`
	HexCode string `form:"hexCode" validate:"required,hexcolor"`
}

// AdminService backs the back-office product, brand and color screens.
type AdminService struct {
	Backend  Backend
	Catalog  *CatalogService
	validate *validator.Validate
}

func NewAdminService(b Backend, catalog *CatalogService) *AdminService {
	return &AdminService{Backend: b, Catalog: catalog, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ---------- products ----------

func (s *AdminService) ListProducts(ctx context.Context, q domain.PageQuery) (domain.ProductPage, error) {
	return s.Backend.ListProducts(ctx, q.Normalize())
}

func (s *AdminService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.Backend.GetProduct(ctx, id)
}

// SaveProduct validates the form, uploads new images as one batch and
// creates or updates the product. If any upload or the final write fails,
// every image uploaded by this call is deleted again.
func (s *AdminService) SaveProduct(ctx context.Context, f ProductForm) (domain.Product, error) {
	colorNames := s.colorNames(ctx)
	if err := s.ValidateProduct(f, colorNames); err != nil {
		return domain.Product{}, err
	}

	var batch []Upload
	for _, v := range f.Variants {
		batch = append(batch, v.Uploads...)
	}
	urls, err := s.uploadAll(ctx, batch)
	if err != nil {
		return domain.Product{}, err
	}

	p := domain.Product{
		ID:          f.ID,
		Code:        strings.TrimSpace(f.Code),
		Name:        strings.TrimSpace(f.Name),
		Description: f.Description,
		Brand:       domain.Brand{ID: f.BrandID},
		Category:    domain.Category{ID: f.CategoryID},
		Gender:      f.Gender,
		Status:      f.Status,
	}
	if p.Code == "" {
		p.Code = GenerateProductCode()
	}
	next := 0
	for _, vf := range f.Variants {
		v := domain.Variant{
			Color:     domain.Color{ID: vf.Color, Name: colorNames[vf.Color]},
			BasePrice: vf.BasePrice,
			Discount:  vf.Discount,
			Images:    append([]string(nil), vf.Images...),
		}
		v.Images = append(v.Images, urls[next:next+len(vf.Uploads)]...)
		next += len(vf.Uploads)
		for _, sv := range vf.SubVariants {
			v.SubVariants = append(v.SubVariants, domain.SubVariant{
				Specification:   strings.TrimSpace(sv.Specification),
				Value:           strings.TrimSpace(sv.Value),
				AdditionalPrice: sv.AdditionalPrice,
				Quantity:        sv.Quantity,
			})
		}
		p.Variants = append(p.Variants, v)
	}

	var saved domain.Product
	if p.ID == "" {
		saved, err = s.Backend.CreateProduct(ctx, p)
	} else {
		saved, err = s.Backend.UpdateProduct(ctx, p)
	}
	if err != nil {
		s.cleanup(ctx, urls)
		return domain.Product{}, err
	}
	return saved, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	return s.Backend.DeleteProduct(ctx, id)
}

// ValidateProduct applies the submission rules. Messages name the offending
// variant by color.
func (s *AdminService) ValidateProduct(f ProductForm, colorNames map[string]string) error {
	if d := strings.TrimSpace(f.Description); d == "" || d == "<p><br></p>" {
		return &ValidationError{Field: "description", Message: "Product description is required"}
	}
	if err := s.check(f); err != nil {
		return err
	}
	if len(f.Variants) == 0 {
		return &ValidationError{Field: "variants", Message: "At least one variant with sub-variants and images is required"}
	}
	name := func(v VariantForm) string {
		if n := colorNames[v.Color]; n != "" {
			return n
		}
		if v.Color != "" {
			return v.Color
		}
		return "without color"
	}

	seen := map[string]bool{}
	for _, v := range f.Variants {
		if v.Color == "" {
			continue
		}
		if seen[v.Color] {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("Color %s is used by more than one variant", name(v))}
		}
		seen[v.Color] = true
	}

	for _, v := range f.Variants {
		if v.Color == "" || v.BasePrice <= 0 {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("Variant %s needs a color and a base price above zero", name(v))}
		}
		if len(v.SubVariants) == 0 {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("Variant %s needs at least one sub-variant", name(v))}
		}
		if len(v.Images)+len(v.Uploads) == 0 {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("Variant %s needs at least one image", name(v))}
		}
		keys := map[string]bool{}
		for _, sv := range v.SubVariants {
			k := strings.TrimSpace(sv.Specification) + "-" + strings.TrimSpace(sv.Value)
			if keys[k] {
				return &ValidationError{Field: "variants", Message: fmt.Sprintf("Variant %s has duplicate sub-variant %s", name(v), k)}
			}
			keys[k] = true
		}
		if err := s.check(v); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Message = fmt.Sprintf("Variant %s: %s", name(v), ve.Message)
			}
			return err
		}
	}
	return nil
}

// GenerateProductCode returns "SP" followed by five distinct digits.
func GenerateProductCode() string {
	var b strings.Builder
	b.WriteString("SP")
	for _, d := range rand.Perm(10)[:5] {
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}

// ---------- brands ----------

func (s *AdminService) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.Backend.ListBrands(ctx)
}

func (s *AdminService) GetBrand(ctx context.Context, id string) (domain.Brand, error) {
	return s.Backend.GetBrand(ctx, id)
}

func (s *AdminService) SaveBrand(ctx context.Context, f BrandForm) (domain.Brand, error) {
	f.Name = strings.TrimSpace(f.Name)
	if err := s.check(f); err != nil {
		return domain.Brand{}, err
	}
	var uploaded []string
	if f.Upload != nil {
		urls, err := s.uploadAll(ctx, []Upload{*f.Upload})
		if err != nil {
			return domain.Brand{}, err
		}
		uploaded = urls
		f.Image = urls[0]
	}
	b := domain.Brand{ID: f.ID, Name: f.Name, Image: f.Image}
	var (
		saved domain.Brand
		err   error
	)
	if b.ID == "" {
		saved, err = s.Backend.CreateBrand(ctx, b)
	} else {
		saved, err = s.Backend.UpdateBrand(ctx, b)
	}
	if err != nil {
		s.cleanup(ctx, uploaded)
		return domain.Brand{}, err
	}
	s.Catalog.Invalidate(keyBrands)
	return saved, nil
}

func (s *AdminService) DeleteBrand(ctx context.Context, id string) error {
	if err := s.Backend.DeleteBrand(ctx, id); err != nil {
		return err
	}
	s.Catalog.Invalidate(keyBrands)
	return nil
}

// ---------- colors ----------

func (s *AdminService) ListColors(ctx context.Context) ([]domain.Color, error) {
	return s.Backend.ListColors(ctx)
}

func (s *AdminService) GetColor(ctx context.Context, id string) (domain.Color, error) {
	return s.Backend.GetColor(ctx, id)
}

func (s *AdminService) SaveColor(ctx context.Context, f ColorForm) (domain.Color, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.HexCode = strings.ToUpper(strings.TrimSpace(f.HexCode))
	if err := s.check(f); err != nil {
		return domain.Color{}, err
	}
	existing, err := s.Backend.ListColors(ctx)
	if err != nil {
		return domain.Color{}, err
	}
	for _, c := range existing {
		if c.ID != f.ID && strings.EqualFold(c.Name, f.Name) {
			return domain.Color{}, &ValidationError{Field: "name", Message: fmt.Sprintf("Color %s already exists", c.Name)}
		}
	}
	c := domain.Color{ID: f.ID, Name: f.Name, HexCode: f.HexCode}
	var saved domain.Color
	if c.ID == "" {
		saved, err = s.Backend.CreateColor(ctx, c)
	} else {
		saved, err = s.Backend.UpdateColor(ctx, c)
	}
	if err != nil {
		return domain.Color{}, err
	}
	s.Catalog.Invalidate(keyColors)
	return saved, nil
}

func (s *AdminService) DeleteColor(ctx context.Context, id string) error {
	if err := s.Backend.DeleteColor(ctx, id); err != nil {
		return err
	}
	s.Catalog.Invalidate(keyColors)
	return nil
}

// ---------- helpers ----------

// uploadAll uploads in order and stops at the first failure, deleting what
// this batch already uploaded.
func (s *AdminService) uploadAll(ctx context.Context, batch []Upload) ([]string, error) {
	urls := make([]string, 0, len(batch))
	for _, u := range batch {
		url, err := s.Backend.UploadImage(ctx, u)
		if err != nil {
			s.cleanup(ctx, urls)
			return nil, fmt.Errorf("upload %s: %w", u.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *AdminService) cleanup(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := s.Backend.DeleteImage(ctx, u); err != nil {
			applog.L().Warn().Err(err).Str("url", u).Msg("admin: could not delete orphaned upload")
		}
	}
}

func (s *AdminService) colorNames(ctx context.Context) map[string]string {
	out := map[string]string{}
	cs, err := s.Catalog.ListColors(ctx)
	if err != nil {
		return out
	}
	for _, c := range cs {
		out[c.ID] = c.Name
	}
	return out
}

func (s *AdminService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return &ValidationError{Field: fe.Field(), Message: messageForTag(fe.Field(), fe.Tag(), fe.Param())}
	}
	return &ValidationError{Message: "Invalid form data"}
}

func messageForTag(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + param + " characters"
	case "gte":
		return field + " must be at least " + param
	case "lte":
		return field + " must be at most " + param
	case "oneof":
		return field + " must be one of: " + param
	case "hexcolor":
		return field + " must be a hex color such as #1A2B3C"
	default:
		return field + " is invalid"
	}
}
