package services

import (
	"context"
	"strings"

	"eyewear/internal/cache"
	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/pricing"
)

const (
	keyBrands     = "ref:brands"
	keyColors     = "ref:colors"
	keyCategories = "ref:categories"

	homeLimit    = 12
	similarLimit = 4
)

type CatalogService struct {
	Products    ProductStore
	Brands      BrandStore
	Colors      ColorStore
	Categories  CategoryStore
	Cache       *cache.Cache
	Policy      pricing.Policy
	ListLimit   int
	Placeholder string
}

func NewCatalogService(b Backend, c *cache.Cache, policy pricing.Policy, listLimit int, placeholder string) *CatalogService {
	if listLimit <= 0 {
		listLimit = 100
	}
	return &CatalogService{
		Products: b, Brands: b, Colors: b, Categories: b,
		Cache: c, Policy: policy, ListLimit: listLimit, Placeholder: placeholder,
	}
}

func (s *CatalogService) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return cache.Fetch(s.Cache, keyBrands, func() ([]domain.Brand, error) { return s.Brands.ListBrands(ctx) })
}

func (s *CatalogService) ListColors(ctx context.Context) ([]domain.Color, error) {
	return cache.Fetch(s.Cache, keyColors, func() ([]domain.Color, error) { return s.Colors.ListColors(ctx) })
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return cache.Fetch(s.Cache, keyCategories, func() ([]domain.Category, error) { return s.Categories.ListCategories(ctx) })
}

// Invalidate drops cached reference data after an admin change.
func (s *CatalogService) Invalidate(keys ...string) {
	if s.Cache == nil {
		return
	}
	if len(keys) == 0 {
		s.Cache.DeleteByPrefix("ref:")
		return
	}
	for _, k := range keys {
		s.Cache.Delete(k)
	}
}

// Home returns the newest active products for the landing page.
func (s *CatalogService) Home(ctx context.Context) ([]pricing.Listing, error) {
	page, err := s.Products.ListProducts(ctx, domain.PageQuery{Limit: homeLimit, Page: 1})
	if err != nil {
		return nil, err
	}
	ps := s.resolve(ctx, page.Docs)
	return pricing.Listings(pricing.Filter{Policy: s.Policy}.Apply(ps), s.Policy, s.Placeholder), nil
}

// Prepare prices products for display without the active-only filter.
// The back-office lists drafts alongside published products.
func (s *CatalogService) Prepare(ctx context.Context, ps []domain.Product) []pricing.Listing {
	return pricing.Listings(s.resolve(ctx, ps), s.Policy, s.Placeholder)
}

// Browse is a filtered shop page.
type Browse struct {
	Listings []pricing.Listing
	Facets   pricing.Facets
	Filter   pricing.Filter
	Total    int
}

// Browse fetches the first ListLimit products and runs the listing pipeline.
func (s *CatalogService) Browse(ctx context.Context, f pricing.Filter) (Browse, error) {
	return s.browse(ctx, "", f)
}

// Search is Browse restricted to products whose name contains q.
func (s *CatalogService) Search(ctx context.Context, q string, f pricing.Filter) (Browse, error) {
	return s.browse(ctx, strings.ToLower(strings.TrimSpace(q)), f)
}

func (s *CatalogService) browse(ctx context.Context, q string, f pricing.Filter) (Browse, error) {
	page, err := s.Products.ListProducts(ctx, domain.PageQuery{Limit: s.ListLimit, Page: 1})
	if err != nil {
		return Browse{}, err
	}
	ps := s.resolve(ctx, page.Docs)
	if q != "" {
		matched := make([]domain.Product, 0, len(ps))
		for _, p := range ps {
			if strings.Contains(strings.ToLower(p.Name), q) {
				matched = append(matched, p)
			}
		}
		ps = matched
	}
	f.Policy = s.Policy
	kept := f.Apply(ps)
	return Browse{
		Listings: pricing.Listings(kept, s.Policy, s.Placeholder),
		Facets:   pricing.BuildFacets(ps, s.Policy),
		Filter:   f,
		Total:    len(kept),
	}, nil
}

// Detail is the product page model.
type Detail struct {
	Product   domain.Product
	Selection pricing.Selection
	Colors    []domain.Color
	Image     string
	Similar   []pricing.Listing
}

// Detail loads one active product and resolves the color/sub-variant choice.
// Similar products are best effort.
func (s *CatalogService) Detail(ctx context.Context, id, colorID string, sub int) (Detail, error) {
	d, err := s.Quote(ctx, id, colorID, sub)
	if err != nil {
		return Detail{}, err
	}
	page, err := s.Products.ListProducts(ctx, domain.PageQuery{Limit: similarLimit + 1, Page: 1})
	if err != nil {
		applog.L().Warn().Err(err).Str("product", id).Msg("catalog: similar products unavailable")
		return d, nil
	}
	others := make([]domain.Product, 0, len(page.Docs))
	for _, p := range page.Docs {
		if p.ID != id {
			others = append(others, p)
		}
	}
	others = pricing.Filter{Policy: s.Policy}.Apply(s.resolve(ctx, others))
	if len(others) > similarLimit {
		others = others[:similarLimit]
	}
	d.Similar = pricing.Listings(others, s.Policy, s.Placeholder)
	return d, nil
}

// Quote is Detail without the similar-products strip.
func (s *CatalogService) Quote(ctx context.Context, id, colorID string, sub int) (Detail, error) {
	p, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if !p.Status {
		return Detail{}, ErrNotFound
	}
	p = s.resolve(ctx, []domain.Product{p})[0]
	sel := pricing.Select(p, colorID, sub)
	img := s.Placeholder
	if len(sel.Images) > 0 && sel.Images[0] != "" {
		img = sel.Images[0]
	}
	return Detail{Product: p, Selection: sel, Colors: pricing.Colors(p), Image: img}, nil
}

// resolve fills color, brand and category names for references that came
// back as bare ids. Lookup failures leave the references as they are.
func (s *CatalogService) resolve(ctx context.Context, ps []domain.Product) []domain.Product {
	if len(ps) == 0 {
		return ps
	}
	needColors, needBrands, needCats := false, false, false
	for _, p := range ps {
		needBrands = needBrands || (p.Brand.ID != "" && p.Brand.Name == "")
		needCats = needCats || (p.Category.ID != "" && p.Category.Name == "")
		for _, v := range p.Variants {
			needColors = needColors || (v.Color.ID != "" && v.Color.Name == "")
		}
	}

	colors := map[string]domain.Color{}
	if needColors {
		if cs, err := s.ListColors(ctx); err == nil {
			for _, c := range cs {
				colors[c.ID] = c
			}
		} else {
			applog.L().Warn().Err(err).Msg("catalog: color lookup failed")
		}
	}
	brands := map[string]domain.Brand{}
	if needBrands {
		if bs, err := s.ListBrands(ctx); err == nil {
			for _, b := range bs {
				brands[b.ID] = b
			}
		} else {
			applog.L().Warn().Err(err).Msg("catalog: brand lookup failed")
		}
	}
	cats := map[string]domain.Category{}
	if needCats {
		if cs, err := s.ListCategories(ctx); err == nil {
			for _, c := range cs {
				cats[c.ID] = c
			}
		} else {
			applog.L().Warn().Err(err).Msg("catalog: category lookup failed")
		}
	}

	out := make([]domain.Product, len(ps))
	for i, p := range ps {
		if b, ok := brands[p.Brand.ID]; ok && p.Brand.Name == "" {
			p.Brand = b
		}
		if c, ok := cats[p.Category.ID]; ok && p.Category.Name == "" {
			p.Category = c
		}
		if len(colors) > 0 && len(p.Variants) > 0 {
			vs := make([]domain.Variant, len(p.Variants))
			copy(vs, p.Variants)
			for j := range vs {
				if c, ok := colors[vs[j].Color.ID]; ok && vs[j].Color.Name == "" {
					vs[j].Color = c
				}
			}
			p.Variants = vs
		}
		out[i] = p
	}
	return out
}
