package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"eyewear/internal/domain"
	"eyewear/internal/services"
)

// Store is the SQLite catalog backend.
type Store struct {
	services.ImageStore

	Products   *ProductRepo
	Brands     *BrandRepo
	Colors     *ColorRepo
	Categories *CategoryRepo
	Wishlists  *WishlistRepo
}

func NewStore(db *sqlx.DB, images services.ImageStore) *Store {
	return &Store{
		ImageStore: images,
		Products:   NewProductRepo(db),
		Brands:     NewBrandRepo(db),
		Colors:     NewColorRepo(db),
		Categories: NewCategoryRepo(db),
		Wishlists:  NewWishlistRepo(db),
	}
}

func (s *Store) ListProducts(ctx context.Context, q domain.PageQuery) (domain.ProductPage, error) {
	return s.Products.List(ctx, q)
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.Products.Get(ctx, id)
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	return s.Products.Create(ctx, p)
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	return s.Products.Update(ctx, p)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.Products.Delete(ctx, id)
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) { return s.Brands.List(ctx) }

func (s *Store) GetBrand(ctx context.Context, id string) (domain.Brand, error) {
	return s.Brands.Get(ctx, id)
}

func (s *Store) CreateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	return s.Brands.Create(ctx, b)
}

func (s *Store) UpdateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	return s.Brands.Update(ctx, b)
}

func (s *Store) DeleteBrand(ctx context.Context, id string) error { return s.Brands.Delete(ctx, id) }

func (s *Store) ListColors(ctx context.Context) ([]domain.Color, error) { return s.Colors.List(ctx) }

func (s *Store) GetColor(ctx context.Context, id string) (domain.Color, error) {
	return s.Colors.Get(ctx, id)
}

func (s *Store) CreateColor(ctx context.Context, c domain.Color) (domain.Color, error) {
	return s.Colors.Create(ctx, c)
}

func (s *Store) UpdateColor(ctx context.Context, c domain.Color) (domain.Color, error) {
	return s.Colors.Update(ctx, c)
}

func (s *Store) DeleteColor(ctx context.Context, id string) error { return s.Colors.Delete(ctx, id) }

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Categories.List(ctx)
}

func (s *Store) AddToWishlist(ctx context.Context, userID, productID string) error {
	return s.Wishlists.Add(ctx, userID, productID)
}

func (s *Store) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return s.Wishlists.Remove(ctx, userID, productID)
}

func (s *Store) GetWishlist(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.Wishlists.Products(ctx, userID)
}

var _ services.Backend = (*Store)(nil)
