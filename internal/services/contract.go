package services

import (
	"context"
	"errors"
	"io"

	"eyewear/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("login required")
)

// ValidationError is a user-facing rejection raised before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProductStore is the product half of the catalog backend.
type ProductStore interface {
	ListProducts(ctx context.Context, q domain.PageQuery) (domain.ProductPage, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type BrandStore interface {
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	GetBrand(ctx context.Context, id string) (domain.Brand, error)
	CreateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error)
	UpdateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error)
	DeleteBrand(ctx context.Context, id string) error
}

type ColorStore interface {
	ListColors(ctx context.Context) ([]domain.Color, error)
	GetColor(ctx context.Context, id string) (domain.Color, error)
	CreateColor(ctx context.Context, c domain.Color) (domain.Color, error)
	UpdateColor(ctx context.Context, c domain.Color) (domain.Color, error)
	DeleteColor(ctx context.Context, id string) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type WishlistStore interface {
	AddToWishlist(ctx context.Context, userID, productID string) error
	RemoveFromWishlist(ctx context.Context, userID, productID string) error
	GetWishlist(ctx context.Context, userID string) ([]domain.Product, error)
}

// Upload is one image file submitted through an admin form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type ImageStore interface {
	UploadImage(ctx context.Context, u Upload) (string, error)
	DeleteImage(ctx context.Context, url string) error
}

// Backend is everything the storefront and back-office read and write.
type Backend interface {
	ProductStore
	BrandStore
	ColorStore
	CategoryStore
	WishlistStore
	ImageStore
}
