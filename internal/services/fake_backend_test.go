package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eyewear/internal/domain"
	"eyewear/internal/services"
)

// memBackend is an in-memory services.Backend with switchable failures.
type memBackend struct {
	mu         sync.Mutex
	products   []domain.Product
	brands     []domain.Brand
	colors     []domain.Color
	categories []domain.Category
	wishlist   map[string][]string
	uploaded   []string
	deleted    []string
	seq        int

	listCalls   int
	colorCalls  int
	failList    error
	failWrite   error
	failWish    error
	failWishGet error
	failUpload  map[string]error
}

func newMemBackend() *memBackend {
	return &memBackend{wishlist: map[string][]string{}, failUpload: map[string]error{}}
}

func (m *memBackend) ListProducts(_ context.Context, q domain.PageQuery) (domain.ProductPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.failList != nil {
		return domain.ProductPage{}, m.failList
	}
	q = q.Normalize()
	docs := m.products
	if off := q.Offset(); off < len(docs) {
		docs = docs[off:]
	} else {
		docs = nil
	}
	if len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return domain.ProductPage{Docs: append([]domain.Product(nil), docs...), TotalDocs: len(m.products), Limit: q.Limit, Page: q.Page}, nil
}

func (m *memBackend) GetProduct(_ context.Context, id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, services.ErrNotFound
}

func (m *memBackend) CreateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return domain.Product{}, m.failWrite
	}
	m.seq++
	p.ID = fmt.Sprintf("p%d", m.seq)
	m.products = append(m.products, p)
	return p, nil
}

func (m *memBackend) UpdateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return domain.Product{}, m.failWrite
	}
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return p, nil
		}
	}
	return domain.Product{}, services.ErrNotFound
}

func (m *memBackend) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *memBackend) ListBrands(context.Context) ([]domain.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Brand(nil), m.brands...), nil
}

func (m *memBackend) GetBrand(_ context.Context, id string) (domain.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Brand{}, services.ErrNotFound
}

func (m *memBackend) CreateBrand(_ context.Context, b domain.Brand) (domain.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return domain.Brand{}, m.failWrite
	}
	m.seq++
	b.ID = fmt.Sprintf("b%d", m.seq)
	m.brands = append(m.brands, b)
	return b, nil
}

func (m *memBackend) UpdateBrand(_ context.Context, b domain.Brand) (domain.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.brands {
		if m.brands[i].ID == b.ID {
			m.brands[i] = b
			return b, nil
		}
	}
	return domain.Brand{}, services.ErrNotFound
}

func (m *memBackend) DeleteBrand(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.brands {
		if m.brands[i].ID == id {
			m.brands = append(m.brands[:i], m.brands[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *memBackend) ListColors(context.Context) ([]domain.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colorCalls++
	return append([]domain.Color(nil), m.colors...), nil
}

func (m *memBackend) GetColor(_ context.Context, id string) (domain.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.colors {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Color{}, services.ErrNotFound
}

func (m *memBackend) CreateColor(_ context.Context, c domain.Color) (domain.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c.ID = fmt.Sprintf("c%d", m.seq)
	m.colors = append(m.colors, c)
	return c, nil
}

func (m *memBackend) UpdateColor(_ context.Context, c domain.Color) (domain.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.colors {
		if m.colors[i].ID == c.ID {
			m.colors[i] = c
			return c, nil
		}
	}
	return domain.Color{}, services.ErrNotFound
}

func (m *memBackend) DeleteColor(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.colors {
		if m.colors[i].ID == id {
			m.colors = append(m.colors[:i], m.colors[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *memBackend) ListCategories(context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Category(nil), m.categories...), nil
}

func (m *memBackend) AddToWishlist(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWish != nil {
		return m.failWish
	}
	for _, id := range m.wishlist[userID] {
		if id == productID {
			return nil
		}
	}
	m.wishlist[userID] = append(m.wishlist[userID], productID)
	return nil
}

func (m *memBackend) RemoveFromWishlist(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWish != nil {
		return m.failWish
	}
	ids := m.wishlist[userID][:0]
	for _, id := range m.wishlist[userID] {
		if id != productID {
			ids = append(ids, id)
		}
	}
	m.wishlist[userID] = ids
	return nil
}

func (m *memBackend) GetWishlist(_ context.Context, userID string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWishGet != nil {
		return nil, m.failWishGet
	}
	var out []domain.Product
	for _, id := range m.wishlist[userID] {
		p := domain.Product{ID: id}
		for _, x := range m.products {
			if x.ID == id {
				p = x
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memBackend) UploadImage(_ context.Context, u services.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpload[u.Filename]; err != nil {
		return "", err
	}
	url := "/media/" + u.Filename
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *memBackend) DeleteImage(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

var errBoom = errors.New("boom")

var _ services.Backend = (*memBackend)(nil)
