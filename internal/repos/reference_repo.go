package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"eyewear/internal/domain"
	"eyewear/internal/services"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.SelectContext(ctx, &out, `
  SELECT
    id,
    name,
    status,
    created_at,
    COALESCE(updated_at,'') AS updated_at
  FROM categories
  ORDER BY name
`)
	return out, err
}

type BrandRepo struct{ db *sqlx.DB }

func NewBrandRepo(db *sqlx.DB) *BrandRepo { return &BrandRepo{db: db} }

func (r *BrandRepo) List(ctx context.Context) ([]domain.Brand, error) {
	var out []domain.Brand
	err := r.db.SelectContext(ctx, &out, `
  SELECT id, name, image, created_at, COALESCE(updated_at,'') AS updated_at
  FROM brands
  ORDER BY name`)
	return out, err
}

func (r *BrandRepo) Get(ctx context.Context, id string) (domain.Brand, error) {
	var b domain.Brand
	err := r.db.GetContext(ctx, &b, `
  SELECT id, name, image, created_at, COALESCE(updated_at,'') AS updated_at
  FROM brands WHERE id=?`, id)
	return b, notFound(err)
}

func (r *BrandRepo) Create(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO brands(id,name,image) VALUES(?,?,?)`, b.ID, b.Name, b.Image)
	if err != nil {
		return domain.Brand{}, uniqueName(err, "Brand", b.Name)
	}
	return r.Get(ctx, b.ID)
}

func (r *BrandRepo) Update(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE brands SET name=?, image=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, b.Name, b.Image, b.ID)
	if err != nil {
		return domain.Brand{}, uniqueName(err, "Brand", b.Name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Brand{}, services.ErrNotFound
	}
	return r.Get(ctx, b.ID)
}

func (r *BrandRepo) Delete(ctx context.Context, id string) error {
	var used int
	if err := r.db.GetContext(ctx, &used, `SELECT COUNT(*) FROM products WHERE brand_id=?`, id); err != nil {
		return err
	}
	if used > 0 {
		return &services.ValidationError{Field: "brand", Message: fmt.Sprintf("Brand is used by %d product(s)", used)}
	}
	return deleteByID(ctx, r.db, "brands", id)
}

type ColorRepo struct{ db *sqlx.DB }

func NewColorRepo(db *sqlx.DB) *ColorRepo { return &ColorRepo{db: db} }

func (r *ColorRepo) List(ctx context.Context) ([]domain.Color, error) {
	var out []domain.Color
	err := r.db.SelectContext(ctx, &out, `
  SELECT id, name, hex_code, created_at, COALESCE(updated_at,'') AS updated_at
  FROM colors
  ORDER BY name`)
	return out, err
}

func (r *ColorRepo) Get(ctx context.Context, id string) (domain.Color, error) {
	var c domain.Color
	err := r.db.GetContext(ctx, &c, `
  SELECT id, name, hex_code, created_at, COALESCE(updated_at,'') AS updated_at
  FROM colors WHERE id=?`, id)
	return c, notFound(err)
}

func (r *ColorRepo) Create(ctx context.Context, c domain.Color) (domain.Color, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO colors(id,name,hex_code) VALUES(?,?,?)`, c.ID, c.Name, c.HexCode)
	if err != nil {
		return domain.Color{}, uniqueName(err, "Color", c.Name)
	}
	return r.Get(ctx, c.ID)
}

func (r *ColorRepo) Update(ctx context.Context, c domain.Color) (domain.Color, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE colors SET name=?, hex_code=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, c.Name, c.HexCode, c.ID)
	if err != nil {
		return domain.Color{}, uniqueName(err, "Color", c.Name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Color{}, services.ErrNotFound
	}
	return r.Get(ctx, c.ID)
}

func (r *ColorRepo) Delete(ctx context.Context, id string) error {
	var used int
	if err := r.db.GetContext(ctx, &used, `SELECT COUNT(DISTINCT product_id) FROM variants WHERE color_id=?`, id); err != nil {
		return err
	}
	if used > 0 {
		return &services.ValidationError{Field: "color", Message: fmt.Sprintf("Color is used by %d product(s)", used)}
	}
	return deleteByID(ctx, r.db, "colors", id)
}

func deleteByID(ctx context.Context, db *sqlx.DB, table, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.ErrNotFound
	}
	return nil
}

func uniqueName(err error, kind, name string) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &services.ValidationError{Field: "name", Message: fmt.Sprintf("%s %s already exists", kind, name)}
	}
	return err
}
