package repos

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"eyewear/internal/domain"
	"eyewear/internal/services"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

type productRow struct {
	ID           string `db:"id"`
	Code         string `db:"code"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	BrandID      string `db:"brand_id"`
	BrandName    string `db:"brand_name"`
	BrandImage   string `db:"brand_image"`
	CategoryID   string `db:"category_id"`
	CategoryName string `db:"category_name"`
	Gender       string `db:"gender"`
	Status       bool   `db:"status"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

type variantRow struct {
	ID         int64  `db:"id"`
	ProductID  string `db:"product_id"`
	ColorID    string `db:"color_id"`
	ColorName  string `db:"color_name"`
	ColorHex   string `db:"color_hex"`
	BasePrice  int64  `db:"base_price"`
	Discount   int    `db:"discount"`
	ImagesJSON string `db:"images_json"`
}

type subRow struct {
	VariantID       int64  `db:"variant_id"`
	Specification   string `db:"specification"`
	Value           string `db:"value"`
	AdditionalPrice int64  `db:"additional_price"`
	Quantity        int    `db:"quantity"`
}

const productSelect = `
  SELECT
    p.id, p.code, p.name, p.description,
    COALESCE(p.brand_id,'') AS brand_id, COALESCE(b.name,'') AS brand_name, COALESCE(b.image,'') AS brand_image,
    COALESCE(p.category_id,'') AS category_id, COALESCE(c.name,'') AS category_name,
    p.gender, p.status, p.created_at, COALESCE(p.updated_at,'') AS updated_at
  FROM products p
  LEFT JOIN brands b     ON b.id = p.brand_id
  LEFT JOIN categories c ON c.id = p.category_id`

// List returns one page, newest first, active and inactive alike.
func (r *ProductRepo) List(ctx context.Context, q domain.PageQuery) (domain.ProductPage, error) {
	q = q.Normalize()
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return domain.ProductPage{}, err
	}
	var rows []productRow
	err := r.db.SelectContext(ctx, &rows, productSelect+`
  ORDER BY p.created_at DESC, p.rowid DESC
  LIMIT ? OFFSET ?`, q.Limit, q.Offset())
	if err != nil {
		return domain.ProductPage{}, err
	}
	docs, err := r.hydrate(ctx, rows)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return domain.ProductPage{
		Docs:       docs,
		TotalDocs:  total,
		Limit:      q.Limit,
		Page:       q.Page,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var row productRow
	if err := r.db.GetContext(ctx, &row, productSelect+` WHERE p.id = ?`, id); err != nil {
		return domain.Product{}, notFound(err)
	}
	ps, err := r.hydrate(ctx, []productRow{row})
	if err != nil {
		return domain.Product{}, err
	}
	return ps[0], nil
}

// ByIDs returns the products with the given ids in the order given; unknown
// ids are skipped.
func (r *ProductRepo) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(productSelect+` WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	ps, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Product{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertProduct(ctx, tx, p); err != nil {
		return domain.Product{}, uniqueCode(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, err
	}
	return r.Get(ctx, p.ID)
}

// Update replaces the product row and its whole variant tree.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Product{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	  UPDATE products
	  SET code=?, name=?, description=?, brand_id=NULLIF(?,''), category_id=NULLIF(?,''),
	      gender=?, status=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?`,
		p.Code, p.Name, p.Description, p.Brand.ID, p.Category.ID, p.Gender, p.Status, p.ID)
	if err != nil {
		return domain.Product{}, uniqueCode(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, services.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE product_id=?`, p.ID); err != nil {
		return domain.Product{}, err
	}
	if err := insertVariants(ctx, tx, p.ID, p.Variants); err != nil {
		return domain.Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, err
	}
	return r.Get(ctx, p.ID)
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.ErrNotFound
	}
	return nil
}

func insertProduct(ctx context.Context, tx *sqlx.Tx, p domain.Product) error {
	_, err := tx.ExecContext(ctx, `
	  INSERT INTO products(id,code,name,description,brand_id,category_id,gender,status)
	  VALUES(?,?,?,?,NULLIF(?,''),NULLIF(?,''),?,?)`,
		p.ID, p.Code, p.Name, p.Description, p.Brand.ID, p.Category.ID, p.Gender, p.Status)
	if err != nil {
		return err
	}
	return insertVariants(ctx, tx, p.ID, p.Variants)
}

func insertVariants(ctx context.Context, tx *sqlx.Tx, productID string, vs []domain.Variant) error {
	for i, v := range vs {
		images := v.Images
		if images == nil {
			images = []string{}
		}
		imgJSON, err := json.Marshal(images)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
		  INSERT INTO variants(product_id,position,color_id,base_price,discount,images_json)
		  VALUES(?,?,NULLIF(?,''),?,?,?)`,
			productID, i, v.Color.ID, v.BasePrice, v.Discount, string(imgJSON))
		if err != nil {
			return err
		}
		vid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for j, sv := range v.SubVariants {
			if _, err := tx.ExecContext(ctx, `
			  INSERT INTO sub_variants(variant_id,position,specification,value,additional_price,quantity)
			  VALUES(?,?,?,?,?,?)`,
				vid, j, sv.Specification, sv.Value, sv.AdditionalPrice, sv.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

// hydrate attaches variants and sub-variants to product rows, two queries
// for the whole batch.
func (r *ProductRepo) hydrate(ctx context.Context, rows []productRow) ([]domain.Product, error) {
	out := make([]domain.Product, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		index[row.ID] = i
		out[i] = domain.Product{
			ID:          row.ID,
			Code:        row.Code,
			Name:        row.Name,
			Description: row.Description,
			Brand:       domain.Brand{ID: row.BrandID, Name: row.BrandName, Image: row.BrandImage},
			Category:    domain.Category{ID: row.CategoryID, Name: row.CategoryName},
			Gender:      row.Gender,
			Status:      row.Status,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
	}

	query, args, err := sqlx.In(`
	  SELECT v.id, v.product_id, COALESCE(v.color_id,'') AS color_id,
	         COALESCE(c.name,'') AS color_name, COALESCE(c.hex_code,'') AS color_hex,
	         v.base_price, v.discount, v.images_json
	  FROM variants v
	  LEFT JOIN colors c ON c.id = v.color_id
	  WHERE v.product_id IN (?)
	  ORDER BY v.product_id, v.position`, ids)
	if err != nil {
		return nil, err
	}
	var vrows []variantRow
	if err := r.db.SelectContext(ctx, &vrows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	if len(vrows) == 0 {
		return out, nil
	}

	vids := make([]int64, len(vrows))
	for i, v := range vrows {
		vids[i] = v.ID
	}
	query, args, err = sqlx.In(`
	  SELECT variant_id, specification, value, additional_price, quantity
	  FROM sub_variants
	  WHERE variant_id IN (?)
	  ORDER BY variant_id, position`, vids)
	if err != nil {
		return nil, err
	}
	var srows []subRow
	if err := r.db.SelectContext(ctx, &srows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	subs := make(map[int64][]domain.SubVariant, len(vrows))
	for _, s := range srows {
		subs[s.VariantID] = append(subs[s.VariantID], domain.SubVariant{
			Specification:   s.Specification,
			Value:           s.Value,
			AdditionalPrice: s.AdditionalPrice,
			Quantity:        s.Quantity,
		})
	}

	for _, v := range vrows {
		var images []string
		if err := json.Unmarshal([]byte(v.ImagesJSON), &images); err != nil {
			images = nil
		}
		i := index[v.ProductID]
		out[i].Variants = append(out[i].Variants, domain.Variant{
			Color:       domain.Color{ID: v.ColorID, Name: v.ColorName, HexCode: v.ColorHex},
			BasePrice:   v.BasePrice,
			Discount:    v.Discount,
			Images:      images,
			SubVariants: subs[v.ID],
		})
	}
	return out, nil
}

func uniqueCode(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: products.code") {
		return &services.ValidationError{Field: "code", Message: "Product code already exists"}
	}
	return err
}
