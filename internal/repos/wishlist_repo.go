package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"eyewear/internal/domain"
)

type WishlistRepo struct {
	db       *sqlx.DB
	products *ProductRepo
}

func NewWishlistRepo(db *sqlx.DB) *WishlistRepo {
	return &WishlistRepo{db: db, products: NewProductRepo(db)}
}

func (r *WishlistRepo) Add(ctx context.Context, userID, productID string) error {
	if _, err := r.products.Get(ctx, productID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO wishlist_items(user_id, product_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(user_id, product_id) DO NOTHING
	`, userID, productID)
	return err
}

func (r *WishlistRepo) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id=? AND product_id=?`, userID, productID)
	return err
}

// Products returns the wishlisted products, most recently added first.
func (r *WishlistRepo) Products(ctx context.Context, userID string) ([]domain.Product, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
	  SELECT product_id FROM wishlist_items
	  WHERE user_id = ?
	  ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return r.products.ByIDs(ctx, ids)
}
