package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/services"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedCatalog(db); err != nil {
		return nil, err
	}
	// idempotent; safe to run every start
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS brands(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  image TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_brands_name_nocase ON brands(LOWER(name));

CREATE TABLE IF NOT EXISTS colors(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  hex_code TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_colors_name_nocase ON colors(LOWER(name));

CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  brand_id TEXT REFERENCES brands(id) ON DELETE RESTRICT,
  category_id TEXT REFERENCES categories(id) ON DELETE RESTRICT,
  gender TEXT NOT NULL DEFAULT 'unisex' CHECK (gender IN ('male','female','unisex')),
  status INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_name       ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- variants keep submission order via position
CREATE TABLE IF NOT EXISTS variants(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  color_id TEXT REFERENCES colors(id) ON DELETE RESTRICT,
  base_price INTEGER NOT NULL CHECK (base_price >= 0),
  discount INTEGER NOT NULL DEFAULT 0,
  images_json TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_variants_product ON variants(product_id);

CREATE TABLE IF NOT EXISTS sub_variants(
  variant_id INTEGER NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  specification TEXT NOT NULL,
  value TEXT NOT NULL,
  additional_price INTEGER NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  PRIMARY KEY (variant_id, position)
);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS wishlist_items(
  user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, product_id)
);
`
	_, err := db.Exec(schema)
	return err
}

func seedCatalog(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.L().Info().Str("action", "seed.catalog").Msg("inserting demo brands/colors/categories/products")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO brands(id,name,image) VALUES
	  ('rayban','Ray-Ban','/static/img/brands/rayban.png'),
	  ('oakley','Oakley','/static/img/brands/oakley.png'),
	  ('gucci','Gucci','/static/img/brands/gucci.png')`)
	tx.MustExec(`INSERT INTO colors(id,name,hex_code) VALUES
	  ('black','Black','#000000'),
	  ('tortoise','Tortoise','#8B4513'),
	  ('gold','Gold','#D4AF37'),
	  ('silver','Silver','#C0C0C0'),
	  ('clear','Clear','#F5F5F5')`)
	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('sunglasses','Sunglasses'),
	  ('eyeglasses','Eyeglasses'),
	  ('sport','Sport')`)

	size := func(v string, add int64, qty int) domain.SubVariant {
		return domain.SubVariant{Specification: "Size", Value: v, AdditionalPrice: add, Quantity: qty}
	}
	img := func(p, c string) []string { return []string{"/static/img/products/" + p + "-" + c + ".jpg"} }
	products := []domain.Product{
		{
			ID: "aviator-classic", Code: "SP10234", Name: "Aviator Classic",
			Description: "<p>Metal aviator with G-15 lenses.</p>",
			Brand:       domain.Brand{ID: "rayban"}, Category: domain.Category{ID: "sunglasses"},
			Gender: domain.GenderUnisex, Status: true,
			Variants: []domain.Variant{
				{Color: domain.Color{ID: "gold"}, BasePrice: 3_900_000, Discount: 10, Images: img("aviator", "gold"),
					SubVariants: []domain.SubVariant{size("55", 0, 4), size("58", 200_000, 2)}},
				{Color: domain.Color{ID: "silver"}, BasePrice: 3_700_000, Images: img("aviator", "silver"),
					SubVariants: []domain.SubVariant{size("58", 0, 0)}},
			},
		},
		{
			ID: "wayfarer", Code: "SP20345", Name: "Original Wayfarer",
			Description: "<p>Acetate frame, the classic shape.</p>",
			Brand:       domain.Brand{ID: "rayban"}, Category: domain.Category{ID: "sunglasses"},
			Gender: domain.GenderUnisex, Status: true,
			Variants: []domain.Variant{
				{Color: domain.Color{ID: "black"}, BasePrice: 3_200_000, Images: img("wayfarer", "black"),
					SubVariants: []domain.SubVariant{size("50", 0, 6), size("54", 0, 3)}},
				{Color: domain.Color{ID: "tortoise"}, BasePrice: 3_400_000, Discount: 15, Images: img("wayfarer", "tortoise"),
					SubVariants: []domain.SubVariant{size("50", 0, 1)}},
			},
		},
		{
			ID: "holbrook", Code: "SP31456", Name: "Holbrook",
			Description: "<p>Lightweight O Matter frame for sport.</p>",
			Brand:       domain.Brand{ID: "oakley"}, Category: domain.Category{ID: "sport"},
			Gender: domain.GenderMale, Status: true,
			Variants: []domain.Variant{
				{Color: domain.Color{ID: "black"}, BasePrice: 2_800_000, Discount: 20, Images: img("holbrook", "black"),
					SubVariants: []domain.SubVariant{size("55", 0, 5)}},
			},
		},
		{
			ID: "round-optical", Code: "SP42567", Name: "Round Optical",
			Description: "<p>Thin metal round optical frame.</p>",
			Brand:       domain.Brand{ID: "gucci"}, Category: domain.Category{ID: "eyeglasses"},
			Gender: domain.GenderFemale, Status: true,
			Variants: []domain.Variant{
				{Color: domain.Color{ID: "gold"}, BasePrice: 6_500_000, Images: img("round", "gold"),
					SubVariants: []domain.SubVariant{size("49", 0, 2), size("52", 300_000, 1)}},
				{Color: domain.Color{ID: "clear"}, BasePrice: 6_200_000, Discount: 5, Images: img("round", "clear"),
					SubVariants: []domain.SubVariant{size("49", 0, 3)}},
			},
		},
		{
			ID: "clubmaster", Code: "SP53678", Name: "Clubmaster",
			Description: "<p>Browline frame. Retired model.</p>",
			Brand:       domain.Brand{ID: "rayban"}, Category: domain.Category{ID: "eyeglasses"},
			Gender: domain.GenderUnisex, Status: false,
			Variants: []domain.Variant{
				{Color: domain.Color{ID: "tortoise"}, BasePrice: 3_000_000, Images: img("clubmaster", "tortoise"),
					SubVariants: []domain.SubVariant{size("51", 0, 2)}},
			},
		},
	}
	ctx := context.Background()
	for _, p := range products {
		if err := insertProduct(ctx, tx, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// seedUsers ensures two USERs and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	users := []u{
		mk("u-alice", "alice@eyewear.test", "Alice", domain.RoleUser, "Passw0rd!"),
		mk("u-bob", "bob@eyewear.test", "Bob", domain.RoleUser, "Passw0rd!"),
		mk("u-admin", "admin@eyewear.test", "Admin", domain.RoleAdmin, "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return services.ErrNotFound
	}
	return err
}
