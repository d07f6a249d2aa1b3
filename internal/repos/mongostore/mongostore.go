// Package mongostore is the MongoDB catalog backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/services"
)

const (
	colProducts   = "products"
	colBrands     = "brands"
	colColors     = "colors"
	colCategories = "categories"
	colWishlists  = "wishlists"
)

func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(dbName), nil
}

// Store keeps products with their variants embedded. Brand, category and
// color references are stored as ObjectIDs and come back as bare ids.
type Store struct {
	services.ImageStore
	db  *mongo.Database
	now func() time.Time
}

func New(db *mongo.Database, images services.ImageStore) *Store {
	return &Store{ImageStore: images, db: db, now: time.Now}
}

// EnsureIndexes creates the unique indexes the admin screens rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(colProducts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "masp", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	ci := options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2})
	for _, col := range []string{colBrands, colColors} {
		if _, err := s.db.Collection(col).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "name", Value: 1}}, Options: ci,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ---------- documents ----------

type subVariantDoc struct {
	Specification   string `bson:"specification"`
	Value           string `bson:"value"`
	AdditionalPrice int64  `bson:"additionalPrice"`
	Quantity        int    `bson:"quantity"`
}

type variantDoc struct {
	Color       primitive.ObjectID `bson:"color,omitempty"`
	BasePrice   int64              `bson:"basePrice"`
	Discount    int                `bson:"discount"`
	Images      []string           `bson:"images"`
	SubVariants []subVariantDoc    `bson:"subVariants"`
}

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Code        string             `bson:"masp"`
	Name        string             `bson:"name"`
	Description string             `bson:"moTa"`
	Brand       primitive.ObjectID `bson:"brand,omitempty"`
	Category    primitive.ObjectID `bson:"category,omitempty"`
	Gender      string             `bson:"gender"`
	Status      bool               `bson:"status"`
	Variants    []variantDoc       `bson:"variants"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type brandDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Image     string             `bson:"image"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type colorDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	HexCode   string             `bson:"hexCode"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type categoryDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Name   string             `bson:"name"`
	Status string             `bson:"status"`
}

type wishlistDoc struct {
	UserID   string               `bson:"_id"`
	Products []primitive.ObjectID `bson:"products"`
}

func refID(id string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func hexOf(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toProductDoc(p domain.Product) productDoc {
	d := productDoc{
		ID:          refID(p.ID),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Brand:       refID(p.Brand.ID),
		Category:    refID(p.Category.ID),
		Gender:      p.Gender,
		Status:      p.Status,
		Variants:    make([]variantDoc, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		vd := variantDoc{
			Color:     refID(v.Color.ID),
			BasePrice: v.BasePrice,
			Discount:  v.Discount,
			Images:    append([]string{}, v.Images...),
		}
		for _, sv := range v.SubVariants {
			vd.SubVariants = append(vd.SubVariants, subVariantDoc(sv))
		}
		d.Variants = append(d.Variants, vd)
	}
	return d
}

func (d productDoc) toDomain() domain.Product {
	p := domain.Product{
		ID:          hexOf(d.ID),
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Brand:       domain.Brand{ID: hexOf(d.Brand)},
		Category:    domain.Category{ID: hexOf(d.Category)},
		Gender:      d.Gender,
		Status:      d.Status,
		CreatedAt:   stamp(d.CreatedAt),
		UpdatedAt:   stamp(d.UpdatedAt),
	}
	for _, vd := range d.Variants {
		v := domain.Variant{
			Color:     domain.Color{ID: hexOf(vd.Color)},
			BasePrice: vd.BasePrice,
			Discount:  vd.Discount,
			Images:    vd.Images,
		}
		for _, sv := range vd.SubVariants {
			v.SubVariants = append(v.SubVariants, domain.SubVariant(sv))
		}
		p.Variants = append(p.Variants, v)
	}
	return p
}

func (d brandDoc) toDomain() domain.Brand {
	return domain.Brand{ID: hexOf(d.ID), Name: d.Name, Image: d.Image, CreatedAt: stamp(d.CreatedAt), UpdatedAt: stamp(d.UpdatedAt)}
}

func (d colorDoc) toDomain() domain.Color {
	return domain.Color{ID: hexOf(d.ID), Name: d.Name, HexCode: d.HexCode, CreatedAt: stamp(d.CreatedAt), UpdatedAt: stamp(d.UpdatedAt)}
}

// byID builds an _id filter; malformed ids can never match and report
// ErrNotFound.
func byID(id string) (bson.D, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, services.ErrNotFound
	}
	return bson.D{{Key: "_id", Value: oid}}, nil
}

func mapErr(err error, kind, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return services.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		if kind == "" {
			return &services.ValidationError{Field: "code", Message: "Product code already exists"}
		}
		return &services.ValidationError{Field: "name", Message: fmt.Sprintf("%s %s already exists", kind, name)}
	}
	return err
}

// ---------- products ----------

func (s *Store) ListProducts(ctx context.Context, q domain.PageQuery) (domain.ProductPage, error) {
	q = q.Normalize()
	col := s.db.Collection(colProducts)
	total, err := col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return domain.ProductPage{}, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))
	cur, err := col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return domain.ProductPage{}, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return domain.ProductPage{}, err
	}
	page := domain.ProductPage{
		Docs:       make([]domain.Product, 0, len(docs)),
		TotalDocs:  int(total),
		Limit:      q.Limit,
		Page:       q.Page,
		TotalPages: (int(total) + q.Limit - 1) / q.Limit,
	}
	for _, d := range docs {
		page.Docs = append(page.Docs, d.toDomain())
	}
	return page, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	filter, err := byID(id)
	if err != nil {
		return domain.Product{}, err
	}
	var d productDoc
	if err := s.db.Collection(colProducts).FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.Product{}, mapErr(err, "", "")
	}
	return d.toDomain(), nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	d := toProductDoc(p)
	d.ID = primitive.NewObjectID()
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt
	if _, err := s.db.Collection(colProducts).InsertOne(ctx, d); err != nil {
		return domain.Product{}, mapErr(err, "", "")
	}
	return d.toDomain(), nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	filter, err := byID(p.ID)
	if err != nil {
		return domain.Product{}, err
	}
	d := toProductDoc(p)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "masp", Value: d.Code},
		{Key: "name", Value: d.Name},
		{Key: "moTa", Value: d.Description},
		{Key: "brand", Value: d.Brand},
		{Key: "category", Value: d.Category},
		{Key: "gender", Value: d.Gender},
		{Key: "status", Value: d.Status},
		{Key: "variants", Value: d.Variants},
		{Key: "updatedAt", Value: s.now()},
	}}}
	var out productDoc
	err = s.db.Collection(colProducts).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return domain.Product{}, mapErr(err, "", "")
	}
	return out.toDomain(), nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	filter, err := byID(id)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(colProducts).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	if _, err := s.db.Collection(colWishlists).UpdateMany(ctx, bson.D{},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "products", Value: filter[0].Value}}}}); err != nil {
		applog.L().Warn().Err(err).Str("product", id).Msg("mongostore: wishlist cleanup failed")
	}
	return nil
}

// ---------- brands ----------

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	cur, err := s.db.Collection(colBrands).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []brandDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Brand, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) GetBrand(ctx context.Context, id string) (domain.Brand, error) {
	filter, err := byID(id)
	if err != nil {
		return domain.Brand{}, err
	}
	var d brandDoc
	if err := s.db.Collection(colBrands).FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.Brand{}, mapErr(err, "Brand", "")
	}
	return d.toDomain(), nil
}

func (s *Store) CreateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	now := s.now()
	d := brandDoc{ID: primitive.NewObjectID(), Name: b.Name, Image: b.Image, CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.Collection(colBrands).InsertOne(ctx, d); err != nil {
		return domain.Brand{}, mapErr(err, "Brand", b.Name)
	}
	return d.toDomain(), nil
}

func (s *Store) UpdateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	filter, err := byID(b.ID)
	if err != nil {
		return domain.Brand{}, err
	}
	var d brandDoc
	err = s.db.Collection(colBrands).FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: b.Name}, {Key: "image", Value: b.Image}, {Key: "updatedAt", Value: s.now()}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return domain.Brand{}, mapErr(err, "Brand", b.Name)
	}
	return d.toDomain(), nil
}

func (s *Store) DeleteBrand(ctx context.Context, id string) error {
	filter, err := byID(id)
	if err != nil {
		return err
	}
	used, err := s.db.Collection(colProducts).CountDocuments(ctx, bson.D{{Key: "brand", Value: filter[0].Value}})
	if err != nil {
		return err
	}
	if used > 0 {
		return &services.ValidationError{Field: "brand", Message: fmt.Sprintf("Brand is used by %d product(s)", used)}
	}
	return s.deleteOne(ctx, colBrands, filter)
}

// ---------- colors ----------

func (s *Store) ListColors(ctx context.Context) ([]domain.Color, error) {
	cur, err := s.db.Collection(colColors).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []colorDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Color, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) GetColor(ctx context.Context, id string) (domain.Color, error) {
	filter, err := byID(id)
	if err != nil {
		return domain.Color{}, err
	}
	var d colorDoc
	if err := s.db.Collection(colColors).FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.Color{}, mapErr(err, "Color", "")
	}
	return d.toDomain(), nil
}

func (s *Store) CreateColor(ctx context.Context, c domain.Color) (domain.Color, error) {
	now := s.now()
	d := colorDoc{ID: primitive.NewObjectID(), Name: c.Name, HexCode: c.HexCode, CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.Collection(colColors).InsertOne(ctx, d); err != nil {
		return domain.Color{}, mapErr(err, "Color", c.Name)
	}
	return d.toDomain(), nil
}

func (s *Store) UpdateColor(ctx context.Context, c domain.Color) (domain.Color, error) {
	filter, err := byID(c.ID)
	if err != nil {
		return domain.Color{}, err
	}
	var d colorDoc
	err = s.db.Collection(colColors).FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: c.Name}, {Key: "hexCode", Value: c.HexCode}, {Key: "updatedAt", Value: s.now()}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return domain.Color{}, mapErr(err, "Color", c.Name)
	}
	return d.toDomain(), nil
}

func (s *Store) DeleteColor(ctx context.Context, id string) error {
	filter, err := byID(id)
	if err != nil {
		return err
	}
	used, err := s.db.Collection(colProducts).CountDocuments(ctx, bson.D{{Key: "variants.color", Value: filter[0].Value}})
	if err != nil {
		return err
	}
	if used > 0 {
		return &services.ValidationError{Field: "color", Message: fmt.Sprintf("Color is used by %d product(s)", used)}
	}
	return s.deleteOne(ctx, colColors, filter)
}

func (s *Store) deleteOne(ctx context.Context, col string, filter bson.D) error {
	res, err := s.db.Collection(col).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

// ---------- categories ----------

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cur, err := s.db.Collection(colCategories).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Category{ID: hexOf(d.ID), Name: d.Name, Status: d.Status})
	}
	return out, nil
}

// ---------- wishlist ----------

func (s *Store) AddToWishlist(ctx context.Context, userID, productID string) error {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return err
	}
	_, err := s.db.Collection(colWishlists).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "products", Value: refID(productID)}}}},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	_, err := s.db.Collection(colWishlists).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "products", Value: refID(productID)}}}})
	return err
}

func (s *Store) GetWishlist(ctx context.Context, userID string) ([]domain.Product, error) {
	var w wishlistDoc
	err := s.db.Collection(colWishlists).FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.Product{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(w.Products) == 0 {
		return []domain.Product{}, nil
	}
	cur, err := s.db.Collection(colProducts).Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: w.Products}}}})
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return orderLike(w.Products, docs), nil
}

// orderLike returns docs in the order of ids, newest wishlist entry first.
func orderLike(ids []primitive.ObjectID, docs []productDoc) []domain.Product {
	byID := make(map[primitive.ObjectID]productDoc, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]domain.Product, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if d, ok := byID[ids[i]]; ok {
			out = append(out, d.toDomain())
		}
	}
	return out
}

var _ services.Backend = (*Store)(nil)
