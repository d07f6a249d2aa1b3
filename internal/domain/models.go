package domain

import (
	"strings"

	json "github.com/goccy/go-json"
)

// Gender tags used by the storefront filters.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderUnisex = "unisex"
)

// Unspecified is shown wherever an optional label is missing.
const Unspecified = "unspecified"

type Category struct {
	ID        string `json:"_id" db:"id"`
	Name      string `json:"name" db:"name"`
	Status    string `json:"status,omitempty" db:"status"`
	CreatedAt string `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt string `json:"updatedAt,omitempty" db:"updated_at"`
}

// Label returns the category name or the unspecified placeholder.
func (c Category) Label() string {
	if strings.TrimSpace(c.Name) == "" {
		return Unspecified
	}
	return c.Name
}

// UnmarshalJSON accepts either a bare id string or a populated object.
func (c *Category) UnmarshalJSON(b []byte) error {
	id, obj, err := refOrObject(b)
	if err != nil || obj == nil {
		*c = Category{ID: id}
		return nil
	}
	type plain Category
	var p plain
	if err := json.Unmarshal(obj, &p); err != nil {
		*c = Category{}
		return nil
	}
	*c = Category(p)
	return nil
}

type Brand struct {
	ID        string `json:"_id" db:"id"`
	Name      string `json:"name" db:"name"`
	Image     string `json:"image,omitempty" db:"image"`
	CreatedAt string `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt string `json:"updatedAt,omitempty" db:"updated_at"`
}

func (b *Brand) UnmarshalJSON(data []byte) error {
	id, obj, err := refOrObject(data)
	if err != nil || obj == nil {
		*b = Brand{ID: id}
		return nil
	}
	type plain Brand
	var p plain
	if err := json.Unmarshal(obj, &p); err != nil {
		*b = Brand{}
		return nil
	}
	*b = Brand(p)
	return nil
}

type Color struct {
	ID        string `json:"_id" db:"id"`
	Name      string `json:"name" db:"name"`
	HexCode   string `json:"hexCode" db:"hex_code"`
	CreatedAt string `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt string `json:"updatedAt,omitempty" db:"updated_at"`
}

// UnmarshalJSON accepts a color id or a populated color document. Anything
// else decodes to the zero Color, which the pricing filters treat as "no color".
func (c *Color) UnmarshalJSON(b []byte) error {
	id, obj, err := refOrObject(b)
	if err != nil || obj == nil {
		*c = Color{ID: id}
		return nil
	}
	type plain Color
	var p plain
	if err := json.Unmarshal(obj, &p); err != nil {
		*c = Color{}
		return nil
	}
	*c = Color(p)
	return nil
}

// Key identifies a color for de-duplication: the id when known, else the name.
func (c Color) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return strings.ToLower(strings.TrimSpace(c.Name))
}

type SubVariant struct {
	Specification   string `json:"specification"`
	Value           string `json:"value"`
	AdditionalPrice int64  `json:"additionalPrice"`
	Quantity        int    `json:"quantity"`
}

type Variant struct {
	Color       Color        `json:"color"`
	BasePrice   int64        `json:"basePrice"`
	Discount    int          `json:"discount,omitempty"`
	Images      []string     `json:"images"`
	SubVariants []SubVariant `json:"subVariants"`
}

// UnmarshalJSON reads both "images" and the legacy "img" field.
func (v *Variant) UnmarshalJSON(b []byte) error {
	var aux struct {
		Color       Color        `json:"color"`
		BasePrice   json.Number  `json:"basePrice"`
		Discount    *json.Number `json:"discount"`
		Images      []string     `json:"images"`
		Img         []string     `json:"img"`
		SubVariants []SubVariant `json:"subVariants"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	out := Variant{Color: aux.Color, SubVariants: aux.SubVariants}
	out.BasePrice = numberToInt64(aux.BasePrice)
	if aux.Discount != nil {
		out.Discount = int(numberToInt64(*aux.Discount))
	}
	out.Images = append(out.Images, aux.Images...)
	out.Images = append(out.Images, aux.Img...)
	*v = out
	return nil
}

type Product struct {
	ID          string    `json:"_id"`
	Code        string    `json:"masp"`
	Name        string    `json:"name"`
	Description string    `json:"moTa"`
	Brand       Brand     `json:"brand"`
	Category    Category  `json:"category"`
	Gender      string    `json:"gender"`
	Status      bool      `json:"status"`
	Variants    []Variant `json:"variants"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	UpdatedAt   string    `json:"updatedAt,omitempty"`
}

// UnmarshalJSON tolerates malformed variant arrays: the product decodes with
// no variants instead of failing the whole listing.
func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	var aux struct {
		plain
		Variants json.RawMessage `json:"variants"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	out := Product(aux.plain)
	out.Variants = nil
	if len(aux.Variants) > 0 {
		var vs []Variant
		if err := json.Unmarshal(aux.Variants, &vs); err == nil {
			out.Variants = vs
		}
	}
	*p = out
	return nil
}

// FirstImage returns the first image of the first variant that has one.
func (p Product) FirstImage() string {
	for _, v := range p.Variants {
		if len(v.Images) > 0 && v.Images[0] != "" {
			return v.Images[0]
		}
	}
	return ""
}

// ProductPage is one page of a product listing as returned by the backend.
type ProductPage struct {
	Docs       []Product `json:"docs"`
	TotalDocs  int       `json:"totalDocs,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	Page       int       `json:"page,omitempty"`
	TotalPages int       `json:"totalPages,omitempty"`
}

type PageQuery struct {
	Limit int
	Page  int
}

// Normalize clamps the query to sane defaults.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 12
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return q
}

func (q PageQuery) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Limit
}

func refOrObject(b []byte) (string, []byte, error) {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return "", nil, nil
	}
	if s[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return "", nil, err
		}
		return id, nil, nil
	}
	if s[0] == '{' {
		return "", b, nil
	}
	return "", nil, nil
}

func numberToInt64(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}
