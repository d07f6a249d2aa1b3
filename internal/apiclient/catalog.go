package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"

	"github.com/valyala/fasthttp"

	"eyewear/internal/domain"
	"eyewear/internal/services"
)

// productBody is the write shape: references travel as ids.
type productBody struct {
	Code        string        `json:"masp"`
	Name        string        `json:"name"`
	Description string        `json:"moTa"`
	Brand       string        `json:"brand"`
	Category    string        `json:"category"`
	Gender      string        `json:"gender"`
	Status      bool          `json:"status"`
	Variants    []variantBody `json:"variants"`
}

type variantBody struct {
	Color       string              `json:"color"`
	BasePrice   int64               `json:"basePrice"`
	Discount    int                 `json:"discount"`
	Images      []string            `json:"images"`
	SubVariants []domain.SubVariant `json:"subVariants"`
}

func toBody(p domain.Product) productBody {
	b := productBody{
		Code: p.Code, Name: p.Name, Description: p.Description,
		Brand: p.Brand.ID, Category: p.Category.ID, Gender: p.Gender, Status: p.Status,
		Variants: make([]variantBody, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		b.Variants = append(b.Variants, variantBody{
			Color: v.Color.ID, BasePrice: v.BasePrice, Discount: v.Discount,
			Images: v.Images, SubVariants: v.SubVariants,
		})
	}
	return b
}

func (c *Client) ListProducts(ctx context.Context, q domain.PageQuery) (domain.ProductPage, error) {
	q = q.Normalize()
	var page domain.ProductPage
	if err := c.get(ctx, "/api/products", pageQuery(q.Limit, q.Page), &page); err != nil {
		return domain.ProductPage{}, err
	}
	if page.Limit == 0 {
		page.Limit = q.Limit
	}
	if page.Page == 0 {
		page.Page = q.Page
	}
	return page, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.get(ctx, "/api/products/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.send(ctx, fasthttp.MethodPost, "/api/products", toBody(p), &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.send(ctx, fasthttp.MethodPut, "/api/products/"+url.PathEscape(p.ID), toBody(p), &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/products/"+url.PathEscape(id), nil)
}

func (c *Client) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	var out list[domain.Brand]
	err := c.get(ctx, "/api/brands", nil, &out)
	return out, err
}

func (c *Client) GetBrand(ctx context.Context, id string) (domain.Brand, error) {
	var b domain.Brand
	err := c.get(ctx, "/api/brands/"+url.PathEscape(id), nil, &b)
	return b, err
}

type brandBody struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

func (c *Client) CreateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	var out domain.Brand
	err := c.send(ctx, fasthttp.MethodPost, "/api/brands", brandBody{Name: b.Name, Image: b.Image}, &out)
	return out, err
}

func (c *Client) UpdateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	var out domain.Brand
	err := c.send(ctx, fasthttp.MethodPut, "/api/brands/"+url.PathEscape(b.ID), brandBody{Name: b.Name, Image: b.Image}, &out)
	return out, err
}

func (c *Client) DeleteBrand(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/brands/"+url.PathEscape(id), nil)
}

func (c *Client) ListColors(ctx context.Context) ([]domain.Color, error) {
	var out list[domain.Color]
	err := c.get(ctx, "/api/colors", nil, &out)
	return out, err
}

func (c *Client) GetColor(ctx context.Context, id string) (domain.Color, error) {
	var col domain.Color
	err := c.get(ctx, "/api/colors/"+url.PathEscape(id), nil, &col)
	return col, err
}

type colorBody struct {
	Name    string `json:"name"`
	HexCode string `json:"hexCode"`
}

func (c *Client) CreateColor(ctx context.Context, col domain.Color) (domain.Color, error) {
	var out domain.Color
	err := c.send(ctx, fasthttp.MethodPost, "/api/colors", colorBody{Name: col.Name, HexCode: col.HexCode}, &out)
	return out, err
}

func (c *Client) UpdateColor(ctx context.Context, col domain.Color) (domain.Color, error) {
	var out domain.Color
	err := c.send(ctx, fasthttp.MethodPut, "/api/colors/"+url.PathEscape(col.ID), colorBody{Name: col.Name, HexCode: col.HexCode}, &out)
	return out, err
}

func (c *Client) DeleteColor(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/colors/"+url.PathEscape(id), nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out list[domain.Category]
	err := c.get(ctx, "/api/categories", nil, &out)
	return out, err
}

type wishlistBody struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

func (c *Client) AddToWishlist(ctx context.Context, userID, productID string) error {
	return c.send(ctx, fasthttp.MethodPost, "/api/wishlist/add", wishlistBody{userID, productID}, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return c.send(ctx, fasthttp.MethodPost, "/api/wishlist/remove", wishlistBody{userID, productID}, nil)
}

func (c *Client) GetWishlist(ctx context.Context, userID string) ([]domain.Product, error) {
	var out struct {
		Wishlist []domain.Product `json:"wishlist"`
	}
	err := c.get(ctx, "/api/wishlist/"+url.PathEscape(userID), nil, &out)
	return out.Wishlist, err
}

// UploadImage posts one file as multipart field "images" and returns the
// first URL the API reports.
func (c *Client) UploadImage(ctx context.Context, u services.Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, u.Filename))
	ct := u.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, rc); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out struct {
		Payload []struct {
			URL string `json:"url"`
		} `json:"payload"`
	}
	err = c.do(ctx, request{
		method:      fasthttp.MethodPost,
		path:        "/api/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Payload) == 0 || out.Payload[0].URL == "" {
		return "", &Error{Status: fasthttp.StatusOK, Message: "upload returned no url"}
	}
	return out.Payload[0].URL, nil
}

func (c *Client) DeleteImage(ctx context.Context, imageURL string) error {
	q := url.Values{}
	q.Set("url", imageURL)
	return c.delete(ctx, "/api/upload", q)
}

var _ services.Backend = (*Client)(nil)
