package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"eyewear/internal/services"
)

// MaxImageSize caps a single uploaded image.
const MaxImageSize = 5 << 20

var ErrNotImage = errors.New("only png, jpeg, webp or gif images are allowed")

type PutInput struct {
	Filename    string
	ContentType string
	Size        int64
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
	// KeyFor maps a public URL produced by Put back to its key.
	KeyFor(url string) (string, bool)
}

// Images adapts a Storage to the catalog's image upload contract.
type Images struct {
	Storage Storage
}

func (im Images) UploadImage(ctx context.Context, u services.Upload) (string, error) {
	if safeExt(u.Filename) == "" || (u.ContentType != "" && !strings.HasPrefix(u.ContentType, "image/")) {
		return "", &services.ValidationError{Field: "images", Message: fmt.Sprintf("%s: %s", u.Filename, ErrNotImage)}
	}
	if u.Size > MaxImageSize {
		return "", &services.ValidationError{Field: "images", Message: fmt.Sprintf("%s is larger than 5 MB", u.Filename)}
	}
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	res, err := im.Storage.Put(ctx, rc, PutInput{Filename: u.Filename, ContentType: u.ContentType, Size: u.Size})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// DeleteImage removes an uploaded image. URLs this storage did not produce
// are ignored.
func (im Images) DeleteImage(ctx context.Context, url string) error {
	key, ok := im.Storage.KeyFor(url)
	if !ok {
		return nil
	}
	return im.Storage.Delete(ctx, key)
}
