package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Local struct {
	BaseDir   string
	URLPrefix string
}

func NewLocal(baseDir, urlPrefix string) *Local {
	return &Local{BaseDir: baseDir, URLPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (l *Local) Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	if err := os.MkdirAll(l.BaseDir, 0o755); err != nil {
		return PutResult{}, err
	}

	key := uuid.NewString() + safeExt(in.Filename)
	dst := filepath.Join(l.BaseDir, key)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return PutResult{}, err
	}
	if _, err := io.Copy(f, io.LimitReader(r, MaxImageSize+1)); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return PutResult{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return PutResult{}, err
	}
	return PutResult{Key: key, URL: l.URLPrefix + "/" + key}, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.BaseDir, filepath.Base(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *Local) KeyFor(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, l.URLPrefix+"/")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ""
	}
}

func (l *Local) String() string { return fmt.Sprintf("local(%s)", l.BaseDir) }
