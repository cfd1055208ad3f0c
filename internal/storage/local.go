package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// LocalService writes images to a directory on disk that the HTTP layer
// serves as static assets.
type LocalService struct {
	dir       string
	urlPrefix string
}

func NewLocalService(dir, urlPrefix string) (*LocalService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalService{dir: dir, urlPrefix: urlPrefix}, nil
}

func (s *LocalService) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// O_EXCL guards against a storage-name collision clobbering an image.
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}

var _ Service = (*LocalService)(nil)
