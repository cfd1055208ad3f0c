package storage

import (
	"context"
	"io"
)

// Service persists uploaded listing images under a storage name chosen by the
// caller and returns the URL the rendered pages reference.
type Service interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}
