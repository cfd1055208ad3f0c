// Package upload validates user-submitted listing images and hands them to
// blob storage under collision-resistant names.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"carmarket/internal/storage"
)

// ErrBadFileType is returned when the file extension is not on the allow-list.
var ErrBadFileType = errors.New("invalid file type, allowed types are: png, jpg, jpeg, gif")

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Handler validates and persists uploaded listing images.
type Handler struct {
	store storage.Service
}

func NewHandler(store storage.Service) *Handler {
	return &Handler{store: store}
}

// Store persists an optional image upload. A nil header or empty filename
// means no image was supplied and yields ("", nil). Disallowed extensions
// yield ErrBadFileType. On success the returned reference is unique across
// uploads, even for identical original filenames.
func (h *Handler) Store(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", nil
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrBadFileType
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	name := uniqueName(fh.Filename)
	url, err := h.store.Save(ctx, name, file, fh.Size)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

// uniqueName prefixes a random identifier to a sanitized copy of the original
// filename, defeating collisions and path traversal.
func uniqueName(original string) string {
	base := filepath.Base(filepath.ToSlash(original))
	base = unsafeChars.ReplaceAllString(base, "")
	if base == "" || base == "." || base == ".." {
		base = "image"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return random + "_" + base
}
