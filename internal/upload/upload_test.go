package upload

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/storage"
)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("car_image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["car_image"]
	require.Len(t, files, 1)
	return files[0]
}

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalService(dir, "/static/uploads")
	require.NoError(t, err)
	return NewHandler(store), dir
}

func TestStoreNoFile(t *testing.T) {
	h, _ := newTestHandler(t)

	url, err := h.Store(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestStoreRejectsDisallowedExtension(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, name := range []string{"car.exe", "car.pdf", "car", "car.png.sh"} {
		_, err := h.Store(context.Background(), fileHeader(t, name, []byte("data")))
		assert.ErrorIs(t, err, ErrBadFileType, "filename %q", name)
	}
}

func TestStoreAcceptsAllowedExtensions(t *testing.T) {
	h, dir := newTestHandler(t)

	for _, name := range []string{"car.png", "car.JPG", "car.jpeg", "car.gif"} {
		url, err := h.Store(context.Background(), fileHeader(t, name, []byte("data")))
		require.NoError(t, err, "filename %q", name)
		assert.True(t, strings.HasPrefix(url, "/static/uploads/"), "got %q", url)

		saved, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), saved)
	}
}

func TestStoreNamesDoNotCollide(t *testing.T) {
	h, _ := newTestHandler(t)

	first, err := h.Store(context.Background(), fileHeader(t, "car.png", []byte("one")))
	require.NoError(t, err)
	second, err := h.Store(context.Background(), fileHeader(t, "car.png", []byte("two")))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, "_car.png"))
	assert.True(t, strings.HasSuffix(second, "_car.png"))
}

func TestStoreSanitizesFilename(t *testing.T) {
	h, dir := newTestHandler(t)

	url, err := h.Store(context.Background(), fileHeader(t, "../../evil name!.png", []byte("data")))
	require.NoError(t, err)

	name := filepath.Base(url)
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "..")
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, "!")

	// the file landed inside the upload dir, nowhere else
	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)
}
