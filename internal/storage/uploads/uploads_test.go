package uploads

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func fileOf(name string, data []byte) File {
	return File{
		Filename: name,
		Size:     int64(len(data)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func newTestStore(t *testing.T, maxBytes int64) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "uploads", maxBytes, nil)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1736500000000) }
	return store, fs
}

func TestSave_WritesImageWithGeneratedName(t *testing.T) {
	store, fs := newTestStore(t, 4<<20)
	data := pngBytes(t)

	url, err := store.Save(context.Background(), fileOf("../../sick cow.png", data))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^/uploads/1736500000000-[0-9a-f]{12}-sick_cow\.png$`), url)

	stored, err := afero.ReadFile(fs, "uploads/"+url[len(URLPrefix):])
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	require.NoError(t, store.Delete(context.Background(), url))
	exists, err := afero.Exists(fs, "uploads/"+url[len(URLPrefix):])
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSave_RejectsNonImages(t *testing.T) {
	store, _ := newTestStore(t, 4<<20)

	_, err := store.Save(context.Background(), fileOf("notes.png", []byte("just some text pretending to be a png")))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSave_RejectsOversizedFiles(t *testing.T) {
	store, _ := newTestStore(t, 16)

	_, err := store.Save(context.Background(), fileOf("big.png", pngBytes(t)))
	assert.ErrorIs(t, err, models.ErrValidation)

	lying := fileOf("big.png", pngBytes(t))
	lying.Size = 1
	_, err = store.Save(context.Background(), lying)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDelete_RejectsForeignPaths(t *testing.T) {
	store, _ := newTestStore(t, 4<<20)

	assert.ErrorIs(t, store.Delete(context.Background(), "/etc/passwd"), models.ErrValidation)
	assert.ErrorIs(t, store.Delete(context.Background(), "/uploads/../secret"), models.ErrValidation)
	assert.NoError(t, store.Delete(context.Background(), "/uploads/missing.png"))
}
