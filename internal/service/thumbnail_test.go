package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"uboard/internal/config"
	"uboard/internal/featureflags"
	"uboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebp "golang.org/x/image/webp"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "upload.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func newThumbnailStore(t *testing.T, flags string) *ThumbnailStore {
	t.Helper()
	cfg := &config.Config{
		UploadDir:       filepath.Join(t.TempDir(), "thumbs"),
		UploadBaseURL:   "/uploads",
		UploadMaxSizeMB: 1,
	}
	return NewThumbnailStore(cfg, featureflags.NewManager(flags))
}

func TestThumbnailStore_Status(t *testing.T) {
	t.Parallel()

	assert.True(t, newThumbnailStore(t, "uploads=on").Status())
	assert.False(t, newThumbnailStore(t, "uploads=off").Status())
	assert.False(t, newThumbnailStore(t, "").Status())
}

func TestThumbnailStore_UploadResizesToWebP(t *testing.T) {
	t.Parallel()

	store := newThumbnailStore(t, "uploads=on")
	src := writePNG(t, t.TempDir(), 1280, 960)

	url, err := store.Upload(context.Background(), src, "poster.png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/"))
	require.True(t, strings.HasSuffix(url, ".webp"))

	data, err := os.ReadFile(filepath.Join(store.Dir(), strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	cfg, err := xwebp.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailMaxSize, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestThumbnailStore_RejectsNonImages(t *testing.T) {
	t.Parallel()

	store := newThumbnailStore(t, "uploads=on")
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some text, not an image"), 0o600))

	_, err := store.Upload(context.Background(), path, "notes.txt")
	assertCode(t, err, models.CodeValidation)

	_, err = store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "missing.png")
	require.Error(t, err)
}

func TestThumbnailStore_Remove(t *testing.T) {
	t.Parallel()

	store := newThumbnailStore(t, "uploads=on")
	ctx := context.Background()
	url, err := store.Upload(ctx, writePNG(t, t.TempDir(), 32, 32), "avatar.png")
	require.NoError(t, err)
	stored := filepath.Join(store.Dir(), strings.TrimPrefix(url, "/uploads/"))
	require.FileExists(t, stored)

	require.NoError(t, store.Remove(ctx, url))
	assert.NoFileExists(t, stored)
	assert.NoError(t, store.Remove(ctx, url), "removing twice is a no-op")
	assert.Error(t, store.Remove(ctx, "/uploads/"))
}

func TestResizeToFit_KeepsSmallImages(t *testing.T) {
	t.Parallel()

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, small, resizeToFit(small, 640, 640))

	tall := resizeToFit(image.NewRGBA(image.Rect(0, 0, 300, 1280)), 640, 640)
	assert.Equal(t, 640, tall.Bounds().Dy())
	assert.Equal(t, 150, tall.Bounds().Dx())
}
