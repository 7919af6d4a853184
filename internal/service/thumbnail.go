package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"uboard/internal/config"
	"uboard/internal/featureflags"
	"uboard/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// ThumbnailMaxSize bounds both thumbnail edges.
	ThumbnailMaxSize = 640
	WebPQuality      = 70

	// FlagUploads switches attachment storage on and off.
	FlagUploads = "uploads"
)

// ThumbnailStore is a FileManager that re-encodes uploads as WebP thumbnails on local disk.
type ThumbnailStore struct {
	dir          string
	baseURL      string
	maxSizeBytes int64
	flags        *featureflags.Manager
}

func NewThumbnailStore(cfg *config.Config, flags *featureflags.Manager) *ThumbnailStore {
	return &ThumbnailStore{
		dir:          cfg.UploadDir,
		baseURL:      cfg.UploadBaseURL,
		maxSizeBytes: int64(cfg.UploadMaxSizeMB) * 1024 * 1024,
		flags:        flags,
	}
}

// Dir is the directory thumbnails are written to.
func (s *ThumbnailStore) Dir() string {
	return s.dir
}

// Status reports whether uploads are enabled and the upload directory is usable.
func (s *ThumbnailStore) Status() bool {
	if !s.flags.On(FlagUploads) || s.dir == "" {
		return false
	}
	return os.MkdirAll(s.dir, 0o750) == nil
}

func (s *ThumbnailStore) Upload(ctx context.Context, path, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", filename, err)
	}
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return "", models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	encoded, err := encodeWebP(resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize), WebPQuality)
	if err != nil {
		return "", fmt.Errorf("encode thumbnail %s: %w", filename, err)
	}

	name := thumbnailName(content) + ".webp"
	if err := writeBytesToFile(filepath.Join(s.dir, name), encoded); err != nil {
		return "", fmt.Errorf("write thumbnail %s: %w", filename, err)
	}
	return s.baseURL + "/" + name, nil
}

// Remove deletes the thumbnail served at url.
func (s *ThumbnailStore) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := path.Base(url)
	if !strings.HasSuffix(name, ".webp") {
		return fmt.Errorf("remove thumbnail: unexpected url %q", url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove thumbnail %s: %w", name, err)
	}
	return nil
}

func thumbnailName(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:16])
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
