// Package thumbnail derives a stored square preview image from a page's
// declared preview image URL.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // decode-only: webp decodes, then fails the extension allow-list

	"github.com/pressfolio/unfurl/internal/fetcher"
)

const (
	// DefaultSize is the square thumbnail geometry.
	DefaultSize = 200
	// DefaultQuality is the JPEG compression quality.
	DefaultQuality = 90

	fileSuffix = "-min"
	filePerm   = 0o644
)

// ErrUnsupportedFormat marks bytes that decoded as an image but not one of
// the allowed output formats (gif, jpg, png).
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Optimizer further compresses already-encoded image bytes, typically by
// calling an external service. Implementations are optional; failures never
// block the pipeline.
type Optimizer interface {
	Available() bool
	Compress(ctx context.Context, ext string, data []byte) ([]byte, error)
}

// Generator downloads, validates, crops and stores thumbnails. The target
// filesystem is injected; in production it is the OS filesystem rooted at the
// host's upload directory.
type Generator struct {
	Client    *fetcher.Client
	Fs        afero.Fs
	UploadDir string // local directory thumbnails are written to
	UploadURL string // public URL prefix mapped onto UploadDir
	Size      int
	Quality   int
	Optimizer Optimizer
	Logger    *slog.Logger
}

func NewGenerator(client *fetcher.Client, fs afero.Fs, uploadDir, uploadURL string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		Client:    client,
		Fs:        fs,
		UploadDir: uploadDir,
		UploadURL: uploadURL,
		Size:      DefaultSize,
		Quality:   DefaultQuality,
		Logger:    logger,
	}
}

// Generate produces a thumbnail for imageURL keyed by slug and returns the
// stored artifact's public URL. The artifact is created at most once per
// slug: an existing file short-circuits the whole download/encode path. Every
// failure returns ok=false and persists nothing.
func (g *Generator) Generate(ctx context.Context, imageURL, slug string) (string, bool) {
	if slug == "" {
		return "", false
	}

	// A thumbnail written by an earlier run may carry any of the allowed
	// extensions, so probe all candidates before spending network or CPU.
	for _, ext := range []string{"png", "jpg", "gif"} {
		name := g.fileName(slug, ext)
		if exists, _ := afero.Exists(g.Fs, filepath.Join(g.UploadDir, name)); exists {
			return g.publicURL(name), true
		}
	}

	resp, err := g.Client.Get(ctx, imageURL)
	if err != nil {
		g.Logger.Debug("thumbnail download failed", "url", imageURL, "error", err)
		return "", false
	}
	if len(resp.Body) == 0 {
		g.Logger.Debug("thumbnail download returned empty body", "url", imageURL)
		return "", false
	}

	img, format, err := image.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		g.Logger.Warn("preview image did not decode", "url", imageURL, "error", err)
		return "", false
	}

	ext, err := outputExtension(format)
	if err != nil {
		g.Logger.Warn("preview image format not allowed", "url", imageURL, "format", format)
		return "", false
	}

	encoded, err := g.encode(g.crop(img), ext)
	if err != nil {
		g.Logger.Warn("thumbnail encode failed", "url", imageURL, "error", err)
		return "", false
	}

	if g.Optimizer != nil && g.Optimizer.Available() && (ext == "png" || ext == "jpg") {
		if compressed, err := g.Optimizer.Compress(ctx, ext, encoded); err != nil {
			g.Logger.Warn("image optimization service failed, keeping local bytes", "error", err)
		} else {
			encoded = compressed
		}
	}

	name := g.fileName(slug, ext)
	localPath := filepath.Join(g.UploadDir, name)
	if err := g.Fs.MkdirAll(g.UploadDir, 0o755); err != nil {
		g.Logger.Warn("thumbnail directory create failed", "dir", g.UploadDir, "error", err)
		return "", false
	}
	if err := afero.WriteFile(g.Fs, localPath, encoded, filePerm); err != nil {
		g.Logger.Warn("thumbnail write failed", "path", localPath, "error", err)
		return "", false
	}

	return g.publicURL(name), true
}

func (g *Generator) fileName(slug, ext string) string {
	return slug + fileSuffix + "." + ext
}

func (g *Generator) publicURL(name string) string {
	return strings.TrimRight(g.UploadURL, "/") + "/" + path.Clean(name)
}

// outputExtension maps a decoded image format onto the fixed allow-list of
// stored extensions.
func outputExtension(format string) (string, error) {
	switch format {
	case "jpeg":
		return "jpg", nil
	case "png":
		return "png", nil
	case "gif":
		return "gif", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// crop scales the largest centered square of src down to the thumbnail
// geometry. The canvas starts fully transparent so alpha-capable formats keep
// their transparency; JPEG encoding discards it.
func (g *Generator) crop(src image.Image) image.Image {
	size := g.Size
	if size <= 0 {
		size = DefaultSize
	}

	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	srcRect := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, srcRect, xdraw.Src, nil)
	return dst
}

func (g *Generator) encode(img image.Image, ext string) ([]byte, error) {
	quality := g.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	var err error
	switch ext {
	case "jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
