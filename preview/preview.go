// Package preview rasterizes PDF pages for on-screen review.
//
// A Renderer clears a Display and then appends one image per page, in page
// order. Rasterization itself is delegated to a Rasterizer; the default one
// runs poppler's pdftoppm.
package preview

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"golang.org/x/image/draw"

	"github.com/stepguide/brandpdf/inspect"
)

// Rasterizer renders a single page of a PDF file to an image.
type Rasterizer interface {
	// Rasterize renders the 1-based page n of the PDF at path. A scale of
	// 1.0 maps one PDF point to one pixel.
	Rasterize(ctx context.Context, path string, n int, scale float64) (image.Image, error)
}

// Display receives rendered pages.
type Display interface {
	// Clear removes everything previously shown.
	Clear() error
	// Append shows img after the pages already shown.
	Append(n int, img image.Image) error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithScale sets the rasterization scale. Non-positive values are ignored.
func WithScale(scale float64) Option {
	return func(r *Renderer) {
		if scale > 0 {
			r.scale = scale
		}
	}
}

// WithMaxWidth downscales pages wider than width pixels. Zero disables it.
func WithMaxWidth(width int) Option {
	return func(r *Renderer) {
		r.maxWidth = max(width, 0)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// DefaultScale renders pages at their natural size, 72 pixels per inch.
const DefaultScale = 1.0

// Renderer renders every page of a document into a Display.
type Renderer struct {
	rasterizer Rasterizer
	scale      float64
	maxWidth   int
	logger     *slog.Logger
}

// NewRenderer creates a Renderer that uses rz for rasterization.
func NewRenderer(rz Rasterizer, opts ...Option) *Renderer {
	r := &Renderer{
		rasterizer: rz,
		scale:      DefaultScale,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render replaces the content of d with the pages of the PDF in data and
// returns the number of pages shown. The display is cleared before the
// document is read, so a malformed document leaves it empty.
func (r *Renderer) Render(ctx context.Context, data []byte, d Display) (int, error) {
	if err := d.Clear(); err != nil {
		return 0, fmt.Errorf("preview: clearing display: %w", err)
	}

	info, err := inspect.Open(data)
	if err != nil {
		return 0, fmt.Errorf("preview: %w", err)
	}

	path, cleanup, err := writeTemp(data)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	for n := 1; n <= info.PageCount; n++ {
		if err := ctx.Err(); err != nil {
			return n - 1, err
		}
		img, err := r.rasterizer.Rasterize(ctx, path, n, r.scale)
		if err != nil {
			return n - 1, fmt.Errorf("preview: page %d: %w", n, err)
		}
		if err := d.Append(n, r.fit(img)); err != nil {
			return n - 1, fmt.Errorf("preview: showing page %d: %w", n, err)
		}
	}

	r.logger.Debug("preview rendered", slog.Int("pages", info.PageCount), slog.Float64("scale", r.scale))
	return info.PageCount, nil
}

// fit scales img down to maxWidth, keeping its aspect ratio.
func (r *Renderer) fit(img image.Image) image.Image {
	b := img.Bounds()
	if r.maxWidth == 0 || b.Dx() <= r.maxWidth {
		return img
	}
	h := max(1, b.Dy()*r.maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, r.maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func writeTemp(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "brandpdf-preview-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("preview: creating temp file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("preview: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("preview: closing temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
