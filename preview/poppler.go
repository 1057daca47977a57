package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrRasterizerNotFound is returned when the pdftoppm binary is unavailable.
var ErrRasterizerNotFound = errors.New("preview: pdftoppm not found (install poppler-utils)")

// DefaultPopplerBinary is the executable looked up on PATH.
const DefaultPopplerBinary = "pdftoppm"

// Poppler rasterizes pages by running poppler's pdftoppm.
type Poppler struct {
	Binary string // path or name of pdftoppm; DefaultPopplerBinary when empty
}

// Available reports whether the pdftoppm binary can be found.
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

func (p *Poppler) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return DefaultPopplerBinary
}

// Rasterize implements Rasterizer.
func (p *Poppler) Rasterize(ctx context.Context, path string, n int, scale float64) (image.Image, error) {
	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, ErrRasterizerNotFound
	}

	dir, err := os.MkdirTemp("", "brandpdf-page-*")
	if err != nil {
		return nil, fmt.Errorf("preview: creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	root := filepath.Join(dir, "page")
	page := strconv.Itoa(n)
	dpi := strconv.FormatFloat(72*scale, 'f', -1, 64)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", dpi, "-f", page, "-l", page, "-singlefile", path, root) // #nosec G204 -- binary is operator-configured
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("preview: pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	f, err := os.Open(root + ".png")
	if err != nil {
		return nil, fmt.Errorf("preview: reading rendered page: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("preview: decoding rendered page: %w", err)
	}
	return img, nil
}
