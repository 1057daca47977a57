package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
)

// Gallery is an in-memory Display. It is safe for concurrent use: readers
// may fetch pages while a renderer replaces them.
type Gallery struct {
	mu    sync.RWMutex
	pages []image.Image
}

// Clear implements Display.
func (g *Gallery) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pages = nil
	return nil
}

// Append implements Display.
func (g *Gallery) Append(_ int, img image.Image) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pages = append(g.pages, img)
	return nil
}

// Len returns the number of pages shown.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pages)
}

// Page returns the 1-based page n.
func (g *Gallery) Page(n int) (image.Image, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n < 1 || n > len(g.pages) {
		return nil, false
	}
	return g.pages[n-1], true
}

// PNG returns page n encoded as PNG.
func (g *Gallery) PNG(n int) ([]byte, error) {
	img, ok := g.Page(n)
	if !ok {
		return nil, fmt.Errorf("preview: page %d not rendered", n)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("preview: encoding page %d: %w", n, err)
	}
	return buf.Bytes(), nil
}

// DirDisplay writes each page to Dir as page-NNN.png.
type DirDisplay struct {
	Dir string
}

const pagePattern = "page-*.png"

// PagePath returns the file a DirDisplay writes page n to.
func (d *DirDisplay) PagePath(n int) string {
	return filepath.Join(d.Dir, fmt.Sprintf("page-%03d.png", n))
}

// Clear removes page images from earlier renders and creates Dir if needed.
// Other files in Dir are left alone.
func (d *DirDisplay) Clear() error {
	if err := os.MkdirAll(d.Dir, 0o750); err != nil {
		return err
	}
	old, err := filepath.Glob(filepath.Join(d.Dir, pagePattern))
	if err != nil {
		return err
	}
	for _, p := range old {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

// Append implements Display.
func (d *DirDisplay) Append(n int, img image.Image) error {
	f, err := os.OpenFile(d.PagePath(n), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) // #nosec G302 -- page images are meant to be shared
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
