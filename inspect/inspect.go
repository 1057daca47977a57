// Package inspect loads PDF documents for reading: it validates them, reports
// their page count and page sizes, and lists the text drawn on a page.
//
// Parsing and validation are delegated to pdfcpu.
package inspect

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrCorrupted is returned when a document cannot be read or validated.
var ErrCorrupted = errors.New("inspect: document is corrupted")

func init() {
	// pdfcpu would otherwise create a configuration directory under the
	// user's home on first use.
	api.DisableConfigDir()
}

// PageSize is the MediaBox size of a page in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info describes a loaded document.
type Info struct {
	Version   string     `json:"version"`
	PageCount int        `json:"pageCount"`
	Pages     []PageSize `json:"pages"`
}

// Configuration returns the pdfcpu configuration used for every read.
// Validation is relaxed so that slightly malformed documents still load.
func Configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// readContext parses and validates data.
func readContext(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), Configuration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return ctx, nil
}

// Open reads and validates data and returns its page layout.
func Open(data []byte) (*Info, error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("inspect: reading page sizes: %w", err)
	}

	info := &Info{
		PageCount: ctx.PageCount,
		Pages:     make([]PageSize, len(dims)),
	}
	if ctx.HeaderVersion != nil {
		info.Version = ctx.HeaderVersion.String()
	}
	for i, d := range dims {
		info.Pages[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return info, nil
}

// PageStrings returns, in content-stream order, the literal strings shown by
// text operators on the 1-based page n. Strings drawn inside form XObjects
// (imported pages, for example) are not included.
//
// The document is validated with pdfcpu; its content is interpreted with
// ledongthuc/pdf.
func PageStrings(data []byte, n int) ([]string, error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > ctx.PageCount {
		return nil, fmt.Errorf("inspect: page %d out of range [1, %d]", n, ctx.PageCount)
	}
	return shownStrings(data, n)
}
