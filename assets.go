// Package brandpdf brands PDF documents: it adds a cover page built from a
// title and image assets, and lays every source page over a background image
// stamped with the title, a copyright line and a page marker.
//
// The root package holds the input model shared by the compose, preview, web
// and mcp packages.
package brandpdf

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTitle is used on the cover page and footers when no title is given.
const DefaultTitle = "Branded Title"

// MIMEPDF is the content type required for source documents.
const MIMEPDF = "application/pdf"

var pdfMagic = []byte("%PDF-")

// Asset is one user-selected binary blob.
type Asset struct {
	Name        string // file name as supplied, informational
	ContentType string // declared content type, may be empty
	Data        []byte
}

// Empty reports whether no bytes were provided for the asset.
func (a Asset) Empty() bool { return len(a.Data) == 0 }

// SourceAssets is everything one generation run reads. It is built fresh for
// each preview or download and must not be mutated once handed to a composer.
type SourceAssets struct {
	Documents  []Asset // source PDFs, pages concatenated in order
	Logo       Asset
	Border     Asset
	Background Asset
	Title      string
}

// DisplayTitle returns the title drawn on the output, falling back to
// DefaultTitle when the user left it blank.
func (s *SourceAssets) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return s.Title
	}
	return DefaultTitle
}

// Validate checks that every required asset is present and that each source
// document is a PDF. It runs before any processing starts.
func (s *SourceAssets) Validate() error {
	if len(s.Documents) == 0 {
		return ErrNoDocument
	}
	for _, doc := range s.Documents {
		if err := ValidateDocument(doc); err != nil {
			return err
		}
	}

	var missing []string
	if s.Logo.Empty() {
		missing = append(missing, "logo")
	}
	if s.Border.Empty() {
		missing = append(missing, "border")
	}
	if s.Background.Empty() {
		missing = append(missing, "background")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingAsset, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateDocument checks a single source document. A declared content type,
// when present, must be application/pdf; the bytes must start with a PDF header.
func ValidateDocument(doc Asset) error {
	if doc.Empty() {
		return ErrNoDocument
	}
	if doc.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(doc.ContentType)
		if err != nil || mediaType != MIMEPDF {
			return fmt.Errorf("%w: %s has type %q", ErrNotPDF, displayName(doc), doc.ContentType)
		}
	}
	head := doc.Data[:min(1024, len(doc.Data))]
	if !bytes.Contains(head, pdfMagic) {
		return fmt.Errorf("%w: %s has no PDF header", ErrNotPDF, displayName(doc))
	}
	return nil
}

func displayName(a Asset) string {
	if a.Name != "" {
		return a.Name
	}
	return "document"
}

// ReadAsset reads an asset from r. The content type is left empty; callers that
// know it (HTTP uploads) set it themselves.
func ReadAsset(name string, r io.Reader) (Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Asset{}, fmt.Errorf("brandpdf: reading %s: %w", name, err)
	}
	return Asset{Name: name, Data: data}, nil
}

// LoadAsset reads an asset from disk and derives its content type from the
// file extension.
func LoadAsset(path string) (Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, fmt.Errorf("brandpdf: reading %s: %w", path, err)
	}
	return Asset{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}, nil
}

// AssetPaths names the files that make up a generation run on disk.
type AssetPaths struct {
	Documents  []string
	Logo       string
	Border     string
	Background string
}

// LoadAssets reads every file named in paths. Missing paths are reported as
// validation errors, not I/O errors, so that the caller sees the same message
// regardless of how the assets were supplied.
func LoadAssets(paths AssetPaths, title string) (*SourceAssets, error) {
	src := &SourceAssets{Title: title}
	for _, p := range paths.Documents {
		a, err := LoadAsset(p)
		if err != nil {
			return nil, NewError("LoadAssets", err)
		}
		src.Documents = append(src.Documents, a)
	}

	for _, slot := range []struct {
		path string
		dst  *Asset
	}{
		{paths.Logo, &src.Logo},
		{paths.Border, &src.Border},
		{paths.Background, &src.Background},
	} {
		if slot.path == "" {
			continue
		}
		a, err := LoadAsset(slot.path)
		if err != nil {
			return nil, NewError("LoadAssets", err)
		}
		*slot.dst = a
	}

	if err := src.Validate(); err != nil {
		return nil, NewError("LoadAssets", err)
	}
	return src, nil
}
