package compose

import (
	"fmt"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf/contrib/barcode"
)

// CodeKind selects the symbology of the optional cover code.
type CodeKind string

// Supported cover code symbologies.
const (
	CodeNone   CodeKind = ""
	CodeQR     CodeKind = "qr"
	CodePDF417 CodeKind = "pdf417"
)

// CoverCode is a machine-readable code printed in the lower-right corner of
// the cover page, typically a link to the guide's online version.
type CoverCode struct {
	Kind    CodeKind
	Payload string
}

// ParseCodeKind validates a symbology name.
func ParseCodeKind(s string) (CodeKind, error) {
	switch k := CodeKind(s); k {
	case CodeNone, CodeQR, CodePDF417:
		return k, nil
	}
	return CodeNone, fmt.Errorf("compose: unknown cover code %q (want qr or pdf417)", s)
}

// Cover code placement in points.
const (
	codeMargin     = 40.0
	qrSize         = 80.0
	pdf417Width    = 160.0
	pdf417Height   = 50.0
	pdf417Columns  = 6
	pdf417Security = 2
)

func (b *builder) drawCoverCode() {
	code := b.cfg.code
	if code.Kind == CodeNone || code.Payload == "" {
		return
	}
	w, h := b.cfg.coverWidth, b.cfg.coverHeight

	switch code.Kind {
	case CodeQR:
		key := barcode.RegisterQR(b.pdf, code.Payload, qr.M, qr.Unicode)
		barcode.Barcode(b.pdf, key, w-codeMargin-qrSize, h-codeMargin-qrSize, qrSize, qrSize, false)
	case CodePDF417:
		key := barcode.RegisterPdf417(b.pdf, code.Payload, pdf417Columns, pdf417Security)
		barcode.Barcode(b.pdf, key, w-codeMargin-pdf417Width, h-codeMargin-pdf417Height, pdf417Width, pdf417Height, false)
	}
}
