package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// Footer layout on content pages, in points.
const (
	footerFontSize = 10.0
	footerMargin   = 30.0 // distance of the footer text from the page edges
	headerBaseline = 43.0 // distance of the title's baseline from the top edge
)

// Position specifies where a stamp is placed on a content page.
type Position int

const (
	TopRight Position = iota
	BottomLeft
	BottomRight
)

// stamp is one line of text drawn on top of a content page.
type stamp struct {
	text string
	pos  Position
}

// PageMarker returns the page-number text for the content page with 1-based
// index i in a document of total pages. The cover is page 1, so the first
// content page reads "2/total".
func PageMarker(i, total int) string {
	return fmt.Sprintf("%d/%d", i+1, total)
}

// addContentPages imports every page of every source, in order, and draws
// the background, the page itself and the stamps.
func (b *builder) addContentPages(ctx context.Context, sources []source) error {
	imp := gofpdi.NewImporter()
	index := 0

	for _, src := range sources {
		// gofpdi keys imported sources by the reader's address, so each
		// document needs its own variable.
		rs := io.ReadSeeker(bytes.NewReader(src.data))

		for n := 1; n <= src.info.PageCount; n++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			index++

			size := src.info.Pages[n-1]
			tplID := imp.ImportPageFromStream(b.pdf, &rs, n, "/MediaBox")
			b.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.Width, Ht: size.Height})

			b.pdf.SetAlpha(b.cfg.backgroundOpacity, "Normal")
			b.drawImage(backgroundImage, 0, 0, size.Width, size.Height)
			b.pdf.SetAlpha(1.0, "Normal")

			imp.UseImportedTemplate(b.pdf, tplID, 0, 0, size.Width, size.Height)

			b.drawStamps(size.Width, size.Height, []stamp{
				{b.title, TopRight},
				{b.cfg.copyright, BottomLeft},
				{PageMarker(index, b.total), BottomRight},
			})

			if b.pdf.Err() {
				return fmt.Errorf("compose: %s page %d: %w", src.name, n, b.pdf.Error())
			}
		}
		b.cfg.logger.Debug("source pages imported", slog.String("name", src.name), slog.Int("pages", src.info.PageCount))
	}
	return nil
}

func (b *builder) drawStamps(pageW, pageH float64, stamps []stamp) {
	b.pdf.SetFont(b.cfg.fontFamily, "", footerFontSize)
	b.pdf.SetTextColor(0, 0, 0)
	for _, s := range stamps {
		text := b.tr(s.text)
		x, y := calculatePosition(s.pos, pageW, pageH, b.pdf.GetStringWidth(text))
		b.pdf.Text(x, y, text)
	}
}

// calculatePosition returns the baseline origin for text of width textW.
// Right-aligned stamps keep their right edge footerMargin from the page edge.
func calculatePosition(pos Position, pageW, pageH, textW float64) (x, y float64) {
	switch pos {
	case TopRight:
		return pageW - textW - footerMargin, headerBaseline
	case BottomRight:
		return pageW - textW - footerMargin, pageH - footerMargin
	default: // BottomLeft
		return footerMargin, pageH - footerMargin
	}
}
