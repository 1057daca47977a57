package compose

import (
	"github.com/jung-kurt/gofpdf"

	"github.com/stepguide/brandpdf/textwrap"
)

// Cover page layout in points. Vertical positions are measured from the
// bottom edge of the page, as in PDF user space, and flipped when drawn.
const (
	borderWidth     = 35.0
	contentLeft     = 70.0
	logoWidth       = 107.0
	logoHeight      = 59.0
	logoBottom      = 112.0 // distance from the top edge to the logo's bottom
	titleFontSize   = 30.0
	titleLineHeight = 35.0
	titleMargin     = 100.0 // total horizontal space not available to the title
	titleRaise      = 20.0  // first baseline sits this far above height/1.9
	dividerEnd      = 107.0
	dividerWidth    = 3.5
	subtitleGap     = 52.0
	subtitleSize    = 16.0
)

// Divider color, RGB(1, 0.84, 0) scaled to 0-255.
var dividerColor = [3]int{255, 214, 0}

// drawCover adds the cover page: border strip, logo, wrapped title, divider
// and subtitle.
func (b *builder) drawCover() {
	pdf := b.pdf
	w, h := b.cfg.coverWidth, b.cfg.coverHeight
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})

	b.drawImage(borderImage, 0, 0, borderWidth, h)
	b.drawImage(logoImage, contentLeft, logoBottom-logoHeight, logoWidth, logoHeight)

	pdf.SetFont(b.cfg.fontFamily, "", titleFontSize)
	pdf.SetTextColor(0, 0, 0)
	measure := func(s string) float64 { return pdf.GetStringWidth(b.tr(s)) }
	b.titleLines = textwrap.Wrap(b.title, w-titleMargin, measure)

	baseline := h/1.9 + titleRaise
	for i, line := range b.titleLines {
		pdf.Text(contentLeft, h-(baseline-float64(i)*titleLineHeight), b.tr(line))
	}

	baseline -= float64(len(b.titleLines)) * titleLineHeight
	pdf.SetDrawColor(dividerColor[0], dividerColor[1], dividerColor[2])
	pdf.SetLineWidth(dividerWidth)
	pdf.Line(contentLeft, h-baseline, dividerEnd, h-baseline)

	pdf.SetFont(b.cfg.fontFamily, "", subtitleSize)
	pdf.Text(contentLeft, h-(baseline-subtitleGap), b.tr(b.cfg.subtitle))

	b.drawCoverCode()
}
