package compose_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/compose"
	"github.com/stepguide/brandpdf/imagefmt"
	"github.com/stepguide/brandpdf/inspect"
)

// A4 in points, as gofpdf writes it for the source fixtures.
const a4W, a4H = 595.28, 841.89

var (
	gsOp = regexp.MustCompile(`/(GS\d+) gs`)
	doOp = regexp.MustCompile(`(\S+) Do\b`)
)

// pageOps is the decoded content stream of one output page together with
// the fill alpha of every graphics state it can select.
type pageOps struct {
	content string
	alpha   map[string]float64
}

func readPage(t *testing.T, data []byte, n int) pageOps {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(data), inspect.Configuration())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		t.Fatalf("validating output: %v", err)
	}
	pageDict, _, _, err := ctx.PageDict(n, false)
	if err != nil {
		t.Fatalf("page %d dictionary: %v", n, err)
	}
	content, err := ctx.PageContent(pageDict)
	if err != nil {
		t.Fatalf("page %d content: %v", n, err)
	}

	res, err := ctx.DereferenceDict(pageDict["Resources"])
	if err != nil {
		t.Fatalf("page %d resources: %v", n, err)
	}
	states, err := ctx.DereferenceDict(res["ExtGState"])
	if err != nil {
		t.Fatalf("page %d graphics states: %v", n, err)
	}
	alpha := make(map[string]float64)
	for name, ref := range states {
		gs, err := ctx.DereferenceDict(ref)
		if err != nil {
			t.Fatalf("graphics state %s: %v", name, err)
		}
		switch v := gs["ca"].(type) {
		case types.Float:
			alpha[name] = v.Value()
		case types.Integer:
			alpha[name] = float64(v.Value())
		}
	}
	return pageOps{content: string(content), alpha: alpha}
}

// draws returns the XObject names painted by Do, in order, with their
// offsets in the content stream.
func (p pageOps) draws() (names []string, offsets []int) {
	for _, m := range doOp.FindAllStringSubmatchIndex(p.content, -1) {
		names = append(names, p.content[m[2]:m[3]])
		offsets = append(offsets, m[0])
	}
	return names, offsets
}

// alphaAt returns the fill alpha selected by the last gs operator before
// offset, or 1 when none was.
func (p pageOps) alphaAt(t *testing.T, offset int) float64 {
	t.Helper()
	matches := gsOp.FindAllStringSubmatchIndex(p.content[:offset], -1)
	if len(matches) == 0 {
		return 1
	}
	last := matches[len(matches)-1]
	name := p.content[last[2]:last[3]]
	a, ok := p.alpha[name]
	if !ok {
		t.Fatalf("graphics state %s has no fill alpha", name)
	}
	return a
}

// index returns the offset of op in the content stream, failing the test
// when it is absent.
func (p pageOps) index(t *testing.T, op string) int {
	t.Helper()
	i := strings.Index(p.content, op)
	if i < 0 {
		t.Fatalf("content stream is missing %q:\n%s", op, p.content)
	}
	return i
}

func textOp(x, y float64, s string) string {
	return fmt.Sprintf("BT %.2f %.2f Td (%s) Tj ET", x, y, s)
}

func stringWidth(s string, size float64) float64 {
	m := gofpdf.New("P", "pt", "A4", "")
	m.SetFont("Helvetica", "", size)
	return m.GetStringWidth(s)
}

func TestComposeContentLayering(t *testing.T) {
	res, err := compose.New().Compose(context.Background(), testAssets(t, "Layer Title", 1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	page := readPage(t, res.Data, 2)

	names, offsets := page.draws()
	if len(names) != 2 {
		t.Fatalf("content page paints %d XObjects (%q), want background and page", len(names), names)
	}
	if !strings.HasPrefix(strings.TrimPrefix(names[0], "/"), "I") {
		t.Errorf("first XObject %q is not the background image", names[0])
	}
	if strings.HasPrefix(strings.TrimPrefix(names[1], "/"), "I") {
		t.Errorf("second XObject %q is an image, want the imported page", names[1])
	}

	if got := page.alphaAt(t, offsets[0]); got != compose.DefaultBackgroundOpacity {
		t.Errorf("background drawn at alpha %v, want %v", got, compose.DefaultBackgroundOpacity)
	}
	if got := page.alphaAt(t, offsets[1]); got != 1 {
		t.Errorf("imported page drawn at alpha %v, want 1", got)
	}

	bg := fmt.Sprintf("q %.5f 0 0 %.5f %.5f %.5f cm", a4W, a4H, 0.0, 0.0)
	if i := page.index(t, bg); i > offsets[0] {
		t.Errorf("background is not drawn full-page before the page itself")
	}

	title := textOp(a4W-stringWidth("Layer Title", 10)-30, a4H-43, "Layer Title")
	if i := page.index(t, title); i < offsets[1] {
		t.Error("title stamp is drawn under the imported page")
	}
}

func TestComposeStampPositions(t *testing.T) {
	c := compose.New(compose.WithCopyright("Example Corp 2025"))
	res, err := c.Compose(context.Background(), testAssets(t, "Stamped", 2))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	for n := 2; n <= 3; n++ {
		page := readPage(t, res.Data, n)
		marker := fmt.Sprintf("%d/3", n)
		want := []string{
			textOp(a4W-stringWidth("Stamped", 10)-30, a4H-43, "Stamped"),
			textOp(30, a4H-(a4H-30), "Example Corp 2025"),
			textOp(a4W-stringWidth(marker, 10)-30, a4H-(a4H-30), marker),
		}
		prev := -1
		for _, op := range want {
			i := page.index(t, op)
			if i < prev {
				t.Errorf("page %d: %q drawn out of order", n, op)
			}
			prev = i
		}
	}
}

func TestComposeCoverLayout(t *testing.T) {
	const h = compose.DefaultCoverHeight
	res, err := compose.New().Compose(context.Background(), testAssets(t, "Cover Layout", 1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(res.TitleLines) != 1 {
		t.Fatalf("title wrapped into %d lines, want 1", len(res.TitleLines))
	}
	cover := readPage(t, res.Data, 1)

	border := fmt.Sprintf("q %.5f 0 0 %.5f %.5f %.5f cm", 35.0, h, 0.0, 0.0)
	logo := fmt.Sprintf("q %.5f 0 0 %.5f %.5f %.5f cm", 107.0, 59.0, 70.0, h-112.0)
	cover.index(t, border)
	cover.index(t, logo)

	baseline := h/1.9 + 20
	title := cover.index(t, textOp(70, h-(h-baseline), "Cover Layout"))

	baseline -= 35
	divY := h - (h - baseline)
	divider := cover.index(t, fmt.Sprintf("%.2f %.2f m %.2f %.2f l S", 70.0, divY, 107.0, divY))
	cover.index(t, "3.50 w")

	subtitle := cover.index(t, textOp(70, h-(h-(baseline-52)), compose.DefaultSubtitle))

	if !(title < divider && divider < subtitle) {
		t.Errorf("cover order: title@%d divider@%d subtitle@%d", title, divider, subtitle)
	}
	if names, _ := cover.draws(); len(names) != 2 {
		t.Errorf("cover paints %d XObjects, want border and logo", len(names))
	}
}

func TestComposePDF417Code(t *testing.T) {
	const w = compose.DefaultCoverWidth
	c := compose.New(compose.WithCoverCode(compose.CoverCode{Kind: compose.CodePDF417, Payload: "GUIDE-0042"}))
	res, err := c.Compose(context.Background(), testAssets(t, "Code", 1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	cover := readPage(t, res.Data, 1)
	if names, _ := cover.draws(); len(names) != 3 {
		t.Errorf("cover paints %d XObjects, want border, logo and code", len(names))
	}
	// Lower-right corner, 40pt from both edges.
	cover.index(t, fmt.Sprintf("q %.5f 0 0 %.5f %.5f %.5f cm", 160.0, 50.0, w-40-160, 40.0))
}

// emptyPDF returns a valid document whose page tree has no pages.
func emptyPDF() []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestComposeEmptySource(t *testing.T) {
	src := testAssets(t, "Cover Only")
	src.Documents = []brandpdf.Asset{{Name: "empty.pdf", ContentType: brandpdf.MIMEPDF, Data: emptyPDF()}}

	res, err := compose.New().Compose(context.Background(), src)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Pages != 1 {
		t.Errorf("Result.Pages = %d, want 1", res.Pages)
	}
	info, err := inspect.Open(res.Data)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if info.PageCount != 1 {
		t.Errorf("output has %d pages, want the cover only", info.PageCount)
	}
}

func TestComposeUnencodableText(t *testing.T) {
	tests := []struct {
		name  string
		opts  []compose.Option
		title string
		field string
	}{
		{name: "title", title: "市場レポート Q1 Plan", field: "title"},
		{name: "subtitle", opts: []compose.Option{compose.WithSubtitle("Guide → Steps")}, title: "Plan", field: "subtitle"},
		{name: "copyright", opts: []compose.Option{compose.WithCopyright("© 2025 株式会社")}, title: "Plan", field: "copyright"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := compose.New(tt.opts...).Compose(context.Background(), testAssets(t, tt.title, 1))
			if !errors.Is(err, compose.ErrUnencodableText) {
				t.Fatalf("expected ErrUnencodableText, got %v (result %v)", err, res)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}

	// Latin-1 and the Windows-1252 extras are drawable.
	if _, err := compose.New().Compose(context.Background(), testAssets(t, "Café – 50 € Überblick", 1)); err != nil {
		t.Errorf("Compose with WinAnsi title: %v", err)
	}
}

func TestComposeWidePNG(t *testing.T) {
	wide := image.NewNRGBA64(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			wide.Set(x, y, color.NRGBA64{0x1234, 0x8000, 0xFFFF, 0xFFFF})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, wide); err != nil {
		t.Fatal(err)
	}

	src := testAssets(t, "Wide", 1)
	src.Logo.Data = buf.Bytes()
	res, err := compose.New().Compose(context.Background(), src)
	if err != nil {
		t.Fatalf("Compose with 16-bit logo: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("Result.Pages = %d, want 2", res.Pages)
	}
}

func TestComposeRejectedImageNamed(t *testing.T) {
	// A PNG header with color type 5, which no PNG writer produces.
	bad := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x05\x00\x00\x00\x00\x00\x00\x00")

	src := testAssets(t, "Rejected", 1)
	src.Logo.Data = bad
	_, err := compose.New().Compose(context.Background(), src)
	if !errors.Is(err, imagefmt.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if !strings.Contains(err.Error(), "logo image") {
		t.Errorf("error %q does not name the logo", err)
	}
	if strings.Contains(err.Error(), "doc1.pdf") {
		t.Errorf("error %q blames the source document", err)
	}
}
