// Package compose builds branded PDF documents.
//
// A branded document starts with a synthesized cover page (border strip, logo,
// wrapped title, divider and subtitle) followed by every page of the source
// documents. Each source page is imported as a template and drawn over a
// reduced-opacity background image, then stamped with the title, a copyright
// line and a "current/total" page marker.
//
// Page composition and serialization use gofpdf; source pages are imported
// with its gofpdi contrib package and validated with pdfcpu beforehand.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/imagefmt"
	"github.com/stepguide/brandpdf/inspect"
)

// Composer turns SourceAssets into branded PDF bytes. A Composer holds no
// per-run state and may be used from several goroutines.
type Composer struct {
	cfg settings
}

// New creates a Composer. With no options the cover is 842x595 points, the
// subtitle reads "Step Guide" and the background is drawn at 40% opacity.
func New(opts ...Option) *Composer {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Composer{cfg: cfg}
}

// Result is the outcome of one generation run.
type Result struct {
	Data       []byte   // serialized PDF
	Pages      int      // total pages, cover included
	TitleLines []string // title as wrapped on the cover page
}

// source is a validated source document.
type source struct {
	name string
	data []byte
	info *inspect.Info
}

// images holds the three embeddable image assets of a run.
type images struct {
	border, logo, background imagefmt.Embeddable
}

// Compose builds the branded document for src. Input problems are reported
// before any page is produced; any later failure aborts the run and no
// partial output is returned.
func (c *Composer) Compose(ctx context.Context, src *brandpdf.SourceAssets) (*Result, error) {
	start := time.Now()
	log := c.cfg.logger

	if err := src.Validate(); err != nil {
		return nil, brandpdf.NewError("Compose", err)
	}
	title := src.DisplayTitle()
	if err := c.checkText(title); err != nil {
		return nil, brandpdf.NewError("Compose", err)
	}

	sources, err := loadSources(src.Documents)
	if err != nil {
		return nil, brandpdf.NewError("LoadDocument", err)
	}

	imgs, err := prepareImages(src)
	if err != nil {
		return nil, brandpdf.NewError("EmbedImage", err)
	}

	contentPages := 0
	for _, s := range sources {
		contentPages += s.info.PageCount
		log.Debug("source document loaded", slog.String("name", s.name), slog.Int("pages", s.info.PageCount))
	}

	b := newBuilder(&c.cfg, title, contentPages+1)
	if err := b.run(ctx, imgs, sources); err != nil {
		return nil, brandpdf.NewError("Compose", err)
	}

	var buf bytes.Buffer
	if err := b.pdf.Output(&buf); err != nil {
		return nil, brandpdf.NewError("Save", fmt.Errorf("compose: %w", err))
	}
	data := buf.Bytes()

	if c.cfg.optimize {
		var opt bytes.Buffer
		if err := api.Optimize(bytes.NewReader(data), &opt, inspect.Configuration()); err != nil {
			return nil, brandpdf.NewError("Optimize", fmt.Errorf("compose: %w", err))
		}
		log.Debug("output optimized", slog.Int("before", len(data)), slog.Int("after", opt.Len()))
		data = opt.Bytes()
	}

	log.Info("branded document composed",
		slog.Int("pages", contentPages+1),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))

	return &Result{Data: data, Pages: contentPages + 1, TitleLines: b.titleLines}, nil
}

func loadSources(docs []brandpdf.Asset) ([]source, error) {
	sources := make([]source, 0, len(docs))
	for _, doc := range docs {
		info, err := inspect.Open(doc.Data)
		if err != nil {
			return nil, fmt.Errorf("compose: reading %s: %w", nameOf(doc, "document"), err)
		}
		sources = append(sources, source{name: doc.Name, data: doc.Data, info: info})
	}
	return sources, nil
}

func prepareImages(src *brandpdf.SourceAssets) (images, error) {
	var imgs images
	for _, slot := range []struct {
		role  string
		asset brandpdf.Asset
		dst   *imagefmt.Embeddable
	}{
		{"border", src.Border, &imgs.border},
		{"logo", src.Logo, &imgs.logo},
		{"background", src.Background, &imgs.background},
	} {
		e, err := imagefmt.Prepare(slot.asset.Data)
		if err != nil {
			return images{}, fmt.Errorf("compose: %s image %s: %w", slot.role, nameOf(slot.asset, slot.role), err)
		}
		*slot.dst = e
	}
	return imgs, nil
}

func nameOf(a brandpdf.Asset, fallback string) string {
	if a.Name != "" {
		return a.Name
	}
	return fallback
}

// builder carries the gofpdf document through one run.
type builder struct {
	cfg        *settings
	pdf        *gofpdf.Fpdf
	tr         func(string) string
	title      string
	total      int
	titleLines []string
}

func newBuilder(cfg *settings, title string, total int) *builder {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: cfg.coverWidth, Ht: cfg.coverHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator(cfg.creator, true)

	return &builder{
		cfg:   cfg,
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		title: title,
		total: total,
	}
}

// run draws every page. The gofpdi importer reports malformed input by
// panicking, so panics are turned into the run's error.
func (b *builder) run(ctx context.Context, imgs images, sources []source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compose: importing pages: %v", r)
		}
	}()

	if err := b.registerImages(imgs); err != nil {
		return err
	}
	b.drawCover()
	if err := b.addContentPages(ctx, sources); err != nil {
		return err
	}

	if b.pdf.Err() {
		return fmt.Errorf("compose: %w", b.pdf.Error())
	}
	return nil
}

// Image names registered with gofpdf.
const (
	borderImage     = "border"
	logoImage       = "logo"
	backgroundImage = "background"
)

// registerImages embeds the three images and reports the first one the
// PDF writer rejects.
func (b *builder) registerImages(imgs images) error {
	for _, img := range []struct {
		name string
		e    imagefmt.Embeddable
	}{
		{borderImage, imgs.border},
		{logoImage, imgs.logo},
		{backgroundImage, imgs.background},
	} {
		b.pdf.RegisterImageOptionsReader(img.name, gofpdf.ImageOptions{ImageType: img.e.Type}, bytes.NewReader(img.e.Data))
		if b.pdf.Err() {
			return fmt.Errorf("compose: %s image: %w: %v", img.name, imagefmt.ErrUnsupportedImage, b.pdf.Error())
		}
	}
	b.cfg.logger.Debug("images embedded",
		slog.String("border", string(imgs.border.Source)),
		slog.String("logo", string(imgs.logo.Source)),
		slog.String("background", string(imgs.background.Source)))
	return nil
}

// drawImage draws a registered image with its top-left corner at (x, y).
func (b *builder) drawImage(name string, x, y, w, h float64) {
	b.pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{}, 0, "")
}
