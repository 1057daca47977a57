package compose

import (
	"io"
	"log/slog"
)

// Option is a functional option for configuring a Composer via New.
type Option func(*settings)

type settings struct {
	coverWidth        float64
	coverHeight       float64
	subtitle          string
	copyright         string
	fontFamily        string
	backgroundOpacity float64
	creator           string
	code              CoverCode
	optimize          bool
	logger            *slog.Logger
}

// Defaults for a Composer created without options.
const (
	DefaultCoverWidth        = 842.0
	DefaultCoverHeight       = 595.0
	DefaultSubtitle          = "Step Guide"
	DefaultCopyright         = "Copyright © 2025, Oracle and/or its affiliates"
	DefaultFontFamily        = "Helvetica"
	DefaultBackgroundOpacity = 0.4
	DefaultCreator           = "brandpdf"
)

func defaultSettings() settings {
	return settings{
		coverWidth:        DefaultCoverWidth,
		coverHeight:       DefaultCoverHeight,
		subtitle:          DefaultSubtitle,
		copyright:         DefaultCopyright,
		fontFamily:        DefaultFontFamily,
		backgroundOpacity: DefaultBackgroundOpacity,
		creator:           DefaultCreator,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithCoverSize sets the cover page size in points. The cover does not follow
// the source document's page size.
func WithCoverSize(width, height float64) Option {
	return func(s *settings) {
		if width > 0 && height > 0 {
			s.coverWidth = width
			s.coverHeight = height
		}
	}
}

// WithSubtitle sets the label drawn below the divider on the cover page.
func WithSubtitle(subtitle string) Option {
	return func(s *settings) {
		s.subtitle = subtitle
	}
}

// WithCopyright sets the copyright line stamped at the bottom left of every
// content page.
func WithCopyright(copyright string) Option {
	return func(s *settings) {
		s.copyright = copyright
	}
}

// WithFontFamily selects one of the standard PDF font families
// ("Helvetica", "Times", "Courier").
func WithFontFamily(family string) Option {
	return func(s *settings) {
		if family != "" {
			s.fontFamily = family
		}
	}
}

// WithBackgroundOpacity sets the opacity, 0.0 to 1.0, of the background image
// drawn beneath each content page.
func WithBackgroundOpacity(opacity float64) Option {
	return func(s *settings) {
		s.backgroundOpacity = min(max(opacity, 0), 1)
	}
}

// WithCreator sets the Creator entry of the output document's metadata.
func WithCreator(creator string) Option {
	return func(s *settings) {
		s.creator = creator
	}
}

// WithCoverCode adds a machine-readable code to the cover page.
func WithCoverCode(code CoverCode) Option {
	return func(s *settings) {
		s.code = code
	}
}

// WithOptimize runs the serialized output through pdfcpu's optimizer, which
// drops duplicate resources.
func WithOptimize(optimize bool) Option {
	return func(s *settings) {
		s.optimize = optimize
	}
}

// WithLogger sets the structured logger. Nil keeps the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}
