// Package config loads the brand profile: the YAML file that fixes the cover
// layout, footer text, preview settings and server limits for every run.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/stepguide/brandpdf/compose"
	"github.com/stepguide/brandpdf/preview"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrFieldTooLong   = errors.New("field exceeds maximum length")
	ErrInvalidValue   = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxSubtitleLength  = 200
	MaxCopyrightLength = 500
	MaxPayloadLength   = 1000 // QR version 40 holds ~2300 chars at level M; keep it scannable
	MaxPathLength      = 4096
	MaxConfigSize      = 1 << 20
)

// Config is the brand profile.
type Config struct {
	Cover      CoverConfig      `yaml:"cover"`
	Footer     FooterConfig     `yaml:"footer"`
	Background BackgroundConfig `yaml:"background"`
	Font       FontConfig       `yaml:"font"`
	Output     OutputConfig     `yaml:"output"`
	Preview    PreviewConfig    `yaml:"preview"`
	Server     ServerConfig     `yaml:"server"`
}

// CoverConfig defines the cover page.
type CoverConfig struct {
	Width    float64    `yaml:"width"`  // points (default: 842)
	Height   float64    `yaml:"height"` // points (default: 595)
	Subtitle string     `yaml:"subtitle"`
	Code     CodeConfig `yaml:"code"`
}

// CodeConfig defines the optional machine-readable cover code.
type CodeConfig struct {
	Kind    string `yaml:"kind"`    // "", "qr" or "pdf417"
	Payload string `yaml:"payload"` // encoded text, usually a URL
}

// FooterConfig defines the stamps on content pages.
type FooterConfig struct {
	Copyright string `yaml:"copyright"`
}

// BackgroundConfig defines the background layer under content pages.
type BackgroundConfig struct {
	Opacity float64 `yaml:"opacity"` // 0.0 to 1.0 (default: 0.4)
}

// FontConfig selects the standard font family used for all text.
type FontConfig struct {
	Family string `yaml:"family"` // Helvetica, Times or Courier
}

// OutputConfig defines where and how documents are written.
type OutputConfig struct {
	Dir      string `yaml:"dir"`      // default output directory (empty = current)
	Optimize bool   `yaml:"optimize"` // run pdfcpu's optimizer on the output
}

// PreviewConfig defines page rasterization.
type PreviewConfig struct {
	Scale    float64 `yaml:"scale"`    // 1.0 = 72 DPI
	MaxWidth int     `yaml:"maxWidth"` // pixels, 0 = no limit
	Pdftoppm string  `yaml:"pdftoppm"` // rasterizer binary
}

// ServerConfig defines the web UI limits.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	MaxUploadMB   int64         `yaml:"maxUploadMB"`
	SessionTTL    time.Duration `yaml:"sessionTTL"`
	MaxConcurrent int           `yaml:"maxConcurrent"` // 0 = derive from GOMAXPROCS
}

// DefaultConfig returns the stock StepGuide profile.
func DefaultConfig() *Config {
	return &Config{
		Cover: CoverConfig{
			Width:    compose.DefaultCoverWidth,
			Height:   compose.DefaultCoverHeight,
			Subtitle: compose.DefaultSubtitle,
		},
		Footer:     FooterConfig{Copyright: compose.DefaultCopyright},
		Background: BackgroundConfig{Opacity: compose.DefaultBackgroundOpacity},
		Font:       FontConfig{Family: compose.DefaultFontFamily},
		Preview: PreviewConfig{
			Scale:    preview.DefaultScale,
			Pdftoppm: preview.DefaultPopplerBinary,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MaxUploadMB: 64,
			SessionTTL:  30 * time.Minute,
		},
	}
}

// Load reads the profile at path over the defaults. Fields absent from the
// file keep their default values; unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	if len(data) > MaxConfigSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigParse, len(data), MaxConfigSize)
	}
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the profile as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Validate checks ranges and field lengths.
func (c *Config) Validate() error {
	if c.Cover.Width <= 0 || c.Cover.Height <= 0 {
		return fmt.Errorf("%w: cover size must be positive, got %vx%v", ErrInvalidValue, c.Cover.Width, c.Cover.Height)
	}
	if err := validateFieldLength("cover.subtitle", c.Cover.Subtitle, MaxSubtitleLength); err != nil {
		return err
	}
	if _, err := compose.ParseCodeKind(c.Cover.Code.Kind); err != nil {
		return fmt.Errorf("%w: cover.code.kind: %v", ErrInvalidValue, err)
	}
	if c.Cover.Code.Kind != "" && c.Cover.Code.Payload == "" {
		return fmt.Errorf("%w: cover.code.payload: required when cover.code.kind is set", ErrInvalidValue)
	}
	if err := validateFieldLength("cover.code.payload", c.Cover.Code.Payload, MaxPayloadLength); err != nil {
		return err
	}
	if err := validateFieldLength("footer.copyright", c.Footer.Copyright, MaxCopyrightLength); err != nil {
		return err
	}
	if c.Background.Opacity < 0 || c.Background.Opacity > 1 {
		return fmt.Errorf("%w: background.opacity must be between 0 and 1, got %.2f", ErrInvalidValue, c.Background.Opacity)
	}
	switch c.Font.Family {
	case "Helvetica", "Times", "Courier":
	default:
		return fmt.Errorf("%w: font.family %q (must be Helvetica, Times or Courier)", ErrInvalidValue, c.Font.Family)
	}
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if c.Preview.Scale <= 0 || c.Preview.Scale > 8 {
		return fmt.Errorf("%w: preview.scale must be in (0, 8], got %v", ErrInvalidValue, c.Preview.Scale)
	}
	if c.Preview.MaxWidth < 0 {
		return fmt.Errorf("%w: preview.maxWidth must not be negative", ErrInvalidValue)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: server.maxUploadMB must be positive", ErrInvalidValue)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("%w: server.sessionTTL must be positive", ErrInvalidValue)
	}
	if c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("%w: server.maxConcurrent must not be negative", ErrInvalidValue)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// ComposeOptions converts the profile into composer options.
func (c *Config) ComposeOptions(logger *slog.Logger) []compose.Option {
	kind, _ := compose.ParseCodeKind(c.Cover.Code.Kind)
	return []compose.Option{
		compose.WithCoverSize(c.Cover.Width, c.Cover.Height),
		compose.WithSubtitle(c.Cover.Subtitle),
		compose.WithCopyright(c.Footer.Copyright),
		compose.WithFontFamily(c.Font.Family),
		compose.WithBackgroundOpacity(c.Background.Opacity),
		compose.WithCoverCode(compose.CoverCode{Kind: kind, Payload: c.Cover.Code.Payload}),
		compose.WithOptimize(c.Output.Optimize),
		compose.WithLogger(logger),
	}
}

// RendererOptions converts the profile into preview renderer options.
func (c *Config) RendererOptions(logger *slog.Logger) []preview.Option {
	return []preview.Option{
		preview.WithScale(c.Preview.Scale),
		preview.WithMaxWidth(c.Preview.MaxWidth),
		preview.WithLogger(logger),
	}
}

// Rasterizer returns the pdftoppm rasterizer named by the profile.
func (c *Config) Rasterizer() *preview.Poppler {
	return &preview.Poppler{Binary: c.Preview.Pdftoppm}
}
