package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("invalid usage")

// errHelp is returned when --help was requested; the usage has been printed.
var errHelp = flag.ErrHelp

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// brandFlags override the profile's branding settings.
type brandFlags struct {
	subtitle    string
	copyright   string
	opacity     float64
	codeKind    string
	codePayload string
	optimize    bool
	set         changed
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common     commonFlags
	brand      brandFlags
	documents  []string
	logo       string
	border     string
	background string
	title      string
	name       string
	output     string
	outDir     string
}

// previewFlags holds all flags for the preview command.
type previewFlags struct {
	common   commonFlags
	outDir   string
	scale    float64
	maxWidth int
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common commonFlags
	brand  brandFlags
	addr   string
}

// mcpFlags holds all flags for the mcp command.
type mcpFlags struct {
	common commonFlags
	brand  brandFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "brand profile (YAML)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only log errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log every step")
}

// addBrandFlags adds branding override flags to a FlagSet.
func addBrandFlags(fs *flag.FlagSet, f *brandFlags) {
	fs.StringVar(&f.subtitle, "subtitle", "", "cover subtitle (default from profile: \"Step Guide\")")
	fs.StringVar(&f.copyright, "copyright", "", "copyright line stamped on content pages")
	fs.Float64Var(&f.opacity, "opacity", 0, "background opacity, 0.0 to 1.0 (default from profile: 0.4)")
	fs.StringVar(&f.codeKind, "code", "", "cover code: qr, pdf417")
	fs.StringVar(&f.codePayload, "code-payload", "", "text encoded in the cover code")
	fs.BoolVar(&f.optimize, "optimize", false, "optimize the output with pdfcpu")
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	return fs
}

// parse parses args and wraps failures in ErrUsage.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func parseBuildFlags(args []string, stderr io.Writer) (*buildFlags, error) {
	f := &buildFlags{}
	fs := newFlagSet("build", stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: brandpdf build [flags] document.pdf [more.pdf ...]")
		fs.PrintDefaults()
	}
	addCommonFlags(fs, &f.common)
	fs.StringSliceVarP(&f.documents, "doc", "d", nil, "source PDF (repeatable; positional arguments are added after)")
	fs.StringVar(&f.logo, "logo", "", "logo image")
	fs.StringVar(&f.border, "border", "", "cover border strip image")
	fs.StringVar(&f.background, "background", "", "page background image")
	fs.StringVarP(&f.title, "title", "t", "", "document title (default \"Branded Title\")")
	fs.StringVarP(&f.name, "name", "n", "", "output base name")
	fs.StringVarP(&f.output, "output", "o", "", "output file (default StepGuide_<name>_<title>.pdf)")
	fs.StringVar(&f.outDir, "out-dir", "", "directory for the default output file")
	addBrandFlags(fs, &f.brand)

	if err := parse(fs, args); err != nil {
		return nil, err
	}
	f.documents = append(f.documents, fs.Args()...)
	f.brand.applyChanged(fs)
	return f, nil
}

func parsePreviewFlags(args []string, stderr io.Writer) (*previewFlags, []string, error) {
	f := &previewFlags{}
	fs := newFlagSet("preview", stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: brandpdf preview [flags] document.pdf")
		fs.PrintDefaults()
	}
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.outDir, "out", "o", "preview", "directory for page-NNN.png files")
	fs.Float64Var(&f.scale, "scale", 0, "render scale, 1.0 = 72 DPI (default from profile)")
	fs.IntVar(&f.maxWidth, "max-width", -1, "downscale pages wider than this many pixels (default from profile)")

	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() != 1 {
		return nil, nil, fmt.Errorf("%w: expected exactly one PDF, got %d", ErrUsage, fs.NArg())
	}
	return f, fs.Args(), nil
}

func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", stderr)
	addCommonFlags(fs, &f.common)
	fs.StringVar(&f.addr, "addr", "", "listen address (default from profile: 127.0.0.1:8080)")
	addBrandFlags(fs, &f.brand)

	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}
	f.brand.applyChanged(fs)
	return f, nil
}

func parseMCPFlags(args []string, stderr io.Writer) (*mcpFlags, error) {
	f := &mcpFlags{}
	fs := newFlagSet("mcp", stderr)
	addCommonFlags(fs, &f.common)
	addBrandFlags(fs, &f.brand)

	if err := parse(fs, args); err != nil {
		return nil, err
	}
	f.brand.applyChanged(fs)
	return f, nil
}

// changed records which brand flags were set explicitly. An explicit zero
// (--opacity 0) overrides the profile too.
type changed struct {
	subtitle, copyright, opacity, code, payload, optimize bool
}

func (f *brandFlags) applyChanged(fs *flag.FlagSet) {
	f.set = changed{
		subtitle:  fs.Changed("subtitle"),
		copyright: fs.Changed("copyright"),
		opacity:   fs.Changed("opacity"),
		code:      fs.Changed("code"),
		payload:   fs.Changed("code-payload"),
		optimize:  fs.Changed("optimize"),
	}
}
