package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/compose"
	"github.com/stepguide/brandpdf/internal/config"
	"github.com/stepguide/brandpdf/mcp"
	"github.com/stepguide/brandpdf/preview"
	"github.com/stepguide/brandpdf/web"
)

// ErrWriteOutput is returned when the branded document cannot be written.
var ErrWriteOutput = errors.New("failed to write output")

// apply overrides profile settings with explicitly set flags and revalidates.
func (f *brandFlags) apply(cfg *config.Config) error {
	if f.set.subtitle {
		cfg.Cover.Subtitle = f.subtitle
	}
	if f.set.copyright {
		cfg.Footer.Copyright = f.copyright
	}
	if f.set.opacity {
		cfg.Background.Opacity = f.opacity
	}
	if f.set.code {
		cfg.Cover.Code.Kind = f.codeKind
	}
	if f.set.payload {
		cfg.Cover.Code.Payload = f.codePayload
	}
	if f.set.optimize {
		cfg.Output.Optimize = f.optimize
	}
	return cfg.Validate()
}

// setup loads the profile, applies brand overrides and builds the logger.
func setup(env *Environment, common commonFlags, brand *brandFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(common.config)
	if err != nil {
		return nil, nil, err
	}
	if brand != nil {
		if err := brand.apply(cfg); err != nil {
			return nil, nil, err
		}
	}
	return cfg, newLogger(env.Stderr, common), nil
}

func runBuild(ctx context.Context, args []string, env *Environment) error {
	f, err := parseBuildFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(env, f.common, &f.brand)
	if err != nil {
		return err
	}

	src, err := brandpdf.LoadAssets(brandpdf.AssetPaths{
		Documents:  f.documents,
		Logo:       f.logo,
		Border:     f.border,
		Background: f.background,
	}, f.title)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With(slog.String("run", runID))
	res, err := compose.New(cfg.ComposeOptions(logger)...).Compose(ctx, src)
	if err != nil {
		return err
	}

	out := f.output
	if out == "" {
		dir := f.outDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		out = filepath.Join(dir, brandpdf.OutputFilename(f.name, f.title))
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil { // #nosec G306 -- output documents are meant to be shared
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}

	logger.Info("document written", slog.String("path", out), slog.Int("pages", res.Pages))
	fmt.Fprintln(env.Stdout, out)
	return nil
}

func runPreview(ctx context.Context, args []string, env *Environment) error {
	f, files, err := parsePreviewFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(env, f.common, nil)
	if err != nil {
		return err
	}
	if f.scale > 0 {
		cfg.Preview.Scale = f.scale
	}
	if f.maxWidth >= 0 {
		cfg.Preview.MaxWidth = f.maxWidth
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		return err
	}

	display := &preview.DirDisplay{Dir: f.outDir}
	renderer := preview.NewRenderer(env.rasterizer(cfg), cfg.RendererOptions(logger)...)
	n, err := renderer.Render(ctx, data, display)
	if err != nil {
		return err
	}

	for i := 1; i <= n; i++ {
		fmt.Fprintln(env.Stdout, display.PagePath(i))
	}
	return nil
}

func runServe(ctx context.Context, args []string, env *Environment) error {
	f, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(env, f.common, &f.brand)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}

	srv := web.NewServer(
		compose.New(cfg.ComposeOptions(logger)...),
		preview.NewRenderer(env.rasterizer(cfg), cfg.RendererOptions(logger)...),
		web.WithMaxUpload(cfg.Server.MaxUploadMB<<20),
		web.WithSessionTTL(cfg.Server.SessionTTL),
		web.WithMaxConcurrent(cfg.Server.MaxConcurrent),
		web.WithLogger(logger),
	)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, ln, srv, cfg.Server.SessionTTL, logger)
}

// serve runs h on ln until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, srv *web.Server, ttl time.Duration, logger *slog.Logger) error {
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go srv.Janitor(janitorCtx, max(ttl/2, time.Second))

	errc := make(chan error, 1)
	go func() { errc <- httpSrv.Serve(ln) }()
	logger.Info("serving web UI", slog.String("addr", "http://"+ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("web UI stopped")
	return nil
}

func runMCP(ctx context.Context, args []string, env *Environment) error {
	f, err := parseMCPFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(env, f.common, &f.brand)
	if err != nil {
		return err
	}

	mcp.Version = Version
	s := mcp.NewServerWithIO(env.Stdin, env.Stdout, logger)
	mcp.RegisterDefaultTools(s, &mcp.Toolbox{
		Composer: compose.New(cfg.ComposeOptions(logger)...),
		Renderer: preview.NewRenderer(env.rasterizer(cfg), cfg.RendererOptions(logger)...),
		Profile:  cfg,
	})
	mcp.RegisterDefaultResources(s, cfg)

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
