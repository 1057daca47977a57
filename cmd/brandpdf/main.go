// Command brandpdf brands PDF documents with a cover page, background and
// footers, previews PDFs as PNG pages, and serves the web UI and MCP server.
//
// Usage:
//
//	brandpdf build --logo logo.png --border strip.png --background bg.png \
//	    --title "Q1 Plan" --name "My Report" guide.pdf
//	brandpdf preview --out pages/ StepGuide_My_Report_Q1_Plan.pdf
//	brandpdf serve --addr :8080
//	brandpdf mcp
//	brandpdf version
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

const usage = `brandpdf brands PDF documents for StepGuide.

Usage:
  brandpdf <command> [flags] [args]

Commands:
  build     Brand one or more PDFs (pages are concatenated in order)
  preview   Render every page of a PDF to page-NNN.png files
  serve     Run the web UI
  mcp       Run the MCP server on stdio
  version   Print the version
  help      Show this help

Run 'brandpdf <command> --help' for the flags of a command.
`

func main() {
	env := DefaultEnv()

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, env)
	stop()
	os.Exit(code)
}

// notifyContext returns a context that is canceled when an interrupt
// or termination signal is received.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runMain dispatches to a command and returns the process exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		fmt.Fprint(env.Stderr, usage)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	var err error
	switch cmd {
	case "build":
		err = runBuild(ctx, rest, env)
	case "preview":
		err = runPreview(ctx, rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "mcp":
		err = runMCP(ctx, rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "brandpdf %s\n", Version)
		return ExitSuccess
	case "help", "--help", "-h":
		fmt.Fprint(env.Stdout, usage)
		return ExitSuccess
	default:
		fmt.Fprintf(env.Stderr, "brandpdf: unknown command %q\n\n%s", cmd, usage)
		return ExitUsage
	}

	if err != nil {
		if err == errHelp {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "brandpdf %s: %v\n", cmd, err)
	}
	return exitCodeFor(err)
}

// newLogger returns a text logger on w. Verbose enables debug records;
// quiet keeps only errors.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
