package main

import (
	"io"
	"os"

	"github.com/stepguide/brandpdf/internal/config"
	"github.com/stepguide/brandpdf/preview"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Rasterizer overrides the profile's pdftoppm rasterizer when set.
	Rasterizer preview.Rasterizer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// rasterizer returns the rasterizer for cfg.
func (e *Environment) rasterizer(cfg *config.Config) preview.Rasterizer {
	if e.Rasterizer != nil {
		return e.Rasterizer
	}
	return cfg.Rasterizer()
}

// loadConfig loads the profile at path, or the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}
