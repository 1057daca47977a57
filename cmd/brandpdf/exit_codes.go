package main

import (
	"errors"
	"os"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/internal/config"
	"github.com/stepguide/brandpdf/preview"
)

// Exit codes for the brandpdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command completed
	ExitGeneral = 1 // Composition, rendering or other downstream failure
	ExitUsage   = 2 // Invalid flags, profile or input assets
	ExitIO      = 3 // File not found, permission denied, output not writable
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		brandpdf.IsInputError(err) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, preview.ErrRasterizerNotFound) {
		return ExitIO
	}

	return ExitGeneral
}
