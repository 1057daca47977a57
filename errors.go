package brandpdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for input validation and run coordination.
var (
	ErrNoDocument   = errors.New("brandpdf: no source document selected")
	ErrMissingAsset = errors.New("brandpdf: required asset missing")
	ErrNotPDF       = errors.New("brandpdf: source document is not a PDF")
	ErrBusy         = errors.New("brandpdf: a generation run is already in progress")
)

// BrandError represents an error that occurred during a specific step of a
// generation run. It wraps an underlying error and names the step.
type BrandError struct {
	Op  string // step name, e.g. "LoadAssets", "Compose"
	Err error  // underlying error
}

func (e *BrandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("brandpdf.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("brandpdf.%s: unknown error", e.Op)
}

func (e *BrandError) Unwrap() error {
	return e.Err
}

// NewError wraps err with the name of the step that produced it.
// It returns nil when err is nil.
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BrandError{Op: op, Err: err}
}

// IsInputError reports whether err was caused by invalid user input rather
// than a downstream library failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoDocument) ||
		errors.Is(err, ErrMissingAsset) ||
		errors.Is(err, ErrNotPDF)
}
