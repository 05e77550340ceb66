package cmd

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// PolicyLoadError indicates the policy document could not be loaded; no
// evaluation can run without it.
type PolicyLoadError struct {
	Path string
	Err  error
}

func (e *PolicyLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("policy could not be loaded: %v", e.Err)
	}
	return fmt.Sprintf("policy %s could not be loaded: %v", e.Path, e.Err)
}

func (e *PolicyLoadError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError signals an output format a command cannot render.
type UnsupportedFormatError struct {
	Format  string
	Allowed []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("invalid format: %s (must be %s)", e.Format, strings.Join(e.Allowed, ", "))
}

func (e *UnsupportedFormatError) Unwrap() error {
	return sharedErrors.ErrUnsupportedFormat
}

// InputError reports a problem reading the captured event feed.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
