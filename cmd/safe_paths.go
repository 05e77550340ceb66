package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	consts "github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/security"
)

// validateReportName ensures report file names can't be used for path
// traversal. Names end up inside the results directory, so reject separators.
func validateReportName(name string) error {
	switch name {
	case "":
		return errors.New("report name is required")
	case ".", "..":
		return fmt.Errorf("report name %q is reserved", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("report name %q must not contain path separators", name)
	}
	return nil
}

// resolveReportPath places name inside dir, creating dir when missing.
func resolveReportPath(dir, name string) (string, error) {
	if err := validateReportName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}
	return security.ResolveWithin(dir, name)
}

// resolveOutputPath accepts either a bare file name, placed in the results
// directory, or an explicit path chosen by the operator.
func resolveOutputPath(resultsDir, out string) (string, error) {
	if filepath.Base(out) == out {
		return resolveReportPath(resultsDir, out)
	}
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return filepath.Clean(out), nil
}
