package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
)

const (
	appDirName = "cipher-sentinel"
	// dataDirEnvVar overrides the platform data directory.
	dataDirEnvVar     = "SENTINEL_DATA_DIR"
	defaultPolicyName = "policy.json"
)

// getDataDir returns the appropriate data directory for the current OS
// following XDG Base Directory specification on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	if override := os.Getenv(dataDirEnvVar); override != "" {
		baseDir = override
	} else {
		switch runtime.GOOS {
		case "windows":
			// Windows: %LOCALAPPDATA%\cipher-sentinel
			baseDir = os.Getenv("LOCALAPPDATA")
			if baseDir == "" {
				baseDir = os.Getenv("APPDATA")
			}
			if baseDir == "" {
				return "", fmt.Errorf("could not determine Windows data directory")
			}
			baseDir = filepath.Join(baseDir, appDirName)

		case "darwin":
			// macOS: ~/Library/Application Support/cipher-sentinel
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)

		default:
			// Linux/Unix: $XDG_DATA_HOME/cipher-sentinel > ~/.local/share/cipher-sentinel
			xdgDataHome := os.Getenv("XDG_DATA_HOME")
			if xdgDataHome != "" {
				baseDir = filepath.Join(xdgDataHome, appDirName)
			} else {
				homeDir, err := os.UserHomeDir()
				if err != nil {
					return "", fmt.Errorf("could not determine home directory: %w", err)
				}
				baseDir = filepath.Join(homeDir, ".local", "share", appDirName)
			}
		}
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// getDefaultPolicyPath returns the policy document used when none is configured.
func getDefaultPolicyPath() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, defaultPolicyName), nil
}

// getResultsDir returns the path to the results directory
func getResultsDir() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}

	resultsDir := filepath.Join(dataDir, "results")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	return resultsDir, nil
}
