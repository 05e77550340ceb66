package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system information and data directory paths",
	Long: `Display Cipher Sentinel configuration information including:
  - Data directory locations
  - Policy and advisory sources
  - Platform information`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		policyExists := "✗ (not created yet)"
		if _, err := os.Stat(appCtx.PolicyFile); err == nil {
			policyExists = "✓ (exists)"
		}

		resultsExists := "✗ (not created yet)"
		if _, err := os.Stat(appCtx.ResultsDir); err == nil {
			resultsExists = "✓ (exists)"
		}

		advisories := appCtx.AdvisoriesFile
		if advisories == "" {
			advisories = "(built-in table)"
		}

		configFile := "~/.cipher-sentinel.yaml"
		configExists := "✗ (using defaults)"
		if homeDir, err := os.UserHomeDir(); err == nil {
			if _, err := os.Stat(filepath.Join(homeDir, ".cipher-sentinel.yaml")); err == nil {
				configExists = "✓ (exists)"
			}
		}

		zone := "Local"
		if appCtx.Location != nil {
			zone = appCtx.Location.String()
		}

		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Cipher Sentinel System Information")
		fmt.Fprintln(out, "==================================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Timezone:          %s\n", zone)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Policy File:        %s %s\n", appCtx.PolicyFile, policyExists)
		fmt.Fprintf(out, "  Advisory Feed:      %s\n", advisories)
		fmt.Fprintf(out, "  Results Directory:  %s %s\n", appCtx.ResultsDir, resultsExists)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configFile, configExists)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To override locations, create ~/.cipher-sentinel.yaml with:")
		fmt.Fprintln(out, "  policy_file: /path/to/policy.yaml")
		fmt.Fprintln(out, "  results_dir: /custom/path/to/results")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
