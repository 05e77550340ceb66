package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/cipher-sentinel/internal/report"
	consts "github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every observed host as " + report.ExportFilename,
	Long: `Replay a captured event feed and write the CSV export for every observed
host, regardless of any display filter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		input, _ := cmd.Flags().GetString("input")
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = appCtx.ResultsDir
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		start := time.Now()
		snapshot, stats, err := evaluateInput(ctx, cmd, appCtx, input)
		if err != nil {
			return err
		}

		path, err := resolveReportPath(dir, report.ExportFilename)
		if err != nil {
			return err
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.DefaultFilePerm) // #nosec G304 -- path resolved within dir
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		w := bufio.NewWriter(f)
		if err := report.WriteCSV(w, snapshot.Evaluations); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := w.Flush(); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		maybeRecordTelemetry(appCtx, "export", input, stats, snapshot, time.Since(start))
		appCtx.Logger.Infow("export written", "path", path, "hosts", len(snapshot.Evaluations))
		fmt.Fprintf(cmd.OutOrStdout(), "%s Report exported: %s (%d hosts)\n", colorSuccess("✓"), path, len(snapshot.Evaluations))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("input", "i", "", "captured event feed (JSON lines, '-' for stdin)")
	exportCmd.Flags().String("dir", "", "output directory (default: results directory)")
	_ = exportCmd.MarkFlagRequired("input")
}
