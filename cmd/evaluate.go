package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/cipher-sentinel/internal/application/session"
	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/capture"
	"github.com/khanhnv2901/cipher-sentinel/internal/report"
	consts "github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/security"
)

var evaluateFormats = []string{"table", "json", "csv", "pdf", "html"}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a captured event feed against the policy",
	Long: `Read captured network events (one JSON object per line) and print the
posture of every observed host. Use "-" as input to read from stdin.`,
	Example: `  sentinel evaluate --input capture.jsonl
  sentinel evaluate --input capture.jsonl --hide INFO --filter example
  sentinel evaluate --input - --format pdf --out posture.pdf < capture.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		input, _ := cmd.Flags().GetString("input")
		hostFilter, _ := cmd.Flags().GetString("filter")
		hide, _ := cmd.Flags().GetStringSlice("hide")
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		noColor, _ := cmd.Flags().GetBool("no-color")

		format = strings.ToLower(strings.TrimSpace(format))
		if !isSupportedFormat(format) {
			return &UnsupportedFormatError{Format: format, Allowed: evaluateFormats}
		}

		filter, err := buildFilter(hostFilter, hide)
		if err != nil {
			return err
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
		maybeRecordTelemetry(appCtx, "evaluate", input, stats, snapshot, time.Since(start))

		appCtx.Logger.Infow("evaluation complete",
			"input", input,
			"lines", stats.Lines,
			"observations", stats.Observations,
			"navigations", stats.Navigations,
			"skipped", stats.Skipped,
			"malformed", stats.Malformed,
			"hosts", len(snapshot.Evaluations))

		w := cmd.OutOrStdout()
		var file *os.File
		if out != "" {
			path, err := resolveOutputPath(appCtx.ResultsDir, out)
			if err != nil {
				return err
			}
			file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.DefaultFilePerm) // #nosec G304 -- path validated above
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			defer file.Close()
			w = file
		} else if format == "pdf" {
			return fmt.Errorf("--out is required for pdf output")
		}

		if err := renderSnapshot(w, format, snapshot, filter, appCtx, colorize(noColor, file)); err != nil {
			return err
		}

		if file != nil {
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", file.Name(), err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Report written: %s\n", colorSuccess("✓"), file.Name())
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringP("input", "i", "", "captured event feed (JSON lines, '-' for stdin)")
	evaluateCmd.Flags().String("filter", "", "case-insensitive host substring filter")
	evaluateCmd.Flags().StringSlice("hide", []string{}, "severities to hide (INFO, WARNING, CRITICAL)")
	evaluateCmd.Flags().StringP("format", "f", "table", "output format (table, json, csv, pdf, html)")
	evaluateCmd.Flags().StringP("out", "o", "", "write output to a file (bare names land in the results directory)")
	evaluateCmd.Flags().Bool("no-color", false, "disable colored table output")
	_ = evaluateCmd.MarkFlagRequired("input")
}

func isSupportedFormat(format string) bool {
	for _, f := range evaluateFormats {
		if f == format {
			return true
		}
	}
	return false
}

// buildFilter turns the CLI flags into a view filter.
func buildFilter(hostFilter string, hide []string) (report.Filter, error) {
	filter := report.DefaultFilter()
	filter.Host = hostFilter
	sevs := make([]checker.Severity, 0, len(hide))
	for _, raw := range hide {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		sev, err := checker.ParseSeverity(raw)
		if err != nil {
			return report.Filter{}, fmt.Errorf("invalid --hide value: %w", err)
		}
		sevs = append(sevs, sev)
	}
	return filter.Hide(sevs...), nil
}

// evaluateInput loads the policy, replays the feed into a fresh session and
// returns its snapshot.
func evaluateInput(ctx context.Context, cmd *cobra.Command, appCtx *AppContext, input string) (session.Snapshot, capture.Stats, error) {
	r, closeInput, err := openInput(cmd, input)
	if err != nil {
		return session.Snapshot{}, capture.Stats{}, err
	}
	defer closeInput()

	container, err := newReadyContainer(ctx, appCtx)
	if err != nil {
		return session.Snapshot{}, capture.Stats{}, err
	}

	stats, err := capture.ReadEvents(ctx, r, container.Session, capture.WithLogger(appCtx.Logger.Desugar()))
	if err != nil {
		return session.Snapshot{}, stats, &InputError{Path: input, Err: err}
	}

	snapshot, err := container.Session.Snapshot(ctx)
	if err != nil {
		return session.Snapshot{}, stats, err
	}
	return snapshot, stats, nil
}

func maybeRecordTelemetry(appCtx *AppContext, command, input string, stats capture.Stats, snapshot session.Snapshot, duration time.Duration) {
	if !appCtx.Telemetry {
		return
	}
	if err := recordTelemetry(appCtx, command, input, stats, snapshot, duration); err != nil {
		appCtx.Logger.Warnw("failed to record telemetry", "error", err)
	}
}

func openInput(cmd *cobra.Command, input string) (io.Reader, func(), error) {
	if input == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	if !security.IsReadablePath(input) {
		return nil, nil, &InputError{Path: input, Err: fmt.Errorf("path is not a readable file")}
	}
	f, err := os.Open(input) // #nosec G304 -- operator-supplied capture file
	if err != nil {
		return nil, nil, &InputError{Path: input, Err: err}
	}
	return f, func() { _ = f.Close() }, nil
}

func colorize(noColor bool, file *os.File) bool {
	return !noColor && file == nil && !color.NoColor
}

func renderSnapshot(w io.Writer, format string, snapshot session.Snapshot, filter report.Filter, appCtx *AppContext, colored bool) error {
	view := report.BuildView(snapshot.Evaluations, filter, report.WithLocation(appCtx.Location))

	switch format {
	case "json":
		return report.WriteJSON(w, filterEvaluations(snapshot.Evaluations, filter))
	case "csv":
		// The export always covers every host.
		return report.WriteCSV(w, snapshot.Evaluations)
	case "pdf":
		return report.WritePDF(w, view, reportMeta(snapshot, appCtx))
	case "html":
		return report.WriteHTML(w, view, reportMeta(snapshot, appCtx))
	default:
		return report.PrintTable(w, view, colored)
	}
}

func filterEvaluations(evals []checker.Evaluation, filter report.Filter) []checker.Evaluation {
	out := make([]checker.Evaluation, 0, len(evals))
	for _, eval := range evals {
		if filter.Allows(eval) {
			out = append(out, eval)
		}
	}
	return out
}

func reportMeta(snapshot session.Snapshot, appCtx *AppContext) report.Meta {
	meta := report.Meta{
		GeneratedAt:  snapshot.GeneratedAt,
		PolicySource: appCtx.PolicyFile,
	}
	if appCtx.Location != nil {
		meta.GeneratedAt = meta.GeneratedAt.In(appCtx.Location)
	}
	if snapshot.Policy != nil {
		meta.MinTLSVersion = snapshot.Policy.MinTLSVersion()
		meta.MinRSABits = snapshot.Policy.MinRSABits()
	}
	return meta
}
