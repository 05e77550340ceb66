package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/cipher-sentinel/internal/application/session"
	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/capture"
	consts "github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
)

const telemetryFilename = "telemetry.jsonl"

type telemetryRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	Command         string    `json:"command"`
	Input           string    `json:"input"`
	Lines           int       `json:"lines"`
	Observations    int       `json:"observations"`
	Navigations     int       `json:"navigations"`
	Skipped         int       `json:"skipped"`
	Malformed       int       `json:"malformed"`
	HostCount       int       `json:"host_count"`
	InfoCount       int       `json:"info_count"`
	WarningCount    int       `json:"warning_count"`
	CriticalCount   int       `json:"critical_count"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// recordTelemetry appends one run summary to the results directory.
func recordTelemetry(appCtx *AppContext, command, input string, stats capture.Stats, snapshot session.Snapshot, duration time.Duration) error {
	info, warning, critical := summarizeSeverities(snapshot.Evaluations)

	record := telemetryRecord{
		Timestamp:       time.Now().UTC(),
		Command:         command,
		Input:           input,
		Lines:           stats.Lines,
		Observations:    stats.Observations,
		Navigations:     stats.Navigations,
		Skipped:         stats.Skipped,
		Malformed:       stats.Malformed,
		HostCount:       len(snapshot.Evaluations),
		InfoCount:       info,
		WarningCount:    warning,
		CriticalCount:   critical,
		DurationSeconds: duration.Seconds(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	if err := os.MkdirAll(appCtx.ResultsDir, consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	telemetryPath := filepath.Join(appCtx.ResultsDir, telemetryFilename)
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm) // #nosec G304 -- fixed name inside results dir
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

func summarizeSeverities(evals []checker.Evaluation) (info, warning, critical int) {
	for _, eval := range evals {
		switch eval.Overall {
		case checker.SeverityCritical:
			critical++
		case checker.SeverityWarning:
			warning++
		default:
			info++
		}
	}
	return info, warning, critical
}
