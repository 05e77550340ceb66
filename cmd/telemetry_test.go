package cmd

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanhnv2901/cipher-sentinel/internal/application/session"
	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/capture"
)

func TestRecordTelemetry_AppendsRecords(t *testing.T) {
	appCtx := &AppContext{ResultsDir: filepath.Join(t.TempDir(), "results")}
	snapshot := session.Snapshot{Evaluations: []checker.Evaluation{
		{Host: "a.example", Overall: checker.SeverityInfo},
		{Host: "b.example", Overall: checker.SeverityWarning},
		{Host: "c.example", Overall: checker.SeverityCritical},
		{Host: "d.example", Overall: checker.SeverityCritical},
	}}
	stats := capture.Stats{Lines: 10, Observations: 7, Navigations: 1, Skipped: 2}

	for i := 0; i < 2; i++ {
		if err := recordTelemetry(appCtx, "evaluate", "capture.jsonl", stats, snapshot, 1500*time.Millisecond); err != nil {
			t.Fatalf("recordTelemetry returned error: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(appCtx.ResultsDir, telemetryFilename))
	if err != nil {
		t.Fatalf("failed to open telemetry file: %v", err)
	}
	defer f.Close()

	var records []telemetryRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec telemetryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("failed to unmarshal record: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	rec := records[0]
	if rec.HostCount != 4 || rec.InfoCount != 1 || rec.WarningCount != 1 || rec.CriticalCount != 2 {
		t.Errorf("unexpected counts: %+v", rec)
	}
	if rec.Lines != 10 || rec.Observations != 7 || rec.Navigations != 1 || rec.Skipped != 2 {
		t.Errorf("unexpected stream stats: %+v", rec)
	}
	if rec.DurationSeconds != 1.5 {
		t.Errorf("DurationSeconds = %v, want 1.5", rec.DurationSeconds)
	}
}
