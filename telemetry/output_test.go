package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/pasture/config"
)

func TestNewOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", "run")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	// All methods are safe on a nil manager.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" || om.RunID() != "" {
		t.Error("nil manager reports a directory or run id")
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	om, err := NewOutputManager(dir, "3f1c")
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i, n := range []int{40, 75} {
		stats := WindowStats{RunID: om.RunID(), WindowEndTick: int32((i + 1) * 600), Sheep: 150, InPasture: n}
		if err := om.WriteTelemetry(stats); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{TicksPerSecond: 900}, 600); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkHerdPastured, Tick: 1200, Description: "75 of 150"}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.WriteConfig(config.Cfg()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(raw), "run_id"); got != 1 {
		t.Errorf("header written %d times, want 1", got)
	}

	var rows []WindowStats
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d telemetry rows, want 2", len(rows))
	}
	if rows[1].InPasture != 75 || rows[1].RunID != "3f1c" || rows[1].WindowEndTick != 1200 {
		t.Errorf("second row = %+v", rows[1])
	}

	var perf []PerfStatsCSV
	raw, err = os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := gocsv.UnmarshalBytes(raw, &perf); err != nil {
		t.Fatalf("reading perf.csv: %v", err)
	}
	if len(perf) != 1 || perf[0].RunID != "3f1c" || perf[0].TicksPerSec != 900 {
		t.Errorf("perf rows = %+v", perf)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot does not reload: %v", err)
	}
}
