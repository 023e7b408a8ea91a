package logger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaunagostinho/oceagpx/internal/export"
)

func readRows(t *testing.T, dir string) [][]string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "exports_*.csv"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one journal file, got %v (%v)", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return rows
}

func TestRecordWritesOneRowPerResult(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Enabled: true, Path: dir})
	defer l.Close()

	interval := 11
	l.Record(export.Result{
		BatchID:   "b1",
		Mode:      export.ModeSingle,
		RecordIDs: []int64{7},
		Name:      "Morning, harbour",
		Success:   true,
		FilePath:  "/tmp/x.gpx",
		Thinning:  &export.ThinningInfo{OriginalPoints: 100, ExportedPoints: 10, IntervalSeconds: &interval},
	})
	l.Record(export.Result{
		BatchID:   "b2",
		Mode:      export.ModeMerged,
		RecordIDs: []int64{1, 2},
		Error:     "cancelled",
	})

	rows := readRows(t, dir)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(csvHeader) || rows[0][1] != "batch_id" {
		t.Errorf("unexpected header %v", rows[0])
	}

	first := rows[1]
	if first[1] != "b1" || first[2] != "single" || first[3] != "7" || first[4] != "Morning, harbour" {
		t.Errorf("unexpected first row %v", first)
	}
	if first[5] != "1" || first[8] != "100" || first[9] != "10" || first[10] != "11" {
		t.Errorf("unexpected thinning columns %v", first)
	}

	second := rows[2]
	if second[3] != "1 2" || second[5] != "0" || second[7] != "cancelled" || second[8] != "" {
		t.Errorf("unexpected second row %v", second)
	}
	if _, err := time.Parse(time.RFC3339Nano, second[0]); err != nil {
		t.Errorf("bad timestamp %q: %v", second[0], err)
	}
}

func TestDisabledWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	l := New(Config{Enabled: false, Path: dir})

	l.Record(export.Result{BatchID: "b"})
	l.Close()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected no journal directory, got %v", err)
	}
}

func TestSetEnabled(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Path: dir})

	l.SetEnabled(true)
	if !l.IsEnabled() {
		t.Fatalf("expected enabled")
	}
	l.Record(export.Result{BatchID: "b"})

	l.SetEnabled(false)
	l.Record(export.Result{BatchID: "ignored"})

	rows := readRows(t, dir)
	if len(rows) != 2 {
		t.Errorf("expected header + 1 row, got %d", len(rows))
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Enabled: true, Path: dir})
	defer l.Close()

	tick := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	for i := 0; i <= maxRowsPerFile; i++ {
		l.Record(export.Result{BatchID: "b"})
	}

	files, _ := filepath.Glob(filepath.Join(dir, "exports_*.csv"))
	if len(files) != 2 {
		t.Errorf("expected rotation into 2 files, got %d", len(files))
	}
}
