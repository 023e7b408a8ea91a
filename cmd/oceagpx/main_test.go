package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/oceagpx/internal/gps"
	"github.com/shaunagostinho/oceagpx/internal/server"
)

func connectedDemo(t *testing.T) gps.Provider {
	t.Helper()
	demo := gps.NewDemoProvider()
	if err := demo.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return demo
}

func TestParseRecordIDs(t *testing.T) {
	ids, err := parseRecordIDs("3, 1,2")
	if err != nil || len(ids) != 3 || ids[0] != 3 {
		t.Errorf("unexpected ids %v (%v)", ids, err)
	}
	if _, err := parseRecordIDs("1,a"); err == nil {
		t.Errorf("expected error for a bad id")
	}
	if _, err := parseRecordIDs(" , "); err == nil {
		t.Errorf("expected error for an empty list")
	}
}

func TestStdinPrompt(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("\n-\n/tmp/custom.gpx\n"))
	var out bytes.Buffer
	prompt := stdinPrompt(in, &out)

	if path, ok := prompt("Save", "default.gpx"); !ok || path != "default.gpx" {
		t.Errorf("empty input should accept the default, got %q %v", path, ok)
	}
	if _, ok := prompt("Save", "default.gpx"); ok {
		t.Errorf("- should cancel")
	}
	if path, ok := prompt("Save", "default.gpx"); !ok || path != "/tmp/custom.gpx" {
		t.Errorf("expected typed path, got %q %v", path, ok)
	}
	// input exhausted
	if _, ok := prompt("Save", "default.gpx"); ok {
		t.Errorf("EOF should cancel")
	}
	if !strings.Contains(out.String(), "[default.gpx]") {
		t.Errorf("prompt should show the default path")
	}
}

func TestRunList(t *testing.T) {
	var out bytes.Buffer
	if err := runList(context.Background(), &out, connectedDemo(t)); err != nil {
		t.Fatalf("runList failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 records, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "4 ") || !strings.Contains(lines[4], "Demo voyage 1") {
		t.Errorf("unexpected listing:\n%s", out.String())
	}
}

func TestRunExportAndInspect(t *testing.T) {
	dir := t.TempDir()
	cfg := server.DefaultConfig()
	cfg.Export.MaxPoints = 500

	var out bytes.Buffer
	failed := runExport(context.Background(), &out, cfg, connectedDemo(t), exportRequest{
		ids: []int64{1, 2},
		out: dir,
		yes: true,
	})
	if failed != 0 {
		t.Fatalf("expected no failures, got %d:\n%s", failed, out.String())
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.gpx"))
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if !strings.Contains(out.String(), "(800 -> 500 points") {
		t.Errorf("expected thinning summary, got:\n%s", out.String())
	}

	var report bytes.Buffer
	if err := runInspect(&report, files[0]); err != nil {
		t.Fatalf("runInspect failed: %v", err)
	}
	if !strings.Contains(report.String(), "1 tracks") || !strings.Contains(report.String(), "500 points") {
		t.Errorf("unexpected report:\n%s", report.String())
	}
}

func TestRunExportMergedToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "all.gpx")
	cfg := server.DefaultConfig()

	var out bytes.Buffer
	failed := runExport(context.Background(), &out, cfg, connectedDemo(t), exportRequest{
		ids:    []int64{1, 2},
		merged: true,
		out:    target,
	})
	if failed != 0 {
		t.Fatalf("expected no failures, got %d:\n%s", failed, out.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("merged file missing: %v", err)
	}
}

func TestOpenSource(t *testing.T) {
	cfg := server.DefaultConfig()
	if _, err := openSource(cfg); err != errNoDatabase {
		t.Errorf("expected errNoDatabase, got %v", err)
	}

	cfg.Source.Type = "demo"
	if p, err := openSource(cfg); err != nil || p == nil {
		t.Errorf("expected demo provider, got %v", err)
	}
}

func TestRememberSourceKeepsOverridesOutOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("export:\n  max_points: 300\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OUTPUT_PATH", "/tmp/from-env")

	cfg := server.LoadConfig(path)
	cfg.Source.DBPath = "/x.sqlite"
	cfg.Export.MaxPoints = 10
	rememberSource(cfg)

	if cfg.State.LastDBPath != "/x.sqlite" {
		t.Errorf("runtime config should remember the path, got %q", cfg.State.LastDBPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	stored := server.DefaultConfig()
	if err := yaml.Unmarshal(data, stored); err != nil {
		t.Fatalf("parse saved config: %v", err)
	}
	if stored.State.LastDBPath != "/x.sqlite" {
		t.Errorf("last DB path not saved:\n%s", data)
	}
	if stored.Source.DBPath != "" {
		t.Errorf("-db override saved as db_path:\n%s", data)
	}
	if stored.Export.MaxPoints != 300 {
		t.Errorf("max_points changed on disk:\n%s", data)
	}
	if stored.Export.DefaultOutputPath != "" {
		t.Errorf("environment override saved:\n%s", data)
	}
}

func TestRememberSourceSkipsDemo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := server.LoadConfig(path)
	cfg.Source.Type = "demo"
	rememberSource(cfg)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("demo source should not write the config, stat: %v", err)
	}
}

func TestWaitForSource(t *testing.T) {
	if !waitForSource(context.Background(), connectedDemo(t), time.Second) {
		t.Errorf("expected the demo source to connect")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	missing := gps.NewSQLite(gps.SQLiteConfig{Path: filepath.Join(t.TempDir(), "missing.db")})
	if waitForSource(ctx, missing, time.Second) {
		t.Errorf("expected a missing database to stay disconnected")
	}
}
