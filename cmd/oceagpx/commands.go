package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/shaunagostinho/oceagpx/internal/export"
	"github.com/shaunagostinho/oceagpx/internal/gps"
	"github.com/shaunagostinho/oceagpx/internal/gpx"
	"github.com/shaunagostinho/oceagpx/internal/logger"
	"github.com/shaunagostinho/oceagpx/internal/server"
	"github.com/shaunagostinho/oceagpx/internal/thin"
)

var errNoDatabase = errors.New("no database given: use -db, set source.db_path, or -demo")

const listTimeLayout = "2006-01-02 15:04"

func runList(ctx context.Context, w io.Writer, source gps.Provider) error {
	records, err := source.Records(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTART\tEND\tDISTANCE\tPOINTS")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%d\n",
			r.ID, r.Name, formatTime(r.StartTime), formatTime(r.EndTime), r.Distance, r.PointCount)
	}
	return tw.Flush()
}

func runInspect(w io.Writer, path string) error {
	summaries, err := gpx.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d tracks\n", path, len(summaries))
	for i, s := range summaries {
		interval := "-"
		if iv := thin.AverageInterval([][]gps.Point{s.Track.Points}); iv != nil {
			interval = strconv.Itoa(*iv) + "s"
		}
		fmt.Fprintf(w, "  %d. %q: %d points, %s - %s, interval %s, %.2f km\n",
			i+1, s.Track.Name, len(s.Track.Points),
			formatTime(s.Start), formatTime(s.End), interval, s.Length2D/1000)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(listTimeLayout)
}

// parseRecordIDs reads a comma separated list of record IDs.
func parseRecordIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no record ids in %q", raw)
	}
	return ids, nil
}

// stdinPrompt asks for a path on the terminal. Empty input accepts the
// default, "-" cancels.
func stdinPrompt(in *bufio.Reader, out io.Writer) export.Prompt {
	return func(title, def string) (string, bool) {
		fmt.Fprintf(out, "%s\n  save as [%s] (- to cancel): ", title, def)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return "", false
		}
		switch line = strings.TrimSpace(line); line {
		case "":
			return def, true
		case "-":
			return "", false
		default:
			return line, true
		}
	}
}

type exportRequest struct {
	ids    []int64
	merged bool
	out    string // file for merged, directory for single
	yes    bool
	input  *bufio.Reader
}

// runExport exports the requested records and prints one line per file. It
// returns the number of failed files; cancelled ones are not failures.
func runExport(ctx context.Context, w io.Writer, cfg *server.Config, source gps.Provider, req exportRequest) int {
	tracks, err := source.Tracks(ctx, req.ids)
	if err != nil {
		log.Printf("[main] load tracks: %v", err)
		return 1
	}
	if len(tracks) < len(req.ids) {
		log.Printf("[main] %d of %d records not found", len(req.ids)-len(tracks), len(req.ids))
	}

	opts := cfg.ExportOptions()
	if req.yes {
		opts.ConfirmOnExport = false
	} else {
		opts.Prompt = stdinPrompt(req.input, os.Stderr)
	}

	if req.out != "" {
		if req.merged {
			out := req.out
			opts.ConfirmOnExport = true
			opts.Prompt = func(string, string) (string, bool) { return out, true }
		} else {
			if err := os.MkdirAll(req.out, 0755); err != nil {
				log.Printf("[main] %v", err)
				return 1
			}
			opts.OutputDir = req.out
		}
	}

	journal := logger.New(logger.Config{
		Enabled: cfg.Logging.Enabled,
		Path:    cfg.Logging.Path,
	})
	defer journal.Close()

	var results []export.Result
	if req.merged {
		results = []export.Result{export.New(opts, journal).ExportMerged(ctx, tracks)}
	} else {
		prompting := opts.Prompt != nil && (opts.ConfirmOnExport || opts.OutputDir == "")
		if !prompting && len(tracks) > 1 {
			bar := progressbar.Default(int64(len(tracks)), "exporting")
			opts.Progress = func(export.Result) { bar.Add(1) }
		}
		results = export.New(opts, journal).ExportSingle(ctx, tracks)
	}

	failed := 0
	for _, r := range results {
		fmt.Fprintln(w, describe(r))
		if !r.Success && !errors.Is(r.Err(), export.ErrCancelled) {
			failed++
		}
	}
	return failed
}

func describe(r export.Result) string {
	if !r.Success {
		return fmt.Sprintf("%s: %s", r.Name, r.Error)
	}
	line := r.FilePath
	if t := r.Thinning; t != nil {
		line += fmt.Sprintf(" (%d -> %d points", t.OriginalPoints, t.ExportedPoints)
		if t.IntervalSeconds != nil {
			line += fmt.Sprintf(", ~%ds interval", *t.IntervalSeconds)
		}
		line += ")"
	}
	return line
}
