// Package export writes tracks to GPX files, thinning them to the configured
// point budget and resolving the output path.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/shaunagostinho/oceagpx/internal/gps"
	"github.com/shaunagostinho/oceagpx/internal/gpx"
	"github.com/shaunagostinho/oceagpx/internal/metrics"
	"github.com/shaunagostinho/oceagpx/internal/thin"
)

var (
	ErrCancelled = errors.New("cancelled")
	ErrNoTracks  = errors.New("no records to export")
)

const (
	ModeSingle = "single"
	ModeMerged = "merged"
)

// Prompt asks where to save a file. It returns false when the user cancels.
type Prompt func(title, defaultPath string) (path string, ok bool)

// Journal receives every export result.
type Journal interface {
	Record(Result)
}

// Options mirrors the export settings.
type Options struct {
	OutputDir       string
	MaxPoints       int // 0 = unlimited
	ConfirmOnExport bool

	// Prompt is consulted when a path must be confirmed. When nil the
	// default path is used.
	Prompt Prompt

	// Progress is called after each file of a single export.
	Progress func(Result)
}

// ThinningInfo is attached to a result when points were dropped.
type ThinningInfo struct {
	OriginalPoints  int  `json:"originalPoints"`
	ExportedPoints  int  `json:"exportedPoints"`
	IntervalSeconds *int `json:"intervalSeconds,omitempty"`
}

// Result is the outcome of writing one file.
type Result struct {
	BatchID   string        `json:"batchId"`
	Mode      string        `json:"mode"`
	RecordIDs []int64       `json:"recordIds"`
	Name      string        `json:"name"`
	Success   bool          `json:"success"`
	FilePath  string        `json:"filePath,omitempty"`
	Error     string        `json:"error,omitempty"`
	Thinning  *ThinningInfo `json:"thinningInfo,omitempty"`

	err error
}

// Err returns the failure behind an unsuccessful result, or nil.
func (r Result) Err() error {
	return r.err
}

func (r *Result) fail(err error) {
	r.Success = false
	r.Error = err.Error()
	r.err = err
}

// Exporter writes GPX files for a set of loaded tracks.
type Exporter struct {
	opts    Options
	journal Journal
}

// New creates an Exporter. journal may be nil.
func New(opts Options, journal Journal) *Exporter {
	return &Exporter{opts: opts, journal: journal}
}

// ExportSingle writes one file per track. A cancelled or failed track does not
// stop the remaining ones; a cancelled context does.
func (e *Exporter) ExportSingle(ctx context.Context, tracks []gps.Track) []Result {
	batch := uuid.NewString()
	results := make([]Result, 0, len(tracks))

	log.Printf("[export] batch %s: single export of %d tracks", batch, len(tracks))

	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			log.Printf("[export] batch %s: stopped: %v", batch, err)
			break
		}

		res := e.exportOne(batch, t)
		e.finish(res)
		results = append(results, res)
		if e.opts.Progress != nil {
			e.opts.Progress(res)
		}
	}
	return results
}

func (e *Exporter) exportOne(batch string, t gps.Track) Result {
	start := time.Now()
	res := Result{
		BatchID:   batch,
		Mode:      ModeSingle,
		RecordIDs: []int64{t.RecordID},
		Name:      t.Name,
	}

	path, err := e.resolvePath(SingleFilename(t), "Save GPX - "+t.Name)
	if err != nil {
		res.fail(err)
		return res
	}

	thinned := thin.Points(t.Points, e.opts.MaxPoints)
	out := t
	out.Points = thinned.Points

	if err := gpx.FromTracks([]gps.Track{out}).Write(path); err != nil {
		res.fail(err)
		return res
	}

	res.Success = true
	res.FilePath = path
	if thinned.Reduced() {
		res.Thinning = &ThinningInfo{
			OriginalPoints:  thinned.OriginalCount,
			ExportedPoints:  thinned.ExportedCount,
			IntervalSeconds: thinned.IntervalSeconds,
		}
	}

	metrics.PointsIn.Add(float64(thinned.OriginalCount))
	metrics.PointsOut.Add(float64(thinned.ExportedCount))
	metrics.ObserveExport(ModeSingle, start)
	return res
}

// ExportMerged writes all tracks into one file, sharing the point budget
// between them in proportion to their length.
func (e *Exporter) ExportMerged(ctx context.Context, tracks []gps.Track) Result {
	start := time.Now()
	res := Result{
		BatchID:   uuid.NewString(),
		Mode:      ModeMerged,
		RecordIDs: make([]int64, 0, len(tracks)),
		Name:      fmt.Sprintf("%d tracks", len(tracks)),
	}
	for _, t := range tracks {
		res.RecordIDs = append(res.RecordIDs, t.RecordID)
	}

	defer func() { e.finish(res) }()

	if len(tracks) == 0 {
		res.fail(ErrNoTracks)
		return res
	}
	if err := ctx.Err(); err != nil {
		res.fail(err)
		return res
	}

	log.Printf("[export] batch %s: merged export of %d tracks", res.BatchID, len(tracks))

	path, err := e.resolvePath(MergedFilename(tracks), "Save GPX (merged)")
	if err != nil {
		res.fail(err)
		return res
	}

	thinned := thin.Proportional(tracks, e.opts.MaxPoints)

	if err := gpx.FromTracks(thinned.Tracks).Write(path); err != nil {
		res.fail(err)
		return res
	}

	res.Success = true
	res.FilePath = path
	if thinned.Reduced() {
		res.Thinning = &ThinningInfo{
			OriginalPoints:  thinned.OriginalTotal,
			ExportedPoints:  thinned.ExportedTotal,
			IntervalSeconds: thinned.IntervalSeconds,
		}
	}

	metrics.PointsIn.Add(float64(thinned.OriginalTotal))
	metrics.PointsOut.Add(float64(thinned.ExportedTotal))
	metrics.ObserveExport(ModeMerged, start)
	return res
}

// resolvePath saves straight into the output directory when confirmation is
// off, otherwise it offers dir/filename (or just filename) to the prompt.
func (e *Exporter) resolvePath(filename, title string) (string, error) {
	if !e.opts.ConfirmOnExport && e.opts.OutputDir != "" {
		return filepath.Join(e.opts.OutputDir, filename), nil
	}

	def := filename
	if e.opts.OutputDir != "" {
		def = filepath.Join(e.opts.OutputDir, filename)
	}
	if e.opts.Prompt == nil {
		return def, nil
	}

	path, ok := e.opts.Prompt(title, def)
	if !ok || path == "" {
		return "", ErrCancelled
	}
	return path, nil
}

func (e *Exporter) finish(res Result) {
	outcome := "ok"
	switch {
	case errors.Is(res.err, ErrCancelled):
		outcome = "cancelled"
	case !res.Success:
		outcome = "error"
	}
	metrics.Exports.WithLabelValues(res.Mode, outcome).Inc()

	if res.Success {
		if res.Thinning != nil {
			log.Printf("[export] batch %s: wrote %s (%d -> %d points)",
				res.BatchID, res.FilePath, res.Thinning.OriginalPoints, res.Thinning.ExportedPoints)
		} else {
			log.Printf("[export] batch %s: wrote %s", res.BatchID, res.FilePath)
		}
	} else {
		log.Printf("[export] batch %s: %s %q: %s", res.BatchID, res.Mode, res.Name, res.Error)
	}

	if e.journal != nil {
		e.journal.Record(res)
	}
}
