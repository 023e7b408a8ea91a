package logger

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shaunagostinho/oceagpx/internal/export"
)

// Logger journals export results to CSV files with automatic rotation.
type Logger struct {
	mu      sync.Mutex
	dir     string
	enabled bool
	now     func() time.Time

	file   *os.File
	writer *csv.Writer
	rows   int
}

// Config holds journal configuration.
type Config struct {
	Enabled bool
	Path    string // directory for the CSV files
}

const (
	maxRowsPerFile = 10_000
)

var csvHeader = []string{
	"timestamp", "batch_id", "mode", "record_ids", "name",
	"success", "file_path", "error",
	"original_points", "exported_points", "interval_s",
}

// New creates a new Logger.
func New(cfg Config) *Logger {
	if cfg.Path == "" {
		cfg.Path = "logs"
	}
	return &Logger{
		dir:     cfg.Path,
		enabled: cfg.Enabled,
		now:     time.Now,
	}
}

// SetEnabled allows toggling the journal at runtime.
func (l *Logger) SetEnabled(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = on
	if !on && l.file != nil {
		l.closeFile()
	}
}

// IsEnabled returns whether journaling is active.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Record appends one export result.
func (l *Logger) Record(res export.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	now := l.now()

	if l.writer == nil || l.rows >= maxRowsPerFile {
		if err := l.rotateFile(now); err != nil {
			log.Printf("[journal] rotate failed: %v", err)
			return
		}
	}

	if err := l.writer.Write(buildRow(now, res)); err != nil {
		log.Printf("[journal] write failed: %v", err)
		return
	}
	l.writer.Flush()
	l.rows++
}

// Close flushes and closes the current journal file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeFile()
}

func (l *Logger) rotateFile(now time.Time) error {
	l.closeFile()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}

	filename := fmt.Sprintf("exports_%s.csv", now.Format("2006-01-02_150405.000"))
	path := filepath.Join(l.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	l.file = f
	l.writer = csv.NewWriter(f)
	l.rows = 0

	if err := l.writer.Write(csvHeader); err != nil {
		return err
	}
	l.writer.Flush()

	log.Printf("[journal] opened %s", path)
	return nil
}

func (l *Logger) closeFile() {
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func buildRow(ts time.Time, r export.Result) []string {
	row := make([]string, len(csvHeader))

	ids := make([]string, len(r.RecordIDs))
	for i, id := range r.RecordIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	row[0] = ts.Format(time.RFC3339Nano)
	row[1] = r.BatchID
	row[2] = r.Mode
	row[3] = strings.Join(ids, " ")
	row[4] = r.Name
	row[5] = boolStr(r.Success)
	row[6] = r.FilePath
	row[7] = r.Error

	if t := r.Thinning; t != nil {
		row[8] = strconv.Itoa(t.OriginalPoints)
		row[9] = strconv.Itoa(t.ExportedPoints)
		if t.IntervalSeconds != nil {
			row[10] = strconv.Itoa(*t.IntervalSeconds)
		}
	}

	return row
}

func boolStr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
