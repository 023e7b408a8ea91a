package gps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// LCHFIL holds one row per record, LOCFIL one row per logged fix.
const (
	recordsQuery = `
		SELECT
			L."LCHレコードID",
			L."LCH記録名",
			L."LCH開始時刻",
			L."LCH終了時刻",
			L."LCH航行距離",
			L."LCH表示F",
			COUNT(O."LOCID")
		FROM "LCHFIL" L
		LEFT JOIN "LOCFIL" O ON L."LCHレコードID" = O."LOCレコードID"
		GROUP BY L."LCHレコードID"
		ORDER BY L."LCH開始時刻" DESC`

	recordNameQuery = `SELECT "LCH記録名" FROM "LCHFIL" WHERE "LCHレコードID" = ?`

	pointsQuery = `
		SELECT "LOC緯度", "LOC経度", "LOC時刻", "LOC速度"
		FROM "LOCFIL"
		WHERE "LOCレコードID" = ?
		ORDER BY "LOC時刻" ASC`
)

// timeLayouts are tried in order for text timestamps. Fractional seconds
// are accepted after the seconds field even when the layout omits them.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339Nano,
}

// SQLiteProvider reads records and fixes from a plotter log database.
// Timestamps in the database are wall-clock times in Location.
type SQLiteProvider struct {
	path string
	loc  *time.Location

	mu sync.Mutex
	db *sql.DB
}

// SQLiteConfig holds configuration for the SQLite provider.
type SQLiteConfig struct {
	Path     string
	Location *time.Location
}

// NewSQLite creates a new SQLite provider. Connect must be called before use.
func NewSQLite(cfg SQLiteConfig) *SQLiteProvider {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &SQLiteProvider{
		path: cfg.Path,
		loc:  cfg.Location,
	}
}

func (s *SQLiteProvider) Name() string { return "SQLite log (" + filepath.Base(s.path) + ")" }

// Connect opens the database read-only.
func (s *SQLiteProvider) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("gps: database %s: %w", s.path, err)
	}

	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(s.path)+"?mode=ro")
	if err != nil {
		return fmt.Errorf("gps: failed to open %s: %w", s.path, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("gps: failed to open %s: %w", s.path, err)
	}

	s.db = db
	log.Printf("[source] opened %s", s.path)
	return nil
}

func (s *SQLiteProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteProvider) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("gps: not connected")
	}
	return s.db, nil
}

// Records lists all records with their fix counts, newest first.
func (s *SQLiteProvider) Records(ctx context.Context) ([]Record, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, recordsQuery)
	if err != nil {
		return nil, fmt.Errorf("gps: query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			name       sql.NullString
			start, end any
			distance   sql.NullFloat64
			flag       sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &name, &start, &end, &distance, &flag, &rec.PointCount); err != nil {
			return nil, fmt.Errorf("gps: scan record: %w", err)
		}
		rec.Name = name.String
		rec.StartTime, _ = parseLocalTime(start, s.loc)
		rec.EndTime, _ = parseLocalTime(end, s.loc)
		rec.Distance = distance.Float64
		rec.DisplayFlag = int(flag.Int64)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gps: read records: %w", err)
	}
	return records, nil
}

// Tracks loads the fixes of each record, dropping (0,0) "no fix" points.
func (s *SQLiteProvider) Tracks(ctx context.Context, recordIDs []int64) ([]Track, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(recordIDs))
	for _, id := range recordIDs {
		var name sql.NullString
		err := db.QueryRowContext(ctx, recordNameQuery, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("gps: record %d: %w", id, err)
		}

		points, err := s.loadPoints(ctx, db, id)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, Track{
			RecordID: id,
			Name:     name.String,
			Points:   points,
		})
	}
	return tracks, nil
}

func (s *SQLiteProvider) loadPoints(ctx context.Context, db *sql.DB, recordID int64) ([]Point, error) {
	rows, err := db.QueryContext(ctx, pointsQuery, recordID)
	if err != nil {
		return nil, fmt.Errorf("gps: query points of record %d: %w", recordID, err)
	}
	defer rows.Close()

	var (
		points    []Point
		noFix     int
		badTime   int
		lat, lon  sql.NullFloat64
		speed     sql.NullFloat64
		timestamp any
	)
	for rows.Next() {
		if err := rows.Scan(&lat, &lon, &timestamp, &speed); err != nil {
			return nil, fmt.Errorf("gps: scan point of record %d: %w", recordID, err)
		}
		p := Point{Lat: lat.Float64, Lon: lon.Float64, Speed: speed.Float64}
		if !p.Valid() {
			noFix++
			continue
		}
		t, ok := parseLocalTime(timestamp, s.loc)
		if !ok {
			badTime++
			continue
		}
		p.Time = t
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gps: read points of record %d: %w", recordID, err)
	}

	if badTime > 0 {
		log.Printf("[source] record %d: dropped %d points with unreadable time", recordID, badTime)
	}
	if noFix > 0 {
		log.Printf("[source] record %d: dropped %d points without fix", recordID, noFix)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points, nil
}

// parseLocalTime converts a scanned timestamp column to a time in loc.
// Drivers hand back zone-less DATETIME values as UTC; their wall clock is
// reinterpreted in loc.
func parseLocalTime(v any, loc *time.Location) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.Location() == time.UTC {
			return time.Date(val.Year(), val.Month(), val.Day(),
				val.Hour(), val.Minute(), val.Second(), val.Nanosecond(), loc), true
		}
		return val.In(loc), true
	case string:
		return parseTimeText(val, loc)
	case []byte:
		return parseTimeText(string(val), loc)
	default:
		return time.Time{}, false
	}
}

func parseTimeText(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
