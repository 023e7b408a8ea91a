package gps

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// Provider is the interface for navigation-log sources.
type Provider interface {
	Name() string
	Connect() error
	Close() error
	// Records lists the recorded voyages, newest first.
	Records(ctx context.Context) ([]Record, error)
	// Tracks loads the points of the given records. Unknown IDs are skipped.
	Tracks(ctx context.Context, recordIDs []int64) ([]Track, error)
}

// Point holds a single logged fix.
type Point struct {
	Lat   float64   `json:"lat"`   // Decimal degrees
	Lon   float64   `json:"lon"`   // Decimal degrees
	Time  time.Time `json:"time"`  // Source-local time
	Speed float64   `json:"speed"` // Passed through as logged
}

// Valid reports whether the point carries a fix. (0,0) means "no fix".
func (p Point) Valid() bool {
	return p.Lat != 0 && p.Lon != 0
}

// Track is the ordered point sequence of one record.
type Track struct {
	RecordID int64   `json:"recordId"`
	Name     string  `json:"name"`
	Points   []Point `json:"points"`
}

// LineString returns the track geometry in lon/lat order.
func (t Track) LineString() orb.LineString {
	ls := make(orb.LineString, len(t.Points))
	for i, p := range t.Points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

// Start returns the first point's time, or the zero time for an empty track.
func (t Track) Start() time.Time {
	if len(t.Points) == 0 {
		return time.Time{}
	}
	return t.Points[0].Time
}

// End returns the last point's time, or the zero time for an empty track.
func (t Track) End() time.Time {
	if len(t.Points) == 0 {
		return time.Time{}
	}
	return t.Points[len(t.Points)-1].Time
}

// Record is a listing row for one voyage.
type Record struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Distance    float64   `json:"distance"`    // As logged by the plotter
	DisplayFlag int       `json:"displayFlag"` // 1 = shown on the plotter
	PointCount  int       `json:"pointCount"`
}
