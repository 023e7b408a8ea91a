package gps

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// DemoProvider generates simulated voyages for testing the UI and exports.
type DemoProvider struct {
	mu     sync.Mutex
	tracks []Track
}

// demoSizes are chosen so each preview tolerance step is exercised.
var demoSizes = []int{800, 3000, 7000, 15000}

func NewDemoProvider() *DemoProvider { return &DemoProvider{} }

func (d *DemoProvider) Name() string { return "Demo log (Simulated)" }
func (d *DemoProvider) Close() error { return nil }

func (d *DemoProvider) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tracks != nil {
		return nil
	}
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local)
	for i, n := range demoSizes {
		d.tracks = append(d.tracks, demoTrack(int64(i+1), n, base.AddDate(0, 0, i)))
	}
	return nil
}

func (d *DemoProvider) Records(ctx context.Context) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := make([]Record, 0, len(d.tracks))
	for i := len(d.tracks) - 1; i >= 0; i-- {
		t := d.tracks[i]
		records = append(records, Record{
			ID:          t.RecordID,
			Name:        t.Name,
			StartTime:   t.Start(),
			EndTime:     t.End(),
			DisplayFlag: 1,
			PointCount:  len(t.Points),
		})
	}
	return records, nil
}

func (d *DemoProvider) Tracks(ctx context.Context, recordIDs []int64) ([]Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Track
	for _, id := range recordIDs {
		for _, t := range d.tracks {
			if t.RecordID == id {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

// demoTrack sails a slowly drifting loop off the Wakasa coast, one fix every 5s.
func demoTrack(id int64, n int, start time.Time) Track {
	centerLat := 35.6
	centerLon := 135.9
	radius := 0.02 // ~2km

	points := make([]Point, n)
	for i := range points {
		a := float64(i) * 2 * math.Pi / 720
		drift := float64(i) * 0.000002
		points[i] = Point{
			Lat:   centerLat + radius*math.Sin(a) + drift,
			Lon:   centerLon + radius*math.Cos(a)*1.3 + drift,
			Time:  start.Add(time.Duration(i) * 5 * time.Second),
			Speed: 6 + 2*math.Sin(a*3),
		}
	}
	return Track{
		RecordID: id,
		Name:     fmt.Sprintf("Demo voyage %d", id),
		Points:   points,
	}
}
