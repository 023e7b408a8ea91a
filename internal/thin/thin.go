// Package thin reduces tracks to a bounded number of points for export.
//
// Selection is by index stride, not by time or distance: a point one second
// after its neighbour weighs the same as one an hour later.
package thin

import (
	"math"

	"github.com/shaunagostinho/oceagpx/internal/gps"
)

// Result is the outcome of thinning one point sequence.
type Result struct {
	Points        []gps.Point `json:"-"`
	OriginalCount int         `json:"originalCount"`
	ExportedCount int         `json:"exportedCount"`
	// IntervalSeconds is the approximate time between exported points.
	// Nil when fewer than two points remain.
	IntervalSeconds *int `json:"intervalSeconds,omitempty"`
}

// Reduced reports whether any point was dropped.
func (r Result) Reduced() bool {
	return r.ExportedCount != r.OriginalCount
}

// Points thins points to at most maxPoints using a fixed real-valued stride.
// The last input point is always the last output point. maxPoints <= 0
// disables thinning. The input slice is never modified.
func Points(points []gps.Point, maxPoints int) Result {
	n := len(points)
	if maxPoints <= 0 || n <= maxPoints {
		return Result{
			Points:          points,
			OriginalCount:   n,
			ExportedCount:   n,
			IntervalSeconds: interval(points),
		}
	}

	out := make([]gps.Point, 0, maxPoints)
	stride := float64(n) / float64(maxPoints)
	for i := 0; i < maxPoints-1; i++ {
		out = append(out, points[int(math.Floor(float64(i)*stride))])
	}
	out = append(out, points[n-1])

	return Result{
		Points:          out,
		OriginalCount:   n,
		ExportedCount:   len(out),
		IntervalSeconds: interval(out),
	}
}

// interval returns the mean spacing in whole seconds between first and last point.
func interval(points []gps.Point) *int {
	if len(points) < 2 {
		return nil
	}
	span := points[len(points)-1].Time.Sub(points[0].Time).Seconds()
	s := int(math.Round(span / float64(len(points)-1)))
	return &s
}

// AverageInterval pools the spans of several sequences: total seconds
// divided by total gaps. Sequences shorter than two points are ignored.
func AverageInterval(sequences [][]gps.Point) *int {
	var (
		seconds float64
		gaps    int
	)
	for _, pts := range sequences {
		if len(pts) < 2 {
			continue
		}
		seconds += pts[len(pts)-1].Time.Sub(pts[0].Time).Seconds()
		gaps += len(pts) - 1
	}
	if gaps == 0 {
		return nil
	}
	s := int(math.Round(seconds / float64(gaps)))
	return &s
}
