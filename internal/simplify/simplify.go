// Package simplify reduces track geometry for map rendering using the
// Douglas-Peucker algorithm.
//
// Distances are Euclidean in raw degree space, not geodesic. This is good
// enough at map zoom levels and must not be used for measuring.
package simplify

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/shaunagostinho/oceagpx/internal/gps"
)

// SimplifiedTrack pairs a track with its render geometry.
type SimplifiedTrack struct {
	gps.Track
	Simplified orb.LineString
	Tolerance  float64
}

// Tolerance picks the simplification tolerance in degrees for a track of n
// points. Zero means the track is drawn as-is.
func Tolerance(n int) float64 {
	switch {
	case n > 10000:
		return 0.0005
	case n > 5000:
		return 0.0003
	case n > 1000:
		return 0.0001
	default:
		return 0
	}
}

// Track simplifies a track for rendering with the tolerance for its size.
func Track(t gps.Track) SimplifiedTrack {
	line := t.LineString()
	tol := Tolerance(len(line))
	if tol > 0 {
		line = DouglasPeucker(line, tol)
	}
	return SimplifiedTrack{Track: t, Simplified: line, Tolerance: tol}
}

// DouglasPeucker returns the subset of line whose dropped points all lie
// within tolerance of the kept polyline. The first point of maximum
// distance wins ties. The input is not modified.
func DouglasPeucker(line orb.LineString, tolerance float64) orb.LineString {
	if len(line) <= 2 {
		return append(orb.LineString(nil), line...)
	}

	keep := make([]bool, len(line))
	keep[0] = true
	keep[len(line)-1] = true
	douglasPeucker(line, 0, len(line)-1, tolerance, keep)

	out := make(orb.LineString, 0, len(line))
	for i, k := range keep {
		if k {
			out = append(out, line[i])
		}
	}
	return out
}

// douglasPeucker marks the points to keep strictly between first and last.
func douglasPeucker(line orb.LineString, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}

	maxDist := 0.0
	index := first
	for i := first + 1; i < last; i++ {
		d := Distance(line[i], line[first], line[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}

	if index == first || maxDist <= tolerance {
		return
	}

	keep[index] = true
	douglasPeucker(line, first, index, tolerance, keep)
	douglasPeucker(line, index, last, tolerance, keep)
}

// Distance is the perpendicular distance from p to the infinite line through
// a and b. When a and b coincide it is the distance from p to a.
func Distance(p, a, b orb.Point) float64 {
	dx := b.X() - a.X()
	dy := b.Y() - a.Y()

	if dx == 0 && dy == 0 {
		ex, ey := p.X()-a.X(), p.Y()-a.Y()
		return math.Sqrt(ex*ex + ey*ey)
	}

	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / (dx*dx + dy*dy)
	nearX := a.X() + t*dx
	nearY := a.Y() + t*dy

	ex, ey := p.X()-nearX, p.Y()-nearY
	return math.Sqrt(ex*ex + ey*ey)
}
