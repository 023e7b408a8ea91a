package thin

import (
	"github.com/shaunagostinho/oceagpx/internal/gps"
)

// minTrackTarget keeps every thinned track drawable as a line.
const minTrackTarget = 2

// ProportionalResult is the outcome of sharing one point budget across tracks.
type ProportionalResult struct {
	Tracks        []gps.Track
	Results       []Result
	OriginalTotal int
	ExportedTotal int
	// IntervalSeconds pools all thinned tracks, see AverageInterval.
	// Nil when no thinning was needed.
	IntervalSeconds *int
}

// Reduced reports whether any point was dropped.
func (r ProportionalResult) Reduced() bool {
	return r.ExportedTotal != r.OriginalTotal
}

// Targets splits budget across tracks of the given lengths in proportion to
// their size: max(2, floor(len*budget/total)). The targets are not
// rebalanced, so their sum may drift from budget.
func Targets(lengths []int, budget int) []int {
	total := 0
	for _, n := range lengths {
		total += n
	}

	targets := make([]int, len(lengths))
	for i, n := range lengths {
		t := 0
		if total > 0 {
			t = int(int64(n) * int64(budget) / int64(total))
		}
		targets[i] = max(minTrackTarget, t)
	}
	return targets
}

// Proportional thins tracks that share a combined budget. When budget is
// disabled or the tracks already fit, they are returned unchanged.
func Proportional(tracks []gps.Track, budget int) ProportionalResult {
	lengths := make([]int, len(tracks))
	total := 0
	for i, t := range tracks {
		lengths[i] = len(t.Points)
		total += lengths[i]
	}

	res := ProportionalResult{
		Tracks:        tracks,
		Results:       make([]Result, len(tracks)),
		OriginalTotal: total,
		ExportedTotal: total,
	}

	if budget <= 0 || total <= budget {
		for i, t := range tracks {
			res.Results[i] = Points(t.Points, 0)
		}
		return res
	}

	targets := Targets(lengths, budget)
	res.Tracks = make([]gps.Track, len(tracks))
	res.ExportedTotal = 0
	sequences := make([][]gps.Point, len(tracks))
	for i, t := range tracks {
		r := Points(t.Points, targets[i])
		res.Results[i] = r
		res.ExportedTotal += r.ExportedCount
		res.Tracks[i] = gps.Track{RecordID: t.RecordID, Name: t.Name, Points: r.Points}
		sequences[i] = r.Points
	}
	res.IntervalSeconds = AverageInterval(sequences)
	return res
}
