// Package preview turns tracks into GeoJSON for the map view.
package preview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/shaunagostinho/oceagpx/internal/gps"
	"github.com/shaunagostinho/oceagpx/internal/simplify"
)

// Palette is cycled by track position.
var Palette = []string{
	"#1976d2", "#dc004e", "#388e3c", "#f57c00",
	"#7b1fa2", "#0097a7", "#c2185b", "#512da8",
}

const (
	StartColor = "#4caf50"
	EndColor   = "#f44336"
)

// Feature kinds, stored in the "kind" property.
const (
	KindTrack = "track"
	KindStart = "start"
	KindEnd   = "end"
)

// ColorFor returns the line colour of the track at position i.
func ColorFor(i int) string {
	return Palette[i%len(Palette)]
}

// Tracks simplifies each track and builds the preview collection.
func Tracks(tracks []gps.Track) *geojson.FeatureCollection {
	simplified := make([]simplify.SimplifiedTrack, len(tracks))
	for i, t := range tracks {
		simplified[i] = simplify.Track(t)
	}
	return Build(simplified)
}

// Build emits a LineString plus start and end markers per non-empty track.
// Empty tracks still consume a palette slot. The collection's bbox covers all
// original points, not only the simplified ones; it is omitted when there are
// none.
func Build(tracks []simplify.SimplifiedTrack) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var bound orb.Bound
	hasBound := false

	for i, t := range tracks {
		if len(t.Simplified) == 0 {
			continue
		}
		color := ColorFor(i)

		line := geojson.NewFeature(t.Simplified)
		line.ID = t.RecordID
		line.Properties["kind"] = KindTrack
		line.Properties["recordId"] = t.RecordID
		line.Properties["name"] = t.Name
		line.Properties["color"] = color
		line.Properties["points"] = len(t.Points)
		line.Properties["renderedPoints"] = len(t.Simplified)
		line.Properties["tolerance"] = t.Tolerance
		fc.Append(line)

		fc.Append(marker(t, KindStart, t.Simplified[0], StartColor))
		fc.Append(marker(t, KindEnd, t.Simplified[len(t.Simplified)-1], EndColor))

		b := t.LineString().Bound()
		if hasBound {
			bound = bound.Union(b)
		} else {
			bound = b
			hasBound = true
		}
	}

	if hasBound {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

func marker(t simplify.SimplifiedTrack, kind string, p orb.Point, color string) *geojson.Feature {
	f := geojson.NewFeature(p)
	f.Properties["kind"] = kind
	f.Properties["recordId"] = t.RecordID
	f.Properties["name"] = t.Name
	f.Properties["color"] = color
	if kind == KindStart {
		f.Properties["time"] = t.Start()
	} else {
		f.Properties["time"] = t.End()
	}
	return f
}
