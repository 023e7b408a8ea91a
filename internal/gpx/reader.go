package gpx

import (
	"fmt"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/shaunagostinho/oceagpx/internal/gps"
)

// Summary describes one track read back from a GPX file.
type Summary struct {
	Track    gps.Track
	Start    time.Time
	End      time.Time
	Length2D float64 // meters
}

// ReadFile parses a GPX file written by this package or any other GPX 1.0/1.1
// producer. Segments of a track are concatenated.
func ReadFile(path string) ([]Summary, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("gpx: failed to parse %s: %w", path, err)
	}
	return summarize(g), nil
}

// ReadBytes is ReadFile for an in-memory document.
func ReadBytes(data []byte) ([]Summary, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("gpx: failed to parse: %w", err)
	}
	return summarize(g), nil
}

func summarize(g *gpx.GPX) []Summary {
	out := make([]Summary, 0, len(g.Tracks))

	for _, trk := range g.Tracks {
		s := Summary{Track: gps.Track{Name: trk.Name}}
		for _, seg := range trk.Segments {
			s.Length2D += seg.Length2D()
			for _, p := range seg.Points {
				s.Track.Points = append(s.Track.Points, gps.Point{
					Lat:  p.Latitude,
					Lon:  p.Longitude,
					Time: p.Timestamp,
				})
			}
		}
		s.Start = s.Track.Start()
		s.End = s.Track.End()
		out = append(out, s)
	}
	return out
}
