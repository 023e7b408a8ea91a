package gpx

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shaunagostinho/oceagpx/internal/gps"
)

// FromTracks builds a document with one <trk> per track.
func FromTracks(tracks []gps.Track) *GPX {
	g := &GPX{
		Version: Version,
		Creator: Creator,
		XMLNS:   Namespace,
		Tracks:  make([]Track, 0, len(tracks)),
	}

	for _, t := range tracks {
		seg := TrackSegment{Points: make([]Point, len(t.Points))}
		for i, p := range t.Points {
			seg.Points[i] = Point{
				Lat:   Decimal(p.Lat),
				Lon:   Decimal(p.Lon),
				Time:  FormatTime(p.Time),
				Speed: Decimal(p.Speed),
			}
		}
		g.Tracks = append(g.Tracks, Track{
			Name:     Text(t.Name),
			Segments: []TrackSegment{seg},
		})
	}
	return g
}

// FormatTime converts t to UTC and formats it for <time>.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Write saves the document to a file.
func (g *GPX) Write(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("gpx: failed to create file: %w", err)
	}

	bw := bufio.NewWriter(file)
	if err := g.WriteToWriter(bw); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("gpx: failed to write %s: %w", filename, err)
	}
	return file.Close()
}

// WriteToWriter writes the document to an io.Writer.
func (g *GPX) WriteToWriter(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	if err := encoder.Encode(g); err != nil {
		return fmt.Errorf("gpx: failed to encode: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("gpx: failed to encode: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
