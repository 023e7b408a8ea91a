package gpx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shaunagostinho/oceagpx/internal/gps"
)

var jst = time.FixedZone("JST", 9*3600)

func sampleTrack(name string) gps.Track {
	start := time.Date(2021, 10, 9, 8, 58, 49, 0, jst)
	return gps.Track{
		RecordID: 1,
		Name:     name,
		Points: []gps.Point{
			{Lat: 35.123456, Lon: 135.654321, Time: start, Speed: 12.5},
			{Lat: 35.124, Lon: 135.655, Time: start.Add(5 * time.Second), Speed: 0},
			{Lat: 35.125, Lon: 135.656, Time: start.Add(10 * time.Second), Speed: 3},
		},
	}
}

func encode(t *testing.T, tracks ...gps.Track) string {
	t.Helper()
	var buf bytes.Buffer
	if err := FromTracks(tracks).WriteToWriter(&buf); err != nil {
		t.Fatalf("WriteToWriter failed: %v", err)
	}
	return buf.String()
}

func TestWriteDocumentShape(t *testing.T) {
	out := encode(t, sampleTrack("Morning run"))

	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML declaration: %q", out[:40])
	}
	if !strings.Contains(out, `<gpx version="1.1" creator="OceaGPX" xmlns="http://www.topografix.com/GPX/1/1">`) {
		t.Errorf("unexpected root element:\n%s", out)
	}
	if n := strings.Count(out, "<trkpt "); n != 3 {
		t.Errorf("expected 3 trkpt elements, got %d", n)
	}
	if n := strings.Count(out, "<trk>"); n != 1 {
		t.Errorf("expected 1 trk element, got %d", n)
	}
	if !strings.Contains(out, `<trkpt lat="35.123456" lon="135.654321">`) {
		t.Errorf("coordinates not written verbatim:\n%s", out)
	}
	if !strings.Contains(out, "<speed>12.5</speed>") {
		t.Errorf("speed not written:\n%s", out)
	}
}

func TestWriteTimesAreUTC(t *testing.T) {
	out := encode(t, sampleTrack("x"))

	if !strings.Contains(out, "<time>2021-10-08T23:58:49Z</time>") {
		t.Errorf("expected UTC time for 08:58:49 JST:\n%s", out)
	}
	if strings.Contains(out, "+09:00") {
		t.Errorf("local offset leaked into output")
	}
}

func TestWriteEscapesName(t *testing.T) {
	out := encode(t, sampleTrack(`A&B <"x"> 'y'`))

	want := "<name>A&amp;B &lt;&quot;x&quot;&gt; &apos;y&apos;</name>"
	if !strings.Contains(out, want) {
		t.Errorf("expected %s in:\n%s", want, out)
	}
}

func TestWriteDecimalsWithoutExponent(t *testing.T) {
	start := time.Date(2021, 10, 9, 8, 58, 49, 0, jst)
	out := encode(t, gps.Track{
		Name: "Equator",
		Points: []gps.Point{
			{Lat: 0.00005, Lon: 120.5, Time: start, Speed: 0.00001},
			{Lat: -0.00003, Lon: 120.6, Time: start.Add(time.Second), Speed: 1234567},
		},
	})

	for _, want := range []string{
		`<trkpt lat="0.00005" lon="120.5">`,
		`<trkpt lat="-0.00003" lon="120.6">`,
		"<speed>0.00001</speed>",
		"<speed>1234567</speed>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "e-0") || strings.Contains(out, "e+0") {
		t.Errorf("exponent notation in output:\n%s", out)
	}
}

func TestWriteMultipleTracks(t *testing.T) {
	empty := gps.Track{RecordID: 3, Name: "empty"}
	out := encode(t, sampleTrack("one"), sampleTrack("two"), empty)

	if n := strings.Count(out, "<trk>"); n != 3 {
		t.Errorf("expected 3 trk elements, got %d", n)
	}
	if n := strings.Count(out, "<trkpt "); n != 6 {
		t.Errorf("expected 6 trkpt elements, got %d", n)
	}
	if strings.Index(out, "<name>one</name>") > strings.Index(out, "<name>two</name>") {
		t.Errorf("track order not preserved")
	}
}

func TestRoundTrip(t *testing.T) {
	name := `Bay & "Harbor"`
	out := encode(t, sampleTrack(name))

	summaries, err := ReadBytes([]byte(out))
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 track, got %d", len(summaries))
	}

	s := summaries[0]
	if s.Track.Name != name {
		t.Errorf("expected name %q, got %q", name, s.Track.Name)
	}
	if len(s.Track.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(s.Track.Points))
	}

	src := sampleTrack(name)
	for i, p := range s.Track.Points {
		if p.Lat != src.Points[i].Lat || p.Lon != src.Points[i].Lon {
			t.Errorf("point %d: expected %f,%f got %f,%f", i, src.Points[i].Lat, src.Points[i].Lon, p.Lat, p.Lon)
		}
		if !p.Time.Equal(src.Points[i].Time) {
			t.Errorf("point %d: expected %v, got %v", i, src.Points[i].Time, p.Time)
		}
	}
	if !s.Start.Equal(src.Start()) || !s.End.Equal(src.End()) {
		t.Errorf("unexpected span %v - %v", s.Start, s.End)
	}
	if s.Length2D <= 0 {
		t.Errorf("expected positive length, got %f", s.Length2D)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpx")

	if err := FromTracks([]gps.Track{sampleTrack("file")}).Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.HasSuffix(data, []byte("</gpx>\n")) {
		t.Errorf("file not terminated with </gpx>")
	}

	summaries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(summaries) != 1 || len(summaries[0].Track.Points) != 3 {
		t.Errorf("unexpected summaries %+v", summaries)
	}
}

func TestWriteToMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.gpx")
	if err := FromTracks(nil).Write(path); err == nil {
		t.Errorf("expected error writing into a missing directory")
	}
}
