package gpx

import (
	"encoding/xml"
	"strconv"
	"strings"
)

const (
	Version   = "1.1"
	Creator   = "OceaGPX"
	Namespace = "http://www.topografix.com/GPX/1/1"

	// TimeLayout is the UTC timestamp format written into <time>.
	TimeLayout = "2006-01-02T15:04:05Z"
)

// GPX is the document written for one export.
type GPX struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	XMLNS   string   `xml:"xmlns,attr"`
	Tracks  []Track  `xml:"trk"`
}

// Track is one <trk>; each record is written as a single segment.
type Track struct {
	Name     Text           `xml:"name"`
	Segments []TrackSegment `xml:"trkseg"`
}

type TrackSegment struct {
	Points []Point `xml:"trkpt"`
}

// Point is one <trkpt>. Time is already formatted in UTC.
type Point struct {
	Lat   Decimal `xml:"lat,attr"`
	Lon   Decimal `xml:"lon,attr"`
	Time  string  `xml:"time"`
	Speed Decimal `xml:"speed"`
}

// Decimal is written in plain positional notation. GPX declares lat and lon
// as xsd:decimal, which has no exponent form.
type Decimal float64

func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}

func (d Decimal) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: d.String()}, nil
}

func (d Decimal) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(d.String(), start)
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Text is character data escaped with the five named XML entities, which
// earlier exports used. encoding/xml would write &#34; and &#39; instead.
type Text string

func (t Text) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	type inner struct {
		Content string `xml:",innerxml"`
	}

	return e.EncodeElement(inner{Content: textEscaper.Replace(string(t))}, start)
}

func (t *Text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}
