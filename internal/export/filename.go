package export

import (
	"strings"
	"time"

	"github.com/shaunagostinho/oceagpx/internal/gps"
)

const mergedFallback = "tracks.gpx"

var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeName replaces characters that are not allowed in file names.
func SanitizeName(name string) string {
	return unsafeChars.Replace(name)
}

// SingleFilename names the file for one track after its name and the local
// time of its first point. A track without points gets only its name.
func SingleFilename(t gps.Track) string {
	safe := SanitizeName(t.Name)
	if len(t.Points) == 0 {
		return safe + ".gpx"
	}
	start := t.Points[0].Time
	return safe + "_" + start.Format("20060102") + "_" + start.Format("1504") + ".gpx"
}

// MergedFilename names a merged file after the dates of the earliest start and
// latest end over the non-empty tracks.
func MergedFilename(tracks []gps.Track) string {
	var first, last time.Time
	found := false

	for _, t := range tracks {
		if len(t.Points) == 0 {
			continue
		}
		start, end := t.Start(), t.End()
		if !found || start.Before(first) {
			first = start
		}
		if !found || end.After(last) {
			last = end
		}
		found = true
	}
	if !found {
		return mergedFallback
	}

	startStr := first.Format("20060102")
	endStr := last.Format("20060102")
	if startStr == endStr {
		return "tracks_" + startStr + ".gpx"
	}
	return "tracks_" + startStr + "_" + endStr + ".gpx"
}
