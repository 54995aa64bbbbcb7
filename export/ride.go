// Package export writes decoded rides as JSON, GPX, TCX, CSV or Parquet.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lucasjlepore/bryton-gps/track"
)

// Format is an output format name.
type Format string

const (
	FormatJSON    Format = "json"
	FormatGPX     Format = "gpx"
	FormatGPXX    Format = "gpxx"
	FormatTCX     Format = "tcx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

var formats = []Format{FormatJSON, FormatGPX, FormatGPXX, FormatTCX, FormatCSV, FormatParquet}

// ParseFormat accepts the names listed in Formats, case insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(formats, f) {
		return "", fmt.Errorf("unsupported format %q (expected %s)", s, strings.Join(Formats(), "|"))
	}
	return f, nil
}

// Formats lists the supported format names.
func Formats() []string {
	return lo.Map(formats, func(f Format, _ int) string { return string(f) })
}

// Extension is the file extension without the dot. Both GPX flavours share
// the gpx extension.
func (f Format) Extension() string {
	if f == FormatGPXX {
		return "gpx"
	}
	return string(f)
}

// FileName derives an output file name from a ride name.
func FileName(name string, f Format) string {
	name = strings.NewReplacer("/", "", ":", "", " ", "-").Replace(name)
	return name + "." + f.Extension()
}

const timeLayout = "2006-01-02T15:04:05Z"

func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(timeLayout)
}

// Options selects elevation rewrites applied before export.
type Options struct {
	// FixElevation shifts the ride so its first point has this elevation.
	FixElevation *float64
	// StripElevation zeroes every elevation.
	StripElevation bool
}

// Ride is a fully decoded track ready for export.
type Ride struct {
	Name        string
	Timestamp   int64
	Trackpoints []track.TrackSegment
	Logpoints   []track.LogSegment
	Summary     track.Summary
	// Laps is empty when the device recorded no laps.
	Laps []track.Summary
}

// Load decodes every part of t and applies the elevation options.
func Load(t *track.Track, opts Options) (*Ride, error) {
	tps, err := t.Trackpoints()
	if err != nil {
		return nil, err
	}
	lps, err := t.Logpoints()
	if err != nil {
		return nil, err
	}
	summary, err := t.Summary()
	if err != nil {
		return nil, err
	}
	r := &Ride{
		Name:        t.Name,
		Timestamp:   t.Timestamp,
		Trackpoints: tps,
		Logpoints:   lps,
		Summary:     summary,
	}
	laps, err := t.LapSummaries()
	if err != nil {
		return nil, err
	}
	// generation 50 reports no lap count, its laps only show up here
	if t.LapCount > 0 || len(laps) > 1 {
		r.Laps = laps
	}
	switch {
	case opts.StripElevation:
		r.Trackpoints = track.StripElevation(r.Trackpoints)
	case opts.FixElevation != nil:
		r.Trackpoints = track.FixElevation(r.Trackpoints, *opts.FixElevation)
	}
	return r, nil
}

// Merged pairs the segments of r and drops segments without GPS points.
func (r *Ride) Merged() [][]track.MergedPoint {
	n := min(len(r.Trackpoints), len(r.Logpoints))
	out := make([][]track.MergedPoint, 0, n)
	for i := 0; i < n; i++ {
		if len(r.Trackpoints[i].Points) == 0 {
			continue
		}
		out = append(out, track.MergeSegments(r.Trackpoints[i], r.Logpoints[i]))
	}
	return out
}
