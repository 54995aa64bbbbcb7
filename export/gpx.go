package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/twpayne/go-gpx"

	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	gpxCreator = "bryton-gps"
	tpxNS      = "http://www.garmin.com/xmlschemas/TrackPointExtension/v1"
)

func newWpt(p *track.TrackPoint) *gpx.WptType {
	return &gpx.WptType{
		Lat:  p.Latitude,
		Lon:  p.Longitude,
		Ele:  p.Elevation,
		Time: time.Unix(p.Timestamp, 0).UTC(),
	}
}

func newGPX(name string, segs []*gpx.TrkSegType) *gpx.GPX {
	return &gpx.GPX{
		Version: "1.1",
		Creator: gpxCreator,
		Trk:     []*gpx.TrkType{{Name: name, TrkSeg: segs}},
	}
}

func writeGPX(w io.Writer, g *gpx.GPX, pretty bool) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if pretty {
		return g.WriteIndent(w, "", " ")
	}
	return g.Write(w)
}

// WriteGPX writes the GPS points of r as a plain GPX track. Segments
// without points are left out.
func WriteGPX(w io.Writer, r *Ride, pretty bool) error {
	var segs []*gpx.TrkSegType
	for _, seg := range r.Trackpoints {
		if len(seg.Points) == 0 {
			continue
		}
		ts := &gpx.TrkSegType{TrkPt: make([]*gpx.WptType, 0, len(seg.Points))}
		for i := range seg.Points {
			ts.TrkPt = append(ts.TrkPt, newWpt(&seg.Points[i]))
		}
		segs = append(segs, ts)
	}
	return writeGPX(w, newGPX(r.Name, segs), pretty)
}

// WriteGPXX writes the merged stream of r with heart rate, cadence and
// temperature in Garmin TrackPointExtension elements. Sensor samples that
// were not paired with a GPS point are dropped.
func WriteGPXX(w io.Writer, r *Ride, pretty bool) error {
	var segs []*gpx.TrkSegType
	for _, merged := range r.Merged() {
		ts := &gpx.TrkSegType{}
		for _, mp := range merged {
			if mp.Track == nil {
				continue
			}
			wpt := newWpt(mp.Track)
			if ext := trackPointExtension(mp.Log); ext != "" {
				wpt.Extensions = &gpx.ExtensionsType{XML: []byte(ext)}
			}
			ts.TrkPt = append(ts.TrkPt, wpt)
		}
		segs = append(segs, ts)
	}
	return writeGPX(w, newGPX(r.Name, segs), pretty)
}

func trackPointExtension(lp *track.LogPoint) string {
	if lp == nil || (lp.Temperature == nil && lp.Heartrate == nil && lp.Cadence == nil) {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<gpxtpx:TrackPointExtension xmlns:gpxtpx=%q>`, tpxNS)
	if lp.Temperature != nil {
		fmt.Fprintf(&b, "<gpxtpx:atemp>%.1f</gpxtpx:atemp>", *lp.Temperature)
	}
	if lp.Heartrate != nil {
		fmt.Fprintf(&b, "<gpxtpx:hr>%d</gpxtpx:hr>", *lp.Heartrate)
	}
	if lp.Cadence != nil {
		fmt.Fprintf(&b, "<gpxtpx:cad>%d</gpxtpx:cad>", *lp.Cadence)
	}
	b.WriteString("</gpxtpx:TrackPointExtension>")
	return b.String()
}
