package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	tcxNS       = "http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2"
	tcxXSD      = "http://www.garmin.com/xmlschemas/TrainingCenterDatabasev2.xsd"
	activityNS  = "http://www.garmin.com/xmlschemas/ActivityExtension/v2"
	activityXSD = "http://www.garmin.com/xmlschemas/ActivityExtensionv2.xsd"
	xsiNS       = "http://www.w3.org/2001/XMLSchema-instance"
)

type tcxDatabase struct {
	XMLName        xml.Name      `xml:"http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2 TrainingCenterDatabase"`
	XmlnsNS3       string        `xml:"xmlns:ns3,attr"`
	XmlnsXSI       string        `xml:"xmlns:xsi,attr"`
	SchemaLocation string        `xml:"xsi:schemaLocation,attr"`
	Activities     tcxActivities `xml:"Activities"`
}

type tcxActivities struct {
	Activity tcxActivity `xml:"Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	ID    string   `xml:"Id"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxValue struct {
	Value string `xml:"Value"`
}

type tcxLap struct {
	StartTime        string     `xml:"StartTime,attr"`
	TotalTimeSeconds string     `xml:"TotalTimeSeconds"`
	DistanceMeters   string     `xml:"DistanceMeters"`
	MaximumSpeed     string     `xml:"MaximumSpeed"`
	Calories         int        `xml:"Calories"`
	AverageHeartRate *tcxValue  `xml:"AverageHeartRateBpm,omitempty"`
	MaximumHeartRate *tcxValue  `xml:"MaximumHeartRateBpm,omitempty"`
	Intensity        string     `xml:"Intensity"`
	Cadence          string     `xml:"Cadence,omitempty"`
	TriggerMethod    string     `xml:"TriggerMethod"`
	Tracks           []tcxTrack `xml:"Track"`
	Extensions       tcxLapExt  `xml:"Extensions"`
}

type tcxLapExt struct {
	LX tcxLX `xml:"ns3:LX"`
}

type tcxLX struct {
	AvgSpeed       string `xml:"ns3:AvgSpeed"`
	MaxBikeCadence string `xml:"ns3:MaxBikeCadence,omitempty"`
	AvgWatts       string `xml:"ns3:AvgWatts,omitempty"`
	MaxWatts       string `xml:"ns3:MaxWatts,omitempty"`
}

type tcxTrack struct {
	Points []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxPosition struct {
	Latitude  string `xml:"LatitudeDegrees"`
	Longitude string `xml:"LongitudeDegrees"`
}

type tcxTrackpoint struct {
	Time           string       `xml:"Time"`
	Position       *tcxPosition `xml:"Position,omitempty"`
	AltitudeMeters string       `xml:"AltitudeMeters,omitempty"`
	HeartRate      *tcxValue    `xml:"HeartRateBpm,omitempty"`
	Cadence        string       `xml:"Cadence,omitempty"`
	Extensions     *tcxPointExt `xml:"Extensions,omitempty"`
}

type tcxPointExt struct {
	TPX tcxTPX `xml:"ns3:TPX"`
}

type tcxTPX struct {
	Speed string `xml:"ns3:Speed"`
	Watts string `xml:"ns3:Watts,omitempty"`
}

func kmhToMs(v float64) float64 { return v * 1000 / 3600 }

// sensorMax is the rounded maximum of a sensor, zero when never recorded.
func sensorMax(v *track.AvgMax) int {
	if v == nil || v.Max <= 0 {
		return 0
	}
	return int(v.Max + 0.5)
}

func newTCXLap(s track.Summary) tcxLap {
	lap := tcxLap{
		StartTime:        formatTimestamp(s.Start),
		TotalTimeSeconds: fmt.Sprintf("%.1f", float64(s.End-s.Start)),
		DistanceMeters:   fmt.Sprintf("%.1f", s.Distance),
		MaximumSpeed:     fmt.Sprintf("%.2f", kmhToMs(s.Speed.Max)),
		Calories:         s.Calories,
		Intensity:        "Active",
		TriggerMethod:    "Manual",
		Extensions: tcxLapExt{LX: tcxLX{
			AvgSpeed: fmt.Sprintf("%.2f", kmhToMs(s.Speed.Avg)),
		}},
	}
	if sensorMax(s.Heartrate) > 0 {
		lap.AverageHeartRate = &tcxValue{Value: fmt.Sprintf("%.0f", s.Heartrate.Avg)}
		lap.MaximumHeartRate = &tcxValue{Value: fmt.Sprintf("%d", sensorMax(s.Heartrate))}
	}
	if max := sensorMax(s.Cadence); max > 0 {
		lap.Cadence = fmt.Sprintf("%.0f", s.Cadence.Avg)
		lap.Extensions.LX.MaxBikeCadence = fmt.Sprintf("%d", max)
	}
	if max := sensorMax(s.Watts); max > 0 {
		lap.Extensions.LX.AvgWatts = fmt.Sprintf("%.0f", s.Watts.Avg)
		lap.Extensions.LX.MaxWatts = fmt.Sprintf("%d", max)
	}
	return lap
}

func newTCXTrackpoint(mp track.MergedPoint) tcxTrackpoint {
	p := tcxTrackpoint{Time: formatTimestamp(mp.Timestamp())}
	if tp := mp.Track; tp != nil {
		p.Position = &tcxPosition{
			Latitude:  fmt.Sprintf("%.6f", tp.Latitude),
			Longitude: fmt.Sprintf("%.6f", tp.Longitude),
		}
		p.AltitudeMeters = fmt.Sprintf("%.1f", tp.Elevation)
	}
	lp := mp.Log
	if lp == nil {
		return p
	}
	if lp.Heartrate != nil {
		p.HeartRate = &tcxValue{Value: fmt.Sprintf("%d", *lp.Heartrate)}
	}
	if lp.Cadence != nil {
		p.Cadence = fmt.Sprintf("%d", *lp.Cadence)
	}
	if lp.Speed != nil && *lp.Speed > 0 {
		p.Extensions = &tcxPointExt{TPX: tcxTPX{Speed: fmt.Sprintf("%.2f", kmhToMs(*lp.Speed))}}
		if lp.Watts != nil {
			p.Extensions.TPX.Watts = fmt.Sprintf("%d", *lp.Watts)
		}
	}
	return p
}

// lapIndex returns the lap that ts falls in. Points after the last lap end
// belong to the last lap.
func lapIndex(laps []track.Summary, ts int64) int {
	for i, lap := range laps {
		if ts < lap.End {
			return i
		}
	}
	return len(laps) - 1
}

func newTCXDatabase(r *Ride) tcxDatabase {
	summaries := r.Laps
	if len(summaries) == 0 {
		summaries = []track.Summary{r.Summary}
	}
	laps := make([]tcxLap, 0, len(summaries))
	for _, s := range summaries {
		laps = append(laps, newTCXLap(s))
	}

	for _, merged := range r.Merged() {
		tracks := make([]tcxTrack, len(laps))
		for _, mp := range merged {
			i := lapIndex(summaries, mp.Timestamp())
			tracks[i].Points = append(tracks[i].Points, newTCXTrackpoint(mp))
		}
		for i, tr := range tracks {
			if len(tr.Points) > 0 {
				laps[i].Tracks = append(laps[i].Tracks, tr)
			}
		}
	}

	return tcxDatabase{
		XmlnsNS3:       activityNS,
		XmlnsXSI:       xsiNS,
		SchemaLocation: strings.Join([]string{tcxNS, tcxXSD, activityNS, activityXSD}, " "),
		Activities: tcxActivities{Activity: tcxActivity{
			Sport: "Biking",
			ID:    formatTimestamp(r.Timestamp),
			Laps:  laps,
		}},
	}
}

// WriteTCX writes r as a Training Center activity. Each lap carries the
// merged points recorded during it; a ride without laps is one lap.
func WriteTCX(w io.Writer, r *Ride, pretty bool) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if pretty {
		enc.Indent("", " ")
	}
	if err := enc.Encode(newTCXDatabase(r)); err != nil {
		return err
	}
	return enc.Flush()
}
