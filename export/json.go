package export

import (
	"encoding/json"
	"io"

	"github.com/lucasjlepore/bryton-gps/track"
)

type jsonAvgMax struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

type jsonSummary struct {
	Start        string      `json:"start"`
	End          string      `json:"end"`
	Distance     float64     `json:"distance"`
	Calories     int         `json:"calories"`
	RideTime     int64       `json:"ride_time"`
	AltitudeGain float64     `json:"altitude_gain"`
	AltitudeLoss float64     `json:"altitude_loss"`
	Speed        jsonAvgMax  `json:"speed"`
	Heartrate    *jsonAvgMax `json:"heartrate,omitempty"`
	Cadence      *jsonAvgMax `json:"cadence,omitempty"`
	Watts        *jsonAvgMax `json:"watts,omitempty"`
}

type jsonTrackpoint struct {
	Timestamp string  `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

type jsonLogpoint struct {
	Timestamp   string   `json:"timestamp"`
	Speed       *float64 `json:"speed,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Airpressure *float64 `json:"airpressure,omitempty"`
	Cadence     *int     `json:"cadence,omitempty"`
	Heartrate   *int     `json:"heartrate,omitempty"`
	Watts       *int     `json:"watts,omitempty"`
}

type jsonDocument struct {
	Name        string             `json:"name"`
	Timestamp   string             `json:"timestamp"`
	Trackpoints [][]jsonTrackpoint `json:"trackpoints"`
	Logpoints   [][]jsonLogpoint   `json:"logpoints"`
	Laps        []jsonSummary      `json:"laps"`
	Summary     jsonSummary        `json:"summary"`
}

// sensorAvgMax drops sensors that never reported a value.
func sensorAvgMax(v *track.AvgMax) *jsonAvgMax {
	if v == nil || v.Max <= 0 {
		return nil
	}
	return &jsonAvgMax{Avg: v.Avg, Max: v.Max}
}

func newJSONSummary(s track.Summary) jsonSummary {
	return jsonSummary{
		Start:        formatTimestamp(s.Start),
		End:          formatTimestamp(s.End),
		Distance:     s.Distance,
		Calories:     s.Calories,
		RideTime:     s.RideTime,
		AltitudeGain: s.AltitudeGain,
		AltitudeLoss: s.AltitudeLoss,
		Speed:        jsonAvgMax{Avg: s.Speed.Avg, Max: s.Speed.Max},
		Heartrate:    sensorAvgMax(s.Heartrate),
		Cadence:      sensorAvgMax(s.Cadence),
		Watts:        sensorAvgMax(s.Watts),
	}
}

func newJSONDocument(r *Ride) jsonDocument {
	doc := jsonDocument{
		Name:        r.Name,
		Timestamp:   formatTimestamp(r.Timestamp),
		Trackpoints: make([][]jsonTrackpoint, 0, len(r.Trackpoints)),
		Logpoints:   make([][]jsonLogpoint, 0, len(r.Logpoints)),
		Laps:        make([]jsonSummary, 0, len(r.Laps)),
		Summary:     newJSONSummary(r.Summary),
	}
	for _, seg := range r.Trackpoints {
		points := make([]jsonTrackpoint, 0, len(seg.Points))
		for _, p := range seg.Points {
			points = append(points, jsonTrackpoint{
				Timestamp: formatTimestamp(p.Timestamp),
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
				Elevation: p.Elevation,
			})
		}
		doc.Trackpoints = append(doc.Trackpoints, points)
	}
	for _, seg := range r.Logpoints {
		points := make([]jsonLogpoint, 0, len(seg.Points))
		for _, p := range seg.Points {
			points = append(points, jsonLogpoint{
				Timestamp:   formatTimestamp(p.Timestamp),
				Speed:       p.Speed,
				Temperature: p.Temperature,
				Airpressure: p.Airpressure,
				Cadence:     p.Cadence,
				Heartrate:   p.Heartrate,
				Watts:       p.Watts,
			})
		}
		doc.Logpoints = append(doc.Logpoints, points)
	}
	for _, lap := range r.Laps {
		doc.Laps = append(doc.Laps, newJSONSummary(lap))
	}
	return doc
}

// WriteJSON writes r as a single JSON document.
func WriteJSON(w io.Writer, r *Ride, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", " ")
	}
	return enc.Encode(newJSONDocument(r))
}
