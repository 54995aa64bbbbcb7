package rider

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/tormoder/fit"

	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	summaryDir310 = "System/History/Summary"
	deviceTxt310  = "System/device.txt"
	nameLayout310 = "2006-01-02 15:04:05"
)

// activity holds the FIT messages used by generation 310. Summary files
// may be encoded as activity or activity summary files.
type activity struct {
	sessions []*fit.SessionMsg
	laps     []*fit.LapMsg
	records  []*fit.RecordMsg
}

func decodeFIT(data []byte) (activity, error) {
	f, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return activity{}, err
	}
	switch f.Type() {
	case fit.FileTypeActivitySummary:
		s, err := f.ActivitySummary()
		if err != nil {
			return activity{}, err
		}
		return activity{sessions: s.Sessions, laps: s.Laps}, nil
	default:
		a, err := f.Activity()
		if err != nil {
			return activity{}, err
		}
		return activity{sessions: a.Sessions, laps: a.Laps, records: a.Records}, nil
	}
}

// Rider310 reads generation 310 devices, which store FIT files.
type Rider310 struct {
	fs *Filesystem
}

var _ Device = (*Rider310)(nil)

func NewRider310(fs *Filesystem) *Rider310 {
	return &Rider310{fs: fs}
}

func (r *Rider310) Generation() Generation { return Generation310 }

func (r *Rider310) ReadSerial() (string, error) { return r.fs.readUUID(deviceTxt310) }

func (r *Rider310) ReadStorageUsage() (DeviceStorage, error) { return r.fs.Usage() }

func (r *Rider310) ReadHistory(diag track.Diagnostics) ([]*track.Track, error) {
	files, err := r.fs.ListDir(summaryDir310)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	ctx := newDecodeContext(Generation310, diag)

	var tracks []*track.Track
	for _, f := range files {
		if !strings.HasSuffix(f, ".sum") {
			continue
		}
		data, err := r.fs.ReadFile(f)
		if err != nil {
			return nil, err
		}
		a, err := decodeFIT(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if len(a.sessions) == 0 {
			ctx.warn(track.WarnUntestedFormat, "%s has no session message", f)
			continue
		}
		s := a.sessions[0]
		start := s.StartTime.UTC()
		id := strings.TrimSuffix(path.Base(f), path.Ext(f))
		t := &track310{fs: r.fs, id: id}
		tracks = append(tracks, track.New(start.Format(nameLayout310), start.Unix(), int(s.NumLaps), t))
	}
	return tracks, nil
}

type track310 struct {
	fs *Filesystem
	id string

	data track.Lazy[activity]
}

func (t *track310) fitFile() string { return t.id + ".fit" }

func (t *track310) activity() (activity, error) {
	return t.data.Get(func() (activity, error) {
		data, err := t.fs.ReadFile(t.fitFile())
		if err != nil {
			return activity{}, err
		}
		a, err := decodeFIT(data)
		if err != nil {
			return activity{}, fmt.Errorf("%s: %w", t.fitFile(), err)
		}
		return a, nil
	})
}

// Trackpoints returns the whole ride as one segment. Logpoints does the
// same for sensor records.
func (t *track310) Trackpoints() ([]track.TrackSegment, error) {
	a, err := t.activity()
	if err != nil {
		return nil, err
	}
	seg := track.TrackSegment{Type: track.SegmentLast}
	for _, rec := range a.records {
		if rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
			continue
		}
		seg.Points = append(seg.Points, track.TrackPoint{
			Timestamp: rec.Timestamp.Unix(),
			Latitude:  rec.PositionLat.Degrees(),
			Longitude: rec.PositionLong.Degrees(),
			Elevation: fitAltitude(rec.Altitude),
		})
	}
	if len(seg.Points) > 0 {
		seg.Timestamp = seg.Points[0].Timestamp
	}
	return []track.TrackSegment{seg}, nil
}

func (t *track310) Logpoints([]track.TrackSegment) ([]track.LogSegment, error) {
	a, err := t.activity()
	if err != nil {
		return nil, err
	}
	seg := track.LogSegment{Type: track.SegmentLast}
	for _, rec := range a.records {
		if rec.Speed == 0xffff {
			continue
		}
		lp := track.LogPoint{
			Timestamp: rec.Timestamp.Unix(),
			Speed:     floatPtr(float64(rec.Speed) / 1000 * 3.6),
		}
		if rec.Temperature != 0x7f {
			lp.Temperature = floatPtr(float64(rec.Temperature))
		}
		if rec.Power != 0xffff {
			lp.Watts = intPtr(int(rec.Power))
		}
		lp.Cadence = optionalByte(rec.Cadence)
		lp.Heartrate = optionalByte(rec.HeartRate)
		seg.Points = append(seg.Points, lp)
	}
	if len(seg.Points) > 0 {
		seg.Timestamp = seg.Points[0].Timestamp
	}
	return []track.LogSegment{seg}, nil
}

func (t *track310) Summaries(*track.Track) (track.Summary, []track.Summary, error) {
	file := path.Join(summaryDir310, t.id+".sum")
	data, err := t.fs.ReadFile(file)
	if err != nil {
		return track.Summary{}, nil, err
	}
	a, err := decodeFIT(data)
	if err != nil {
		return track.Summary{}, nil, fmt.Errorf("%s: %w", file, err)
	}
	if len(a.sessions) == 0 {
		return track.Summary{}, nil, fmt.Errorf("%s: no session", file)
	}
	laps := make([]track.Summary, 0, len(a.laps))
	for _, l := range a.laps {
		laps = append(laps, lapSummary(l))
	}
	return sessionSummary(a.sessions[0]), laps, nil
}

// StorageUsage splits the size of the FIT file evenly, the file does not
// separate GPS from sensor data.
func (t *track310) StorageUsage(*track.Track) (track.StorageUsage, error) {
	size, err := t.fs.Size(t.fitFile())
	if err != nil {
		return track.StorageUsage{}, err
	}
	return track.StorageUsage{Trackpoints: size / 2, Logpoints: size / 2}, nil
}

func fitAltitude(raw uint16) float64 {
	if raw == 0xffff {
		return 0
	}
	return float64(raw)/5 - 500
}

func fitSpeed(raw uint16) float64 {
	if raw == 0xffff {
		return 0
	}
	return float64(raw) / 1000 * 3.6
}

func fitSeconds(raw uint32) float64 {
	if raw == 0xffffffff {
		return 0
	}
	return float64(raw) / 1000
}

func fitDistance(raw uint32) float64 {
	if raw == 0xffffffff {
		return 0
	}
	return float64(raw) / 100
}

func fitUint16(raw uint16) float64 {
	if raw == 0xffff {
		return 0
	}
	return float64(raw)
}

// fitAvgMax is nil when the sensor was not recorded.
func fitAvgMax(avg, peak, invalid uint) *track.AvgMax {
	if avg == invalid {
		return nil
	}
	m := float64(peak)
	if peak == invalid {
		m = 0
	}
	return &track.AvgMax{Avg: float64(avg), Max: m}
}

func sessionSummary(s *fit.SessionMsg) track.Summary {
	start := s.StartTime.Unix()
	return track.Summary{
		Start:        start,
		End:          start + int64(fitSeconds(s.TotalElapsedTime)),
		Distance:     fitDistance(s.TotalDistance),
		Speed:        track.AvgMax{Avg: fitSpeed(s.AvgSpeed), Max: fitSpeed(s.MaxSpeed)},
		Heartrate:    fitAvgMax(uint(s.AvgHeartRate), uint(s.MaxHeartRate), 0xff),
		Cadence:      fitAvgMax(uint(s.AvgCadence), uint(s.MaxCadence), 0xff),
		Watts:        fitAvgMax(uint(s.AvgPower), uint(s.MaxPower), 0xffff),
		AltitudeGain: fitUint16(s.TotalAscent),
		AltitudeLoss: fitUint16(s.TotalDescent),
		Calories:     int(fitUint16(s.TotalCalories)),
		RideTime:     int64(fitSeconds(s.TotalMovingTime)),
	}
}

func lapSummary(l *fit.LapMsg) track.Summary {
	start := l.StartTime.Unix()
	return track.Summary{
		Start:        start,
		End:          start + int64(fitSeconds(l.TotalElapsedTime)),
		Distance:     fitDistance(l.TotalDistance),
		Speed:        track.AvgMax{Avg: fitSpeed(l.AvgSpeed), Max: fitSpeed(l.MaxSpeed)},
		Heartrate:    fitAvgMax(uint(l.AvgHeartRate), uint(l.MaxHeartRate), 0xff),
		Cadence:      fitAvgMax(uint(l.AvgCadence), uint(l.MaxCadence), 0xff),
		Watts:        fitAvgMax(uint(l.AvgPower), uint(l.MaxPower), 0xffff),
		AltitudeGain: fitUint16(l.TotalAscent),
		AltitudeLoss: fitUint16(l.TotalDescent),
		Calories:     int(fitUint16(l.TotalCalories)),
		RideTime:     int64(fitSeconds(l.TotalMovingTime)),
	}
}
