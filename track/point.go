// Package track holds the normalized ride model shared by every device
// generation: points, segments, summaries, the merged point stream and the
// lazily decoded Track aggregate.
package track

import "fmt"

// TrackPoint is one GPS sample.
type TrackPoint struct {
	Timestamp int64   `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// LogPoint is one sensor sample. A nil field means the sensor was not
// present, which is different from a zero reading.
type LogPoint struct {
	Timestamp   int64    `json:"timestamp"`
	Speed       *float64 `json:"speed,omitempty"`
	Watts       *int     `json:"watts,omitempty"`
	Cadence     *int     `json:"cadence,omitempty"`
	Heartrate   *int     `json:"heartrate,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Airpressure *float64 `json:"airpressure,omitempty"`
}

// SegmentType classifies a run of points.
type SegmentType int

const (
	SegmentBeforeMoving SegmentType = iota
	SegmentBeforeAutoPause
	SegmentBeforeManualPause
	SegmentLast
)

func (t SegmentType) String() string {
	switch t {
	case SegmentBeforeMoving:
		return "before-moving"
	case SegmentBeforeAutoPause:
		return "before-auto-pause"
	case SegmentBeforeManualPause:
		return "before-manual-pause"
	case SegmentLast:
		return "last"
	}
	return fmt.Sprintf("segment(%d)", int(t))
}

// SegmentTags maps raw header tags to segment types. The index of a tag is
// its SegmentType.
type SegmentTags [4]uint8

// Lookup returns the segment type encoded by raw.
func (tags SegmentTags) Lookup(raw uint8) (SegmentType, bool) {
	for i, tag := range tags {
		if tag == raw {
			return SegmentType(i), true
		}
	}
	return 0, false
}

// TrackSegment is a run of GPS points. Points includes the absolute header
// point, so a segment declaring n deltas holds n+1 points.
type TrackSegment struct {
	Type      SegmentType  `json:"type"`
	Timestamp int64        `json:"timestamp"`
	Points    []TrackPoint `json:"points"`
	PointSize int          `json:"-"`
	LogOffset uint32       `json:"-"`
}

// LogSegment is a run of sensor points.
type LogSegment struct {
	Type      SegmentType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Points    []LogPoint  `json:"points"`
	PointSize int         `json:"-"`
}

// AvgMax is an average/maximum pair.
type AvgMax struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// Summary aggregates a ride or a lap.
type Summary struct {
	Start        int64   `json:"start"`
	End          int64   `json:"end"`
	Distance     float64 `json:"distance"`
	Calories     int     `json:"calories"`
	AltitudeGain float64 `json:"altitude_gain"`
	AltitudeLoss float64 `json:"altitude_loss"`
	RideTime     int64   `json:"ride_time"`
	Speed        AvgMax  `json:"speed"`
	Heartrate    *AvgMax `json:"heartrate,omitempty"`
	Cadence      *AvgMax `json:"cadence,omitempty"`
	Watts        *AvgMax `json:"watts,omitempty"`
}

// MergedPoint pairs at most one GPS point with at most one sensor point.
type MergedPoint struct {
	Track *TrackPoint
	Log   *LogPoint
}

// Timestamp of the GPS slot when present, otherwise of the log slot.
func (m MergedPoint) Timestamp() int64 {
	if m.Track != nil {
		return m.Track.Timestamp
	}
	return m.Log.Timestamp
}

// StorageUsage is the number of bytes a ride occupies on the device.
type StorageUsage struct {
	Trackpoints int64 `json:"trackpoints"`
	Logpoints   int64 `json:"logpoints"`
}

// Header sizes used when accounting segment storage.
const (
	TrackSegmentHeaderSize = 40
	LogSegmentHeaderSize   = 16
)

// SegmentStorage sums header and point bytes over all segments.
func SegmentStorage(trackpoints []TrackSegment, logpoints []LogSegment) StorageUsage {
	var u StorageUsage
	for _, seg := range trackpoints {
		u.Trackpoints += TrackSegmentHeaderSize + int64(seg.PointSize*len(seg.Points))
	}
	for _, seg := range logpoints {
		u.Logpoints += LogSegmentHeaderSize + int64(seg.PointSize*len(seg.Points))
	}
	return u
}
