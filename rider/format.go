package rider

import (
	"math"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

// none marks a field a record layout does not carry.
const none = -1

// timeUnit converts the raw time delta of a point to seconds.
type timeUnit int

const (
	timeSeconds timeUnit = iota
	timeFourSeconds
	// quarter second ticks, each delta truncated to whole seconds
	timeQuarterSeconds
)

func (u timeUnit) seconds(raw uint8) int64 {
	switch u {
	case timeFourSeconds:
		return int64(raw) * 4
	case timeQuarterSeconds:
		return int64(raw) / 4
	}
	return int64(raw)
}

// elevationCoding describes how the elevation byte of a point is applied.
type elevationCoding int

const (
	// ele += int8 / 10
	elevationDelta elevationCoding = iota
	// ele += int8 / 10 truncated toward zero
	elevationDeltaWhole
	// ele = (int8 - 10) * 10, keeping the previous value for 0 and -1
	elevationSteps
)

// trackFormat is the layout of one delta-encoded trackpoint record.
type trackFormat struct {
	size      int
	lon       int
	lat       int
	ele       int
	time      int
	unit      timeUnit
	elevation elevationCoding
}

// trackOrigin is the absolute point stored in a segment header.
type trackOrigin struct {
	timestamp int64
	lon, lat  int32
	elevation float64
}

func newTrackPoint(ts, lon, lat int64, ele float64) track.TrackPoint {
	return track.TrackPoint{
		Timestamp: ts,
		Longitude: float64(lon) / 1000000.0,
		Latitude:  float64(lat) / 1000000.0,
		Elevation: ele,
	}
}

// decode reads count delta records after the origin. The origin itself is
// the first returned point.
func (f trackFormat) decode(c *buffer.Cursor, o trackOrigin, count int) []track.TrackPoint {
	ts, lon, lat, ele := o.timestamp, int64(o.lon), int64(o.lat), o.elevation
	points := make([]track.TrackPoint, 0, min(count, 1<<16)+1)
	points = append(points, newTrackPoint(ts, lon, lat, ele))

	for i := 0; i < count && c.Err() == nil; i++ {
		ts += f.unit.seconds(c.Uint8(f.time))
		switch f.elevation {
		case elevationDelta:
			ele += float64(c.Int8(f.ele)) / 10.0
		case elevationDeltaWhole:
			ele += math.Trunc(float64(c.Int8(f.ele)) / 10.0)
		case elevationSteps:
			if v := int(c.Int8(f.ele)); v != -1 && v != 0 {
				ele = float64(v-10) * 10.0
			}
		}
		lon += int64(c.Int16(f.lon))
		lat += int64(c.Int16(f.lat))

		points = append(points, newTrackPoint(ts, lon, lat, ele))
		c.Advance(f.size)
	}
	return points
}

const smoothingWindow = 30

// smoothElevation replaces each elevation with the mean of the last
// smoothingWindow raw elevations, fewer at the start of the segment.
func smoothElevation(points []track.TrackPoint) {
	raw := make([]float64, len(points))
	for i := range points {
		raw[i] = points[i].Elevation
	}
	var sum float64
	for i := range points {
		lo := max(0, i-smoothingWindow+1)
		sum = 0
		for _, v := range raw[lo : i+1] {
			sum += v
		}
		points[i].Elevation = sum / float64(i+1-lo)
	}
}

// speedCoding describes the sentinel handling of the 8-bit speed field.
type speedCoding int

const (
	speedNoSentinel speedCoding = iota
	speedFFZero
	speedFFAbsent
)

// speedKmh converts the raw 1/8 m/s speed byte.
func speedKmh(raw uint8) float64 {
	return float64(raw) / 8.0 * 60 * 60 / 1000
}

func (s speedCoding) decode(raw uint8) *float64 {
	if raw == 0xff {
		switch s {
		case speedFFZero:
			return floatPtr(0)
		case speedFFAbsent:
			return nil
		}
	}
	return floatPtr(speedKmh(raw))
}

// logFormat is the layout of one sensor record. Offsets set to none are
// not present in the record.
type logFormat struct {
	size        int
	speed       speedCoding
	cadence     int
	heartrate   int
	temperature int
	airpressure int
	// reserved is a byte that must read 0xff
	reserved int
}

// logInterval is the spacing of sensor records in seconds.
const logInterval = 4

func (f logFormat) decode(c *buffer.Cursor, ctx decodeContext, ts int64, count int) ([]track.LogPoint, error) {
	points := make([]track.LogPoint, 0, min(count, 1<<16))
	for i := 0; i < count && c.Err() == nil; i++ {
		lp := track.LogPoint{
			Timestamp: ts,
			Speed:     f.speed.decode(c.Uint8(0)),
		}
		if f.temperature != none {
			lp.Temperature = floatPtr(float64(c.Int16(f.temperature)) / 10.0)
		}
		if f.airpressure != none {
			lp.Airpressure = floatPtr(float64(c.Uint16(f.airpressure)) * 2.0)
		}
		if f.cadence != none {
			lp.Cadence = optionalByte(c.Uint8(f.cadence))
		}
		if f.heartrate != none {
			lp.Heartrate = optionalByte(c.Uint8(f.heartrate))
		}
		if f.reserved != none {
			if v := c.Uint8(f.reserved); v != 0xff && c.Err() == nil {
				return nil, ctx.formatError("logpoint", track.ErrUnexpectedValue, uint64(v))
			}
		}
		points = append(points, lp)
		ts += logInterval
		c.Advance(f.size)
	}
	return points, c.Err()
}

func optionalByte(v uint8) *int {
	if v == 0xff {
		return nil
	}
	return intPtr(int(v))
}

func floatPtr(v float64) *float64 {
	out := v
	return &out
}

func intPtr(v int) *int {
	out := v
	return &out
}
