package rider

import (
	"fmt"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

// sensorByte maps the "no sensor" marker of a summary field to zero.
func sensorByte(v uint8) float64 {
	if v == 0xff {
		return 0
	}
	return float64(v)
}

// readBinarySummary decodes the 32 byte summary record at the cursor
// without moving it.
func readBinarySummary(c *buffer.Cursor) (track.Summary, error) {
	s := track.Summary{
		Start:    int64(c.Uint32(0x00)),
		End:      int64(c.Uint32(0x04)),
		Distance: float64(c.Uint32(0x08)),
		Speed: track.AvgMax{
			Avg: speedKmh(c.Uint8(0x0c)),
			Max: speedKmh(c.Uint8(0x0d)),
		},
		Heartrate: &track.AvgMax{
			Avg: sensorByte(c.Uint8(0x0e)),
			Max: sensorByte(c.Uint8(0x0f)),
		},
		Cadence: &track.AvgMax{
			Avg: sensorByte(c.Uint8(0x10)),
			Max: sensorByte(c.Uint8(0x11)),
		},
		AltitudeGain: float64(c.Uint16(0x16)),
		AltitudeLoss: float64(c.Uint16(0x18)),
		Calories:     int(c.Uint16(0x1a)),
		RideTime:     int64(c.Uint32(0x1c)),
	}
	if err := c.Err(); err != nil {
		return track.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return s, nil
}

// readBinaryLaps reads count summaries spaced stride bytes apart and leaves
// the cursor after the last one.
func readBinaryLaps(c *buffer.Cursor, count, stride int) ([]track.Summary, error) {
	laps := make([]track.Summary, 0, count)
	for i := 0; i < count; i++ {
		lap, err := readBinarySummary(c)
		if err != nil {
			return nil, fmt.Errorf("lap %d: %w", i, err)
		}
		laps = append(laps, lap)
		c.Advance(stride)
	}
	return laps, nil
}
