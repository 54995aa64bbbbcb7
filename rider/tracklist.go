package rider

import (
	"fmt"

	"github.com/lucasjlepore/bryton-gps/track"
)

// tracklist is the fixed-size ride table of generations 20 and 35.
type tracklist struct {
	offset int64
	// skip is the size of the table header after the count field
	skip int
	// skipPlanned drops entries whose timestamp marks a planned trip
	skipPlanned bool
}

const (
	tracklistEntrySize = 156
	tracklistNameLen   = 16
)

func (l tracklist) read(dev *BlockDevice, layout *blockLayout, ctx decodeContext) ([]*track.Track, error) {
	c, err := dev.Cursor(l.offset)
	if err != nil {
		return nil, err
	}
	count := int(c.Uint16(0x08))
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("tracklist: %w", err)
	}
	c.Advance(l.skip)

	tracks := make([]*track.Track, 0, count)
	for i := 0; i < count; i++ {
		ts := c.Uint32(0x00)
		if l.skipPlanned && ts == plannedTrip {
			c.Advance(tracklistEntrySize)
			continue
		}
		bt := &blockTrack{
			dev:            dev,
			layout:         layout,
			ctx:            ctx,
			offTrackpoints: c.Uint32(0x88),
			offSummary:     c.Uint32(0x8c),
			lapCount:       int(c.Uint8(0x94)),
		}
		if bt.lapCount > 0 {
			bt.offLaps = c.Uint32(0x90)
		}
		name := c.String(0x04, tracklistNameLen)
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("tracklist entry %d: %w", i, err)
		}
		tracks = append(tracks, track.New(name, int64(ts), bt.lapCount, bt))
		c.Advance(tracklistEntrySize)
	}
	return tracks, nil
}
