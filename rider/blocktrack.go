package rider

import (
	"fmt"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

// blockLayout places the areas of a block-based generation on the device.
// Record offsets stored in the history are relative to these bases.
type blockLayout struct {
	trackpoints int64
	logpoints   int64
	summaries   int64

	track trackLayout
	log   logLayout
	check crossCheck

	// lapStride is the distance between consecutive lap records. Zero
	// means the generation's lap records are not read.
	lapStride  int
	synthesize bool
}

// blockTrack decodes one ride stored on a block device.
type blockTrack struct {
	dev    *BlockDevice
	layout *blockLayout
	ctx    decodeContext

	offTrackpoints uint32
	offSummary     uint32
	offLaps        uint32
	lapCount       int
}

var _ track.Decoder = (*blockTrack)(nil)

func (b *blockTrack) Trackpoints() ([]track.TrackSegment, error) {
	c, err := b.dev.Cursor(b.layout.trackpoints + int64(b.offTrackpoints))
	if err != nil {
		return nil, err
	}
	return b.layout.track.readSegments(c, b.layout.trackpoints, b.ctx)
}

func (b *blockTrack) Logpoints(trackpoints []track.TrackSegment) ([]track.LogSegment, error) {
	var c *buffer.Cursor
	segs := make([]track.LogSegment, 0, len(trackpoints))
	for i, tseg := range trackpoints {
		offset := b.layout.logpoints + int64(tseg.LogOffset)
		if c == nil || c.Offset() != offset {
			if c != nil {
				b.ctx.warn(track.WarnUnexpectedOffset, "unexpected logpoint offset 0x%x (at 0x%x)", offset, c.Offset())
			}
			var err error
			if c, err = b.dev.Cursor(offset); err != nil {
				return nil, err
			}
		}
		lseg, _, err := b.layout.log.readSegment(c, b.ctx)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if err := b.layout.check.apply(b.ctx, i, tseg, lseg); err != nil {
			return nil, err
		}
		segs = append(segs, lseg)
	}
	return segs, nil
}

func (b *blockTrack) Summaries(t *track.Track) (track.Summary, []track.Summary, error) {
	var c *buffer.Cursor
	var laps []track.Summary
	var err error
	if b.lapCount > 0 && b.layout.lapStride > 0 {
		if c, err = b.dev.Cursor(b.layout.summaries + int64(b.offLaps)); err != nil {
			return track.Summary{}, nil, err
		}
		if laps, err = readBinaryLaps(c, b.lapCount, b.layout.lapStride); err != nil {
			return track.Summary{}, nil, err
		}
	}

	offset := b.layout.summaries + int64(b.offSummary)
	if c == nil || c.Offset() != offset {
		if c != nil {
			b.ctx.warn(track.WarnUnexpectedOffset, "unexpected summary offset 0x%x (at 0x%x)", offset, c.Offset())
		}
		if c, err = b.dev.Cursor(offset); err != nil {
			return track.Summary{}, nil, err
		}
	}
	summary, err := readBinarySummary(c)
	if err != nil {
		return track.Summary{}, nil, err
	}

	if b.layout.synthesize && len(laps) > 0 {
		merged, err := t.MergedSegments(false)
		if err != nil {
			return track.Summary{}, nil, err
		}
		laps = track.SynthesizeTrailingLap(summary, laps, merged)
	}
	return summary, laps, nil
}

func (b *blockTrack) StorageUsage(t *track.Track) (track.StorageUsage, error) {
	return segmentUsage(t)
}

// segmentUsage accounts the decoded segments of t.
func segmentUsage(t *track.Track) (track.StorageUsage, error) {
	tps, err := t.Trackpoints()
	if err != nil {
		return track.StorageUsage{}, err
	}
	lps, err := t.Logpoints()
	if err != nil {
		return track.StorageUsage{}, err
	}
	return track.SegmentStorage(tps, lps), nil
}
