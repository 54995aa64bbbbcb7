package rider

import (
	"fmt"
	"slices"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	// endOfChain terminates a linked list of segments.
	endOfChain = 0xffffffff
	// maxSegmentDrift is the gap between segments that is skipped without
	// a warning. Devices sometimes write one point more than they count.
	maxSegmentDrift = 6
	maxSegments     = 1 << 16
)

// segmentTypeFunc validates a raw segment type tag.
type segmentTypeFunc func(raw uint8) (track.SegmentType, bool)

// tagTable accepts the tags of tags as is.
func tagTable(tags track.SegmentTags) segmentTypeFunc {
	return tags.Lookup
}

// shiftedTagTable accepts tags stored with one of several bias values.
func shiftedTagTable(tags track.SegmentTags, biases ...uint8) segmentTypeFunc {
	return func(raw uint8) (track.SegmentType, bool) {
		for _, b := range biases {
			if raw < b {
				continue
			}
			if t, ok := tags.Lookup(raw - b); ok {
				return t, true
			}
		}
		return 0, false
	}
}

var (
	trackTags = track.SegmentTags{0, 1, 2, 3}
	logTags   = track.SegmentTags{0x02, 0x06, 0x0A, 0x0E}
)

type trackHeader struct {
	timestamp int64
	rawType   uint8
	segType   track.SegmentType
	origin    trackOrigin
	count     uint32
	logOffset uint32
	next      uint32
	format    uint16
}

// trackLayout describes the trackpoint segments of one generation.
type trackLayout struct {
	headerSize  int
	pointSize   int
	segmentType segmentTypeFunc
	formats     map[uint16]trackFormat
	// emptyFormats lists the tags valid on segments without points; nil
	// accepts any tag.
	emptyFormats []uint16
	// decodeOrigin decodes the header point of a segment without deltas
	// when its longitude is set.
	decodeOrigin     bool
	hasLogOffset     bool
	warnMovingPoints bool
	smoothElevation  bool
	stopOnLast       bool
	// strictOffsets makes any gap between segments fatal.
	strictOffsets bool
}

func (l *trackLayout) decodeSegmentHeader(c *buffer.Cursor, ctx decodeContext) (trackHeader, error) {
	h := trackHeader{
		timestamp: int64(c.Uint32(0x00)),
		rawType:   c.Uint8(0x1A),
		origin: trackOrigin{
			lon:       c.Int32(0x04),
			lat:       c.Int32(0x08),
			elevation: float64(int(c.Uint16(0x14))-4000) / 4.0,
		},
		count:  c.Uint32(0x20),
		next:   c.Uint32(0x1C),
		format: c.Uint16(0x18),
	}
	if l.hasLogOffset {
		h.logOffset = c.Uint32(0x24)
	}
	h.origin.timestamp = h.timestamp
	if err := c.Err(); err != nil {
		return h, fmt.Errorf("trackpoint segment header: %w", err)
	}
	st, ok := l.segmentType(h.rawType)
	if !ok {
		return h, ctx.formatError("trackpoint segment type", track.ErrUnknownSegmentType, uint64(h.rawType))
	}
	h.segType = st
	return h, nil
}

// decodePointFormat returns the point layout for h, or ok=false when the
// segment carries no points.
func (l *trackLayout) decodePointFormat(h trackHeader, ctx decodeContext) (f trackFormat, ok bool, err error) {
	if h.count > 0 || (l.decodeOrigin && h.origin.lon != -1) {
		format, found := l.formats[h.format]
		if !found {
			return f, false, ctx.formatError("trackpoint format", track.ErrUnknownFormat, uint64(h.format))
		}
		return format, true, nil
	}
	if l.emptyFormats != nil && !slices.Contains(l.emptyFormats, h.format) {
		return f, false, ctx.formatError("empty trackpoint segment format", track.ErrUnknownFormat, uint64(h.format))
	}
	return f, false, nil
}

func (l *trackLayout) readSegment(c *buffer.Cursor, ctx decodeContext) (track.TrackSegment, trackHeader, error) {
	h, err := l.decodeSegmentHeader(c, ctx)
	if err != nil {
		return track.TrackSegment{}, h, err
	}
	if l.warnMovingPoints && h.segType == track.SegmentBeforeMoving && h.count > 0 {
		ctx.warn(track.WarnUnexpectedPoints, "segment type %s is not expected to have trackpoints (%d)", h.segType, h.count)
	}
	seg := track.TrackSegment{
		Type:      h.segType,
		Timestamp: h.timestamp,
		PointSize: l.pointSize,
		LogOffset: h.logOffset,
	}
	f, ok, err := l.decodePointFormat(h, ctx)
	if err != nil {
		return seg, h, err
	}
	c.Advance(l.headerSize)
	if ok {
		seg.Points = f.decode(c, h.origin, int(h.count))
		if err := c.Err(); err != nil {
			return seg, h, fmt.Errorf("trackpoints: %w", err)
		}
		if l.smoothElevation {
			smoothElevation(seg.Points)
		}
	}
	return seg, h, nil
}

// readSegments follows the chain of segments starting at the cursor. Next
// offsets are relative to base.
func (l *trackLayout) readSegments(c *buffer.Cursor, base int64, ctx decodeContext) ([]track.TrackSegment, error) {
	var segs []track.TrackSegment
	for {
		if len(segs) >= maxSegments {
			return nil, fmt.Errorf("more than %d trackpoint segments", maxSegments)
		}
		seg, h, err := l.readSegment(c, ctx)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)

		if (l.stopOnLast && seg.Type == track.SegmentLast) || h.next == endOfChain {
			return segs, nil
		}
		next := base + int64(h.next)
		diff := next - c.Offset()
		if diff == 0 {
			continue
		}
		if l.strictOffsets {
			return nil, ctx.formatError("trackpoint segment offset", track.ErrOffsetMismatch, uint64(h.next))
		}
		if diff > maxSegmentDrift {
			ctx.warn(track.WarnOffsetDrift, "bigger than expected diff between segment offsets (%d bytes)", diff)
		}
		if diff < 0 {
			ctx.warn(track.WarnOffsetDrift, "unexpected negative diff between segment offsets (%d bytes)", diff)
		}
		c.Advance(int(diff))
	}
}

// logHeaderSize is the size of every binary logpoint segment header.
const logHeaderSize = 0x10

type logHeader struct {
	timestamp int64
	next      uint32
	format    uint16
	count     uint16
	rawType   uint8
}

// logLayout describes the logpoint segments of one generation.
type logLayout struct {
	segmentType segmentTypeFunc
	formats     map[uint16]logFormat
	// pointSize of segments without points
	pointSize int
}

func (l *logLayout) readSegment(c *buffer.Cursor, ctx decodeContext) (track.LogSegment, logHeader, error) {
	h := logHeader{
		timestamp: int64(c.Uint32(0x00)),
		next:      c.Uint32(0x04),
		format:    c.Uint16(0x08),
		count:     c.Uint16(0x0A),
		rawType:   c.Uint8(0x0C),
	}
	if err := c.Err(); err != nil {
		return track.LogSegment{}, h, fmt.Errorf("logpoint segment header: %w", err)
	}
	st, ok := l.segmentType(h.rawType)
	if !ok {
		return track.LogSegment{}, h, ctx.formatError("logpoint segment type", track.ErrUnknownSegmentType, uint64(h.rawType))
	}
	seg := track.LogSegment{Type: st, Timestamp: h.timestamp, PointSize: l.pointSize}
	c.Advance(logHeaderSize)
	if h.count == 0 {
		return seg, h, nil
	}
	f, found := l.formats[h.format]
	if !found {
		return seg, h, ctx.formatError("logpoint format", track.ErrUnknownFormat, uint64(h.format))
	}
	points, err := f.decode(c, ctx, h.timestamp, int(h.count))
	if err != nil {
		return seg, h, fmt.Errorf("logpoints: %w", err)
	}
	seg.Points = points
	seg.PointSize = f.size
	return seg, h, nil
}

// crossCheck is how a generation treats a log segment whose type differs
// from its paired track segment.
type crossCheck int

const (
	crossCheckWarn crossCheck = iota
	crossCheckFatal
)

func (cc crossCheck) apply(ctx decodeContext, index int, tseg track.TrackSegment, lseg track.LogSegment) error {
	if tseg.Type == lseg.Type {
		return nil
	}
	if cc == crossCheckFatal {
		return ctx.formatError(fmt.Sprintf("logpoint segment %d type", index), track.ErrSegmentMismatch, uint64(lseg.Type))
	}
	ctx.warn(track.WarnSegmentMismatch, "logpoint segment %d is %s, trackpoint segment is %s", index, lseg.Type, tseg.Type)
	return nil
}
