package rider

import (
	"errors"
	"fmt"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	logEntrySize = 256
	// logEntryArea is the end of the log entry journal at the start of the
	// device.
	logEntryArea = 0x6000
)

// area is one storage area described by a log entry.
type area struct {
	left, start, end uint32
}

func (a area) usage(name string) AreaUsage {
	used := int64(a.end) - int64(a.start)
	return AreaUsage{Name: name, Total: used + int64(a.left), Left: int64(a.left)}
}

// logEntry is the newest record of the journal. It locates every area of
// the device.
type logEntry struct {
	history     area
	laps        area
	trackpoints area
	logpoints   area
}

func readArea(c *buffer.Cursor, off int) area {
	return area{left: c.Uint32(off), start: c.Uint32(off + 4), end: c.Uint32(off + 8)}
}

func decodeLogEntry(c *buffer.Cursor) (logEntry, error) {
	e := logEntry{
		history:     readArea(c, 0x58),
		laps:        readArea(c, 0x64),
		trackpoints: readArea(c, 0x88),
		logpoints:   readArea(c, 0x94),
	}
	if err := c.Err(); err != nil {
		return logEntry{}, fmt.Errorf("log entry: %w", err)
	}
	return e, nil
}

var errEmptyJournal = errors.New("log entry journal is empty")

// findLogEntry scans the journal for the first unused slot and decodes the
// slot before it. A full journal yields its last slot.
func findLogEntry(c *buffer.Cursor) (logEntry, error) {
	for i := 0; i < logEntryArea/logEntrySize; i++ {
		if c.Uint16(0) == 0xffff {
			if i == 0 {
				return logEntry{}, errEmptyJournal
			}
			c.Advance(-logEntrySize)
			return decodeLogEntry(c)
		}
		if err := c.Err(); err != nil {
			return logEntry{}, fmt.Errorf("log entry journal: %w", err)
		}
		c.Advance(logEntrySize)
	}
	c.Advance(-logEntrySize)
	return decodeLogEntry(c)
}

var (
	trackFormats40 = map[uint16]trackFormat{
		0x0140: {size: 6, time: 0, ele: 1, lon: 2, lat: 4, unit: timeQuarterSeconds, elevation: elevationDelta},
		0x0440: {size: 6, time: 0, ele: 1, lon: 2, lat: 4, unit: timeSeconds, elevation: elevationDelta},
	}

	logFormats40 = map[uint16]logFormat{
		0x7104: {size: 6, speed: speedFFZero, cadence: none, heartrate: none, temperature: 1, airpressure: 3, reserved: none},
		0x7504: {size: 7, speed: speedFFZero, cadence: none, heartrate: 1, temperature: 2, airpressure: 4, reserved: none},
		0x7704: {size: 8, speed: speedFFZero, cadence: 1, heartrate: 2, temperature: 3, airpressure: 5, reserved: none},
	}

	trackLayout40 = trackLayout{
		headerSize:       0x28,
		pointSize:        6,
		segmentType:      tagTable(trackTags),
		formats:          trackFormats40,
		decodeOrigin:     true,
		hasLogOffset:     true,
		warnMovingPoints: true,
		stopOnLast:       true,
	}

	logLayout40 = logLayout{
		segmentType: tagTable(logTags),
		formats:     logFormats40,
	}
)

func layout40(e logEntry) *blockLayout {
	return &blockLayout{
		trackpoints: int64(e.trackpoints.start),
		logpoints:   int64(e.logpoints.start),
		summaries:   int64(e.laps.start),
		track:       trackLayout40,
		log:         logLayout40,
		check:       crossCheckWarn,
		lapStride:   56,
	}
}

// Rider40 reads generation 40 devices. Area offsets come from the log entry
// journal and are read once.
type Rider40 struct {
	dev   *BlockDevice
	entry track.Lazy[logEntry]
}

var _ Device = (*Rider40)(nil)

func NewRider40(dev *BlockDevice) *Rider40 {
	return &Rider40{dev: dev}
}

func (r *Rider40) Generation() Generation { return Generation40 }

func (r *Rider40) ReadSerial() (string, error) { return r.dev.ReadSerial() }

func (r *Rider40) logEntry() (logEntry, error) {
	return r.entry.Get(func() (logEntry, error) {
		c, err := r.dev.Cursor(0)
		if err != nil {
			return logEntry{}, err
		}
		return findLogEntry(c)
	})
}

func (r *Rider40) ReadStorageUsage() (DeviceStorage, error) {
	e, err := r.logEntry()
	if err != nil {
		return DeviceStorage{}, err
	}
	return DeviceStorage{Areas: []AreaUsage{
		e.trackpoints.usage("Trackpoints"),
		e.logpoints.usage("Logpoints"),
		e.history.usage("Tracks"),
		e.laps.usage("Laps"),
	}}, nil
}

// history record fields
const (
	history40Size     = 0x30
	history40NameLen  = 0x26
	history40Laps     = 0x18
	history40Track    = 0x08
	history40Summary  = 0x0C
	history40LapStart = 0x10
	plannedTrip       = 0xffffffff
)

func (r *Rider40) ReadHistory(diag track.Diagnostics) ([]*track.Track, error) {
	e, err := r.logEntry()
	if err != nil {
		return nil, err
	}
	c, err := r.dev.Cursor(int64(e.history.start))
	if err != nil {
		return nil, err
	}
	ctx := newDecodeContext(Generation40, diag)
	layout := layout40(e)

	var tracks []*track.Track
	for c.Offset() < int64(e.history.end) {
		ts := c.Uint32(0x00)
		nameLen := int(c.Uint16(history40NameLen))
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		if ts == plannedTrip {
			c.Advance(history40Size + nameLen)
			continue
		}
		bt := &blockTrack{
			dev:            r.dev,
			layout:         layout,
			ctx:            ctx,
			offTrackpoints: c.Uint32(history40Track),
			offSummary:     c.Uint32(history40Summary),
			lapCount:       int(c.Uint8(history40Laps)),
		}
		if bt.lapCount > 0 {
			bt.offLaps = c.Uint32(history40LapStart)
		}
		name := c.String(history40Size, nameLen)
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		tracks = append(tracks, track.New(name, int64(ts), bt.lapCount, bt))
		c.Advance(history40Size + nameLen)
	}
	return tracks, nil
}
