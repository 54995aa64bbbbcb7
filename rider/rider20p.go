package rider

import (
	"fmt"
	"path"
	"strings"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	galDir       = "Data/History/GAL"
	trkDir       = "Data/History/TRK"
	sslDir       = "Data/History/SSL"
	deviceIni20p = "device.ini"

	// fileHeaderSize precedes the first segment of TRK and SSL files.
	fileHeaderSize = 16
	galHeaderSize  = 128
	galLapStride   = 56
)

var (
	trackLayout20p = trackLayout{
		headerSize:  0x24,
		pointSize:   10,
		segmentType: shiftedTagTable(trackTags, 0x30, 0x40),
		formats: map[uint16]trackFormat{
			0x0140: {size: 10, time: 2, ele: 4, lon: 6, lat: 8, unit: timeSeconds, elevation: elevationDeltaWhole},
			0x0440: {size: 10, time: 2, ele: 4, lon: 6, lat: 8, unit: timeFourSeconds, elevation: elevationDeltaWhole},
		},
		decodeOrigin:     true,
		warnMovingPoints: true,
		strictOffsets:    true,
	}

	logLayout20p = logLayout{
		segmentType: shiftedTagTable(logTags, 0xE0, 0x40),
		formats: map[uint16]logFormat{
			0x4304: {size: 3, speed: speedFFZero, cadence: none, heartrate: none, temperature: none, airpressure: none, reserved: none},
			// the last field holds altitude rather than air pressure
			0x7704: logFormats40[0x7704],
		},
		pointSize: 3,
	}
)

// Rider20p reads generation 20p devices, which keep one set of files per
// ride on a mounted filesystem.
type Rider20p struct {
	fs *Filesystem
}

var _ Device = (*Rider20p)(nil)

func NewRider20p(fs *Filesystem) *Rider20p {
	return &Rider20p{fs: fs}
}

func (r *Rider20p) Generation() Generation { return Generation20Plus }

func (r *Rider20p) ReadSerial() (string, error) { return r.fs.readUUID(deviceIni20p) }

func (r *Rider20p) ReadStorageUsage() (DeviceStorage, error) { return r.fs.Usage() }

func (r *Rider20p) ReadHistory(diag track.Diagnostics) ([]*track.Track, error) {
	files, err := r.fs.ListDir(galDir)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	ctx := newDecodeContext(Generation20Plus, diag)

	var tracks []*track.Track
	for _, f := range files {
		if !strings.HasSuffix(f, ".gal") {
			continue
		}
		c, err := r.fs.Open(f)
		if err != nil {
			return nil, err
		}
		ts := c.Uint32(0x10)
		name := c.String(0x58, int(c.Uint16(0x4e)))
		laps := int(c.Uint8(0x28))
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		id := strings.TrimSuffix(path.Base(f), path.Ext(f))
		tracks = append(tracks, track.New(name, int64(ts), laps, &track20p{fs: r.fs, id: id, lapCount: laps, ctx: ctx}))
	}
	return tracks, nil
}

type track20p struct {
	fs       *Filesystem
	id       string
	lapCount int
	ctx      decodeContext
}

func (t *track20p) open(dir, ext string) (*buffer.Cursor, error) {
	return t.fs.Open(path.Join(dir, t.id+ext))
}

func (t *track20p) Trackpoints() ([]track.TrackSegment, error) {
	c, err := t.open(trkDir, ".trk")
	if err != nil {
		return nil, err
	}
	c.Advance(fileHeaderSize)
	return trackLayout20p.readSegments(c, 0, t.ctx)
}

func (t *track20p) Logpoints([]track.TrackSegment) ([]track.LogSegment, error) {
	c, err := t.open(sslDir, ".ssl")
	if err != nil {
		return nil, err
	}
	c.Advance(fileHeaderSize)

	var segs []track.LogSegment
	for len(segs) < maxSegments {
		seg, h, err := logLayout20p.readSegment(c, t.ctx)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		if h.next == endOfChain {
			return segs, nil
		}
		if c.Offset() != int64(h.next) {
			return nil, t.ctx.formatError("logpoint segment offset", track.ErrOffsetMismatch, uint64(h.next))
		}
	}
	return nil, fmt.Errorf("more than %d logpoint segments", maxSegments)
}

func (t *track20p) Summaries(tr *track.Track) (track.Summary, []track.Summary, error) {
	c, err := t.open(galDir, ".gal")
	if err != nil {
		return track.Summary{}, nil, err
	}
	c.Advance(galHeaderSize)
	laps, err := readBinaryLaps(c, t.lapCount, galLapStride)
	if err != nil {
		return track.Summary{}, nil, err
	}
	summary, err := readBinarySummary(c)
	if err != nil {
		return track.Summary{}, nil, err
	}
	if len(laps) > 0 {
		merged, err := tr.MergedSegments(false)
		if err != nil {
			return track.Summary{}, nil, err
		}
		laps = track.SynthesizeTrailingLap(summary, laps, merged)
	}
	return summary, laps, nil
}

func (t *track20p) StorageUsage(tr *track.Track) (track.StorageUsage, error) {
	return segmentUsage(tr)
}
