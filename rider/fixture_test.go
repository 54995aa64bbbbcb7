package rider

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// image is a little-endian byte image written at absolute offsets.
type image struct {
	data []byte
}

func newImage(size int) *image {
	return &image{data: make([]byte, size)}
}

func (im *image) grow(end int) {
	if end > len(im.data) {
		im.data = append(im.data, make([]byte, end-len(im.data))...)
	}
}

func (im *image) u8(off int, v uint8) {
	im.grow(off + 1)
	im.data[off] = v
}

func (im *image) u16(off int, v uint16) {
	im.grow(off + 2)
	binary.LittleEndian.PutUint16(im.data[off:], v)
}

func (im *image) i16(off int, v int16) { im.u16(off, uint16(v)) }

func (im *image) u32(off int, v uint32) {
	im.grow(off + 4)
	binary.LittleEndian.PutUint32(im.data[off:], v)
}

func (im *image) i32(off int, v int32) { im.u32(off, uint32(v)) }

func (im *image) be16(off int, v uint16) {
	im.grow(off + 2)
	binary.BigEndian.PutUint16(im.data[off:], v)
}

func (im *image) be32(off int, v uint32) {
	im.grow(off + 4)
	binary.BigEndian.PutUint32(im.data[off:], v)
}

func (im *image) str(off int, s string) {
	im.grow(off + len(s))
	copy(im.data[off:], s)
}

func (im *image) raw(off int, b []byte) {
	im.grow(off + len(b))
	copy(im.data[off:], b)
}

func (im *image) blockDevice(maxBlock int64) *BlockDevice {
	return NewBlockDevice(bytes.NewReader(im.data), maxBlock)
}

// trackSeg is a trackpoint segment header followed by raw point records.
type trackSeg struct {
	ts        uint32
	typ       uint8
	lon, lat  int32
	ele       uint16
	format    uint16
	count     uint32
	next      uint32
	logOffset uint32
	points    [][]byte
}

// putTrackSegment writes s at off with a header of headerSize bytes and
// returns the offset after its points.
func (im *image) putTrackSegment(off, headerSize int, s trackSeg) int {
	im.u32(off+0x00, s.ts)
	im.i32(off+0x04, s.lon)
	im.i32(off+0x08, s.lat)
	im.u16(off+0x14, s.ele)
	im.u16(off+0x18, s.format)
	im.u8(off+0x1A, s.typ)
	im.u32(off+0x1C, s.next)
	im.u32(off+0x20, s.count)
	if headerSize > 0x24 {
		im.u32(off+0x24, s.logOffset)
	}
	off += headerSize
	im.grow(off)
	for _, p := range s.points {
		im.raw(off, p)
		off += len(p)
	}
	return off
}

type logSeg struct {
	ts     uint32
	next   uint32
	format uint16
	count  uint16
	typ    uint8
	points [][]byte
}

func (im *image) putLogSegment(off int, s logSeg) int {
	im.u32(off+0x00, s.ts)
	im.u32(off+0x04, s.next)
	im.u16(off+0x08, s.format)
	im.u16(off+0x0A, s.count)
	im.u8(off+0x0C, s.typ)
	off += logHeaderSize
	im.grow(off)
	for _, p := range s.points {
		im.raw(off, p)
		off += len(p)
	}
	return off
}

type summaryRec struct {
	start, end, distance uint32
	speedAvg, speedMax   uint8
	hrAvg, hrMax         uint8
	cadAvg, cadMax       uint8
	gain, loss, calories uint16
	rideTime             uint32
}

func (im *image) putSummary(off int, s summaryRec) {
	im.u32(off+0x00, s.start)
	im.u32(off+0x04, s.end)
	im.u32(off+0x08, s.distance)
	im.u8(off+0x0c, s.speedAvg)
	im.u8(off+0x0d, s.speedMax)
	im.u8(off+0x0e, s.hrAvg)
	im.u8(off+0x0f, s.hrMax)
	im.u8(off+0x10, s.cadAvg)
	im.u8(off+0x11, s.cadMax)
	im.u16(off+0x16, s.gain)
	im.u16(off+0x18, s.loss)
	im.u16(off+0x1a, s.calories)
	im.u32(off+0x1c, s.rideTime)
}

// pt40 is a 6 byte delta record with the time first.
func pt40(dt uint8, ele int8, dlon, dlat int16) []byte {
	b := make([]byte, 6)
	b[0] = dt
	b[1] = byte(ele)
	binary.LittleEndian.PutUint16(b[2:], uint16(dlon))
	binary.LittleEndian.PutUint16(b[4:], uint16(dlat))
	return b
}

// pt35 is a 6 byte delta record with the coordinates first.
func pt35(dlon, dlat int16, ele int8, dt uint8) []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:], uint16(dlon))
	binary.LittleEndian.PutUint16(b[2:], uint16(dlat))
	b[4] = byte(ele)
	b[5] = dt
	return b
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func kmh(raw uint8) float64 { return float64(raw) / 8.0 * 60 * 60 / 1000 }

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }
