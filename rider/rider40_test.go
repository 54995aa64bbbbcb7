package rider

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	hist40 = 0x8000
	laps40 = 0x9000
	tps40  = 0xA000
	lps40  = 0xC000
)

// build40 writes a device with one planned trip and one ride of two
// segments. gap is the number of bytes left between the track segments.
func build40(gap int) *image {
	im := newImage(0x10000)

	// journal: slot 1 is the newest entry, slot 2 is unused
	e := logEntrySize
	im.u32(e+0x58, 0x1000)
	im.u32(e+0x5C, hist40)
	im.u32(e+0x60, hist40+0x30+4+0x30+5)
	im.u32(e+0x64, 0x2000)
	im.u32(e+0x68, laps40)
	im.u32(e+0x6C, laps40+3*56)
	im.u32(e+0x88, 0x3000)
	im.u32(e+0x8C, tps40)
	im.u32(e+0x90, tps40+0x100)
	im.u32(e+0x94, 0x4000)
	im.u32(e+0x98, lps40)
	im.u32(e+0x9C, lps40+0x30)
	im.u16(2*logEntrySize, 0xffff)

	im.str(probeOffset, probeMagic)
	im.str(probeOffset+16, "1504")

	// history
	im.u32(hist40, plannedTrip)
	im.u16(hist40+0x26, 4)
	im.str(hist40+0x30, "plan")
	r := hist40 + 0x30 + 4
	im.u32(r+0x00, 1000)
	im.u16(r+0x26, 5)
	im.u8(r+0x18, 2)
	im.u32(r+0x08, 0)
	im.u32(r+0x0C, 2*56)
	im.u32(r+0x10, 0)
	im.str(r+0x30, "Ride1")

	// trackpoints
	seg1 := 0x28 + 2*6 + gap
	im.putTrackSegment(tps40, 0x28, trackSeg{
		ts: 1000, typ: 1, lon: 10_000_000, lat: 59_000_000, ele: 4000 + 4*100,
		format: 0x0440, count: 2, next: uint32(seg1),
		points: [][]byte{pt40(1, 5, 100, -50), pt40(2, -10, 100, 0)},
	})
	im.putTrackSegment(tps40+seg1, 0x28, trackSeg{
		ts: 1010, typ: 3, lon: 10_000_300, lat: 59_000_000, ele: 4000,
		format: 0x0140, count: 1, next: endOfChain, logOffset: 0x10 + 2*8,
		points: [][]byte{pt40(9, 0, 0, 0)},
	})

	// logpoints
	lp := func(speed, cad, hr uint8, temp int16, air uint16) []byte {
		b := []byte{speed, cad, hr, 0, 0, 0, 0, 0}
		b[3], b[4] = byte(temp), byte(uint16(temp)>>8)
		b[5], b[6] = byte(air), byte(air>>8)
		return b
	}
	next := im.putLogSegment(lps40, logSeg{
		ts: 1000, format: 0x7704, count: 2, typ: 0x06,
		points: [][]byte{lp(40, 90, 0xff, 215, 50000), lp(0xff, 0xff, 150, -15, 50001)},
	})
	im.putLogSegment(next, logSeg{ts: 1010, format: 0x7104, typ: 0x0E})

	// laps followed by the summary
	im.putSummary(laps40, summaryRec{start: 1000, end: 1005, distance: 100, speedAvg: 40, speedMax: 48, hrAvg: 0xff, hrMax: 0xff, cadAvg: 88, cadMax: 92, gain: 3, loss: 1, calories: 10, rideTime: 5})
	im.putSummary(laps40+56, summaryRec{start: 1005, end: 1012, distance: 200, speedAvg: 48, speedMax: 56, hrAvg: 140, hrMax: 150, cadAvg: 90, cadMax: 95, gain: 2, loss: 4, calories: 20, rideTime: 7})
	im.putSummary(laps40+2*56, summaryRec{start: 1000, end: 1012, distance: 300, speedAvg: 44, speedMax: 56, hrAvg: 140, hrMax: 150, cadAvg: 89, cadMax: 95, gain: 5, loss: 5, calories: 30, rideTime: 12})
	return im
}

func TestProbeKnownModel(t *testing.T) {
	im := build40(0)
	var diag track.Collector
	res, err := Probe(bytes.NewReader(im.data), &diag)
	require.NoError(t, err)
	assert.Equal(t, ProbeResult{Model: "1504", Generation: Generation40}, res)
	assert.Empty(t, diag.Warnings())
}

func TestProbeUnknownModelWarns(t *testing.T) {
	im := build40(0)
	im.str(probeOffset+16, "9999")
	var diag track.Collector
	res, err := Probe(bytes.NewReader(im.data), &diag)
	require.NoError(t, err)
	assert.Equal(t, Generation40, res.Generation)
	require.Len(t, diag.Warnings(), 1)
	assert.Equal(t, track.WarnUnknownModel, diag.Warnings()[0].Kind)
}

func TestProbeWithoutMagic(t *testing.T) {
	_, err := IdentifyHeader(make([]byte, probeLength), nil)
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestRider40History(t *testing.T) {
	dev := NewRider40(build40(0).blockDevice(blockCount40))
	var diag track.Collector
	tracks, err := dev.ReadHistory(&diag)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	tr := tracks[0]
	assert.Equal(t, "Ride1", tr.Name)
	assert.Equal(t, int64(1000), tr.Timestamp)
	assert.Equal(t, 2, tr.LapCount)

	tps, err := tr.Trackpoints()
	require.NoError(t, err)
	want := []track.TrackSegment{
		{
			Type: track.SegmentBeforeAutoPause, Timestamp: 1000, PointSize: 6,
			Points: []track.TrackPoint{
				{Timestamp: 1000, Longitude: 10_000_000 / 1e6, Latitude: 59_000_000 / 1e6, Elevation: 100},
				{Timestamp: 1001, Longitude: 10_000_100 / 1e6, Latitude: 58_999_950 / 1e6, Elevation: 100.5},
				{Timestamp: 1003, Longitude: 10_000_200 / 1e6, Latitude: 58_999_950 / 1e6, Elevation: 99.5},
			},
		},
		{
			Type: track.SegmentLast, Timestamp: 1010, PointSize: 6, LogOffset: 0x20,
			Points: []track.TrackPoint{
				{Timestamp: 1010, Longitude: 10_000_300 / 1e6, Latitude: 59_000_000 / 1e6, Elevation: 0},
				// quarter second ticks: 9/4 truncates to 2
				{Timestamp: 1012, Longitude: 10_000_300 / 1e6, Latitude: 59_000_000 / 1e6, Elevation: 0},
			},
		},
	}
	if diff := cmp.Diff(want, tps); diff != "" {
		t.Fatalf("trackpoints mismatch (-want +got):\n%s", diff)
	}

	lps, err := tr.Logpoints()
	require.NoError(t, err)
	wantLogs := []track.LogSegment{
		{
			Type: track.SegmentBeforeAutoPause, Timestamp: 1000, PointSize: 8,
			Points: []track.LogPoint{
				{Timestamp: 1000, Speed: fp(18), Cadence: ip(90), Temperature: fp(21.5), Airpressure: fp(100000)},
				{Timestamp: 1004, Speed: fp(0), Heartrate: ip(150), Temperature: fp(-1.5), Airpressure: fp(100002)},
			},
		},
		{Type: track.SegmentLast, Timestamp: 1010},
	}
	if diff := cmp.Diff(wantLogs, lps); diff != "" {
		t.Fatalf("logpoints mismatch (-want +got):\n%s", diff)
	}

	summary, err := tr.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(1012), summary.End)
	assert.Equal(t, 300.0, summary.Distance)
	assert.Equal(t, kmh(44), summary.Speed.Avg)
	assert.Equal(t, &track.AvgMax{Avg: 140, Max: 150}, summary.Heartrate)
	assert.Equal(t, int64(12), summary.RideTime)

	laps, err := tr.LapSummaries()
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, &track.AvgMax{Avg: 0, Max: 0}, laps[0].Heartrate, "missing sensor reads as zero")
	assert.Equal(t, 20, laps[1].Calories)

	usage, err := tr.StorageUsage()
	require.NoError(t, err)
	assert.Equal(t, track.StorageUsage{Trackpoints: 40 + 3*6 + 40 + 2*6, Logpoints: 16 + 2*8 + 16}, usage)

	assert.Empty(t, diag.Warnings())
}

func TestRider40SegmentDriftWarns(t *testing.T) {
	dev := NewRider40(build40(12).blockDevice(blockCount40))
	var diag track.Collector
	tracks, err := dev.ReadHistory(&diag)
	require.NoError(t, err)

	tps, err := tracks[0].Trackpoints()
	require.NoError(t, err)
	require.Len(t, tps, 2)
	require.Len(t, diag.Warnings(), 1)
	assert.Equal(t, track.WarnOffsetDrift, diag.Warnings()[0].Kind)
	assert.Equal(t, "rider40", diag.Warnings()[0].Generation)
}

func TestRider40SmallDriftIsSilent(t *testing.T) {
	dev := NewRider40(build40(6).blockDevice(blockCount40))
	var diag track.Collector
	tracks, err := dev.ReadHistory(&diag)
	require.NoError(t, err)
	_, err = tracks[0].Trackpoints()
	require.NoError(t, err)
	assert.Empty(t, diag.Warnings())
}

func TestRider40StorageUsage(t *testing.T) {
	dev := NewRider40(build40(0).blockDevice(blockCount40))
	usage, err := dev.ReadStorageUsage()
	require.NoError(t, err)
	require.Len(t, usage.Areas, 4)
	assert.Equal(t, AreaUsage{Name: "Trackpoints", Total: 0x100 + 0x3000, Left: 0x3000}, usage.Areas[0])
	assert.Equal(t, int64(0x100), usage.Areas[0].Used())
	assert.Equal(t, "Tracks", usage.Areas[2].Name)
}

func TestFindLogEntry(t *testing.T) {
	t.Run("empty journal", func(t *testing.T) {
		im := newImage(logEntryArea)
		im.u16(0, 0xffff)
		_, err := findLogEntry(cursorAt(t, im.blockDevice(8), 0))
		assert.ErrorIs(t, err, errEmptyJournal)
	})
	t.Run("full journal uses the last slot", func(t *testing.T) {
		im := newImage(logEntryArea)
		im.u32(logEntryArea-logEntrySize+0x5C, 0x1234)
		e, err := findLogEntry(cursorAt(t, im.blockDevice(8), 0))
		require.NoError(t, err)
		assert.Equal(t, uint32(0x1234), e.history.start)
	})
}

func cursorAt(t *testing.T, d *BlockDevice, off int64) *buffer.Cursor {
	t.Helper()
	c, err := d.Cursor(off)
	require.NoError(t, err)
	return c
}
