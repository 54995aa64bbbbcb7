package rider

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/bryton-gps/track"
)

// build35 writes a tracklist with a planned trip and one ride of two
// segments with a single lap. logType is the tag of the first log segment.
func build35(logType uint8) *image {
	im := newImage(0xB0000)

	im.u16(0x7f78+0x08, 2)
	entries := 0x7f78 + 136
	im.u32(entries, plannedTrip)
	e := entries + tracklistEntrySize
	im.u32(e+0x00, 5000)
	im.str(e+0x04, "Evening ride")
	im.u32(e+0x88, 0)
	im.u32(e+0x8c, 32)
	im.u32(e+0x90, 0)
	im.u8(e+0x94, 1)

	tps := int(layout35.trackpoints)
	end := im.putTrackSegment(tps, 0x28, trackSeg{
		ts: 5000, typ: 1, lon: 1_000_000, lat: 2_000_000, ele: 4000,
		format: 0x0160, count: 2, next: 0x28 + 12,
		points: [][]byte{pt35(10, 10, 0, 4), pt35(10, 10, 0, 4)},
	})
	im.putTrackSegment(end, 0x28, trackSeg{ts: 5010, typ: 3, lon: -1, format: 0x0140, next: endOfChain, logOffset: 0x10 + 3*7})

	lps := int(layout35.logpoints)
	end = im.putLogSegment(lps, logSeg{ts: 5000, format: 0x3704, count: 3, typ: logType, points: [][]byte{
		{40, 80, 140, 0, 0, 0, 0},
		{48, 82, 150, 0, 0, 0, 0},
		{56, 84, 160, 0, 0, 0, 0},
	}})
	im.putLogSegment(end, logSeg{ts: 5010, typ: 0x0E})

	sum := int(layout35.summaries)
	im.putSummary(sum, summaryRec{start: 5000, end: 5004, distance: 100, speedAvg: 40, speedMax: 48, hrAvg: 145, hrMax: 150, cadAvg: 81, cadMax: 82, gain: 2, loss: 1, calories: 5, rideTime: 4})
	im.putSummary(sum+32, summaryRec{start: 5000, end: 5010, distance: 250, speedAvg: 48, speedMax: 56, hrAvg: 150, hrMax: 160, cadAvg: 82, cadMax: 84, gain: 3, loss: 3, calories: 12, rideTime: 9})
	return im
}

func TestRider35History(t *testing.T) {
	dev, err := OpenBlock(Generation35, bytes.NewReader(build35(0x06).data))
	require.NoError(t, err)
	var diag track.Collector
	tracks, err := dev.ReadHistory(&diag)
	require.NoError(t, err)
	require.Len(t, tracks, 1, "planned trips are skipped")

	tr := tracks[0]
	assert.Equal(t, "Evening ride", tr.Name)
	assert.Equal(t, 1, tr.LapCount)

	tps, err := tr.Trackpoints()
	require.NoError(t, err)
	require.Len(t, tps, 2)
	require.Len(t, tps[0].Points, 3)
	assert.Equal(t, int64(5008), tps[0].Points[2].Timestamp)
	assert.Equal(t, 1_000_020/1e6, tps[0].Points[2].Longitude)
	assert.Equal(t, uint32(0x10+3*7), tps[1].LogOffset)

	lps, err := tr.Logpoints()
	require.NoError(t, err)
	require.Len(t, lps, 2)
	assert.Equal(t, ip(160), lps[0].Points[2].Heartrate)

	laps, err := tr.LapSummaries()
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, track.Summary{
		Start:        5004,
		End:          5010,
		Distance:     150,
		Speed:        track.AvgMax{Avg: kmh(56), Max: kmh(56)},
		Heartrate:    &track.AvgMax{Avg: 160, Max: 160},
		Cadence:      &track.AvgMax{Avg: 84, Max: 84},
		AltitudeGain: 1,
		AltitudeLoss: 2,
		Calories:     7,
		RideTime:     4,
	}, laps[1])

	usage, err := tr.StorageUsage()
	require.NoError(t, err)
	assert.Equal(t, track.StorageUsage{Trackpoints: 40 + 3*6 + 40, Logpoints: 16 + 3*7 + 16}, usage)

	assert.Empty(t, diag.Warnings())
}

func TestRider35SegmentMismatchIsFatal(t *testing.T) {
	dev := NewRider35(build35(0x02).blockDevice(blockCount35))
	tracks, err := dev.ReadHistory(nil)
	require.NoError(t, err)

	_, err = tracks[0].Logpoints()
	assert.ErrorIs(t, err, track.ErrSegmentMismatch)
}

func TestRider35StorageUsage(t *testing.T) {
	usage, err := NewRider35(build35(0x06).blockDevice(blockCount35)).ReadStorageUsage()
	require.NoError(t, err)
	require.Len(t, usage.Areas, 4)
	for _, a := range usage.Areas {
		assert.Equal(t, int64(-1), a.Used(), a.Name)
	}
	assert.Equal(t, int64(space35Trackpoints), usage.Areas[0].Total)
}

// build20 writes one ride whose elevation is stored as coarse steps.
func build20() *image {
	im := newImage(0xB0000)

	im.u16(0x8e94+0x08, 1)
	e := 0x8e94 + 24
	im.u32(e+0x00, 7000)
	im.str(e+0x04, "R20")

	im.putTrackSegment(int(layout20.trackpoints), 0x28, trackSeg{
		ts: 7000, typ: 3, lon: 3_000_000, lat: 4_000_000, ele: 4000 + 4*20,
		format: 0x0161, count: 3, next: endOfChain,
		points: [][]byte{pt35(1, 1, 13, 1), pt35(1, 1, 0, 1), pt35(1, 1, 15, 1)},
	})
	im.putLogSegment(int(layout20.logpoints), logSeg{ts: 7000, format: 0x8104, count: 2, typ: 0x0E, points: [][]byte{{0xff}, {16}}})
	im.putSummary(int(layout20.summaries), summaryRec{start: 7000, end: 7003, distance: 30, rideTime: 3})
	return im
}

func TestRider20History(t *testing.T) {
	dev, err := OpenBlock(Generation20, bytes.NewReader(build20().data))
	require.NoError(t, err)
	tracks, err := dev.ReadHistory(nil)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	tr := tracks[0]
	assert.Equal(t, "R20", tr.Name)

	tps, err := tr.Trackpoints()
	require.NoError(t, err)
	require.Len(t, tps, 1)
	got := make([]float64, 0, 4)
	for _, p := range tps[0].Points {
		got = append(got, p.Elevation)
	}
	// raw steps 20, 30, 30, 50 averaged over a growing window
	assert.InDeltaSlice(t, []float64{20, 25, 80.0 / 3, 32.5}, got, 1e-9)

	lps, err := tr.Logpoints()
	require.NoError(t, err)
	require.Len(t, lps[0].Points, 2)
	assert.Equal(t, fp(kmh(0xff)), lps[0].Points[0].Speed, "0xff is a valid speed")

	laps, err := tr.LapSummaries()
	require.NoError(t, err)
	require.Len(t, laps, 1)
	assert.Equal(t, 30.0, laps[0].Distance)

	_, err = dev.ReadStorageUsage()
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestRider20IgnoresLapRecords(t *testing.T) {
	im := build20()
	e := 0x8e94 + 24
	im.u8(e+0x94, 2)
	// points into the middle of nowhere, must not be followed
	im.u32(e+0x90, 0x7ffff)

	var diag track.Collector
	dev, err := OpenBlock(Generation20, bytes.NewReader(im.data))
	require.NoError(t, err)
	tracks, err := dev.ReadHistory(&diag)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 2, tracks[0].LapCount)

	laps, err := tracks[0].LapSummaries()
	require.NoError(t, err)
	require.Len(t, laps, 1)
	assert.Equal(t, int64(7003), laps[0].End)
	assert.Empty(t, diag.Warnings(), "no summary offset warning")
}
