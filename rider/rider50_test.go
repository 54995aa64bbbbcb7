package rider

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/bryton-gps/track"
)

const start50 = 1690000000

type gpsRec struct {
	lon, lat int32
	ele      int16
	dt       uint32
}

type trnRec struct {
	dt       uint32
	hr, cad  uint8
	temp     int16
	air      uint32
	speed    uint16
	pauseTyp uint8
}

// recordFile50 writes the common header and returns the offset of the
// first record.
func recordFile50(im *image, magic, version string, typ uint8, count uint32) int {
	im.str(0, magic)
	im.u8(0x11, typ)
	im.u32(0x18, start50)
	im.str(0x20, version)
	im.u32(0x30, count)
	return 0x34
}

func gpsFile(version string, recs ...gpsRec) []byte {
	im := newImage(0)
	off := recordFile50(im, gpsMagic, version, 1, 3)
	for _, r := range recs {
		im.be32(off+0, uint32(r.lon))
		im.be32(off+4, uint32(r.lat))
		im.be16(off+8, uint16(r.ele))
		im.be32(off+16, r.dt)
		off += gpsRecordSize
	}
	return im.data
}

func trnFile(recs ...trnRec) []byte {
	im := newImage(0)
	off := recordFile50(im, sensorMagic, "GH1.4.0.62", 1, 3)
	for _, r := range recs {
		im.be32(off+0, r.dt)
		im.u8(off+4, r.hr)
		im.u8(off+5, r.cad)
		im.be16(off+8, uint16(r.temp))
		im.be32(off+12, r.air)
		im.u8(off+17, r.pauseTyp)
		im.be16(off+20, r.speed)
		off += trnRecordSize
	}
	im.grow(off)
	return im.data
}

const sta50 = `<?xml version="1.0" encoding="UTF-8"?>
<sta>
  <lap start="2023-07-22T04:26:40Z" end="2023-07-22T04:26:46Z">
    <distance>100</distance>
    <speed avg="25.5" max="30"/>
    <hrm avg="125.7" max="130"/>
    <cad avg="85.2" max="90"/>
    <altgain>6</altgain>
    <altloss>1</altloss>
    <calorie>8</calorie>
    <rtime>6</rtime>
  </lap>
  <summary start="2023-07-22T04:26:40Z" end="2023-07-22T04:26:52Z">
    <distance>250</distance>
    <speed avg="24" max="30"/>
    <hrm avg="126" max="130"/>
    <cad avg="86" max="90"/>
    <altgain>10</altgain>
    <altloss>4</altloss>
    <calorie>20</calorie>
    <rtime>11</rtime>
  </summary>
</sta>
`

func build50(t *testing.T, gpsVersion string) *Filesystem {
	t.Helper()
	root := t.TempDir()

	dbPath := filepath.Join(root, filepath.FromSlash(routeDB))
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE TraceLog (idRoute INTEGER PRIMARY KEY, Title TEXT, CreateTime INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO TraceLog VALUES (7, NULL, 1700000000), (3, 'Evening', ?)`, start50)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// the pause record has a type of 1 and a zero latitude, the record after
	// it opens the next segment
	writeFile(t, root, tracelogDir+"/3-GPS.dat", gpsFile(gpsVersion,
		gpsRec{lon: 10_000_000, lat: 50_000_000, ele: 1234, dt: 0},
		gpsRec{lon: 10_000_100, lat: 50_000_100, ele: 1240, dt: 4},
		gpsRec{lon: 0x00010000},
		gpsRec{lon: 0x00030000, dt: 10},
		gpsRec{lon: 10_000_200, lat: 50_000_200, ele: -15, dt: 12},
	))
	writeFile(t, root, tracelogDir+"/3-TRN.dat", trnFile(
		trnRec{dt: 0, hr: 120, cad: 80, temp: 21, air: 101325, speed: 500},
		trnRec{dt: 4, hr: 0xff, cad: 0xff, temp: -2, air: 100000, speed: 0xff},
		trnRec{hr: 0xfe, cad: 0xfe},
		trnRec{dt: 10, pauseTyp: 3},
		trnRec{dt: 12, hr: 130, cad: 90, temp: 20, air: 100000, speed: 300},
	))
	writeFile(t, root, tracelogDir+"/3-STA.xml", []byte(sta50))
	return &Filesystem{Root: root}
}

func TestRider50History(t *testing.T) {
	fs := build50(t, "GH1.4.0.56")
	gen, err := DetectFilesystem(fs)
	require.NoError(t, err)
	require.Equal(t, Generation50, gen)

	var diag track.Collector
	tracks, err := NewRider50(fs).ReadHistory(&diag)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Evening", tracks[0].Name)
	assert.Equal(t, int64(start50), tracks[0].Timestamp)
	assert.Equal(t, "", tracks[1].Name, "null titles read as empty")
	assert.Equal(t, 0, tracks[0].LapCount)

	tr := tracks[0]
	tps, err := tr.Trackpoints()
	require.NoError(t, err)
	want := []track.TrackSegment{
		{
			Type: track.SegmentBeforeAutoPause, Timestamp: start50, PointSize: gpsRecordSize,
			Points: []track.TrackPoint{
				{Timestamp: start50, Longitude: 10, Latitude: 50, Elevation: 123.4},
				{Timestamp: start50 + 4, Longitude: 10_000_100 / 1e6, Latitude: 50_000_100 / 1e6, Elevation: 124},
			},
		},
		{
			Type: track.SegmentLast, Timestamp: start50 + 10, PointSize: gpsRecordSize,
			Points: []track.TrackPoint{
				{Timestamp: start50 + 12, Longitude: 10_000_200 / 1e6, Latitude: 50_000_200 / 1e6, Elevation: -1.5},
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
			Type: track.SegmentBeforeAutoPause, Timestamp: start50, PointSize: trnRecordSize,
			Points: []track.LogPoint{
				{Timestamp: start50, Speed: fp(30), Temperature: fp(21), Airpressure: fp(1013.25), Heartrate: ip(120), Cadence: ip(80)},
				{Timestamp: start50 + 4, Speed: fp(0), Temperature: fp(-2), Airpressure: fp(1000)},
			},
		},
		{
			Type: track.SegmentLast, Timestamp: start50 + 10, PointSize: trnRecordSize,
			Points: []track.LogPoint{
				{Timestamp: start50 + 12, Speed: fp(18), Temperature: fp(20), Airpressure: fp(1000), Heartrate: ip(130), Cadence: ip(90)},
			},
		},
	}
	if diff := cmp.Diff(wantLogs, lps); diff != "" {
		t.Fatalf("logpoints mismatch (-want +got):\n%s", diff)
	}

	summary, err := tr.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(start50+12), summary.End)
	assert.Equal(t, &track.AvgMax{Avg: 126, Max: 130}, summary.Heartrate)

	laps, err := tr.LapSummaries()
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, &track.AvgMax{Avg: 125, Max: 130}, laps[0].Heartrate, "heart rate is truncated")
	assert.Equal(t, track.Summary{
		Start:        start50 + 6,
		End:          start50 + 12,
		Distance:     150,
		Speed:        track.AvgMax{Avg: 18, Max: 18},
		Heartrate:    &track.AvgMax{Avg: 130, Max: 130},
		Cadence:      &track.AvgMax{Avg: 90, Max: 90},
		AltitudeGain: 4,
		AltitudeLoss: 3,
		Calories:     12,
		RideTime:     6,
	}, laps[1])

	assert.Empty(t, diag.Warnings())
}

func TestRider50UntestedVersionWarns(t *testing.T) {
	fs := build50(t, "GH2.0.0.1")
	var diag track.Collector
	tracks, err := NewRider50(fs).ReadHistory(&diag)
	require.NoError(t, err)

	_, err = tracks[0].Trackpoints()
	require.NoError(t, err)
	require.Len(t, diag.Warnings(), 1)
	assert.Equal(t, track.WarnUntestedFormat, diag.Warnings()[0].Kind)
	assert.Contains(t, diag.Warnings()[0].Message, "GH2.0.0.1")
}

func TestRider50BadMagic(t *testing.T) {
	fs := build50(t, "GH1.4.0.56")
	writeFile(t, fs.Root, tracelogDir+"/3-GPS.dat", []byte("not a gps file, padded past the header......................."))
	tracks, err := NewRider50(fs).ReadHistory(nil)
	require.NoError(t, err)

	_, err = tracks[0].Trackpoints()
	assert.ErrorIs(t, err, track.ErrBadMagic)
}

func TestRider50MissingDatabase(t *testing.T) {
	_, err := NewRider50(&Filesystem{Root: t.TempDir()}).ReadHistory(nil)
	assert.ErrorIs(t, err, ErrDatabaseNotFound)
}

func TestParseSTAWithoutSummary(t *testing.T) {
	_, _, err := parseSTA([]byte(`<sta><lap start="2023-07-22T04:26:40Z" end="2023-07-22T04:26:46Z"/></sta>`))
	assert.ErrorIs(t, err, errNoSummary)

	_, _, err = parseSTA([]byte(`<sta><summary start="yesterday" end="2023-07-22T04:26:46Z"/></sta>`))
	assert.Error(t, err)
}
