package rider

import (
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lucasjlepore/bryton-gps/buffer"
	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	tracelogDir    = "thalia/applications/CYCLING/DATA/TRACELOG"
	routeDB        = "thalia/applications/CYCLING/DATA/ROUTE/route.dat"
	deviceIni50    = "Device.ini"
	historyQuery50 = `SELECT idRoute, Title, CreateTime FROM TraceLog ORDER BY idRoute ASC`

	gpsMagic      = "gps track"
	sensorMagic   = "sensor value"
	gpsRecordSize = 20
	trnRecordSize = 22
	staTimeLayout = "2006-01-02T15:04:05Z"
)

var supportedVersions50 = map[string]bool{
	"GH1.4.0.56": true,
	"GH1.4.0.62": true,
}

// Rider50 reads generation 50 devices. Rides are listed in an SQLite
// database and stored as big-endian record files with an XML summary.
type Rider50 struct {
	fs *Filesystem
}

var _ Device = (*Rider50)(nil)

func NewRider50(fs *Filesystem) *Rider50 {
	return &Rider50{fs: fs}
}

func (r *Rider50) Generation() Generation { return Generation50 }

func (r *Rider50) ReadSerial() (string, error) { return r.fs.readUUID(deviceIni50) }

func (r *Rider50) ReadStorageUsage() (DeviceStorage, error) { return r.fs.Usage() }

func (r *Rider50) ReadHistory(diag track.Diagnostics) ([]*track.Track, error) {
	if !r.fs.Exists(routeDB) {
		return nil, fmt.Errorf("%w (tried %q)", ErrDatabaseNotFound, r.fs.abs(routeDB))
	}
	db, err := sql.Open("sqlite3", "file:"+r.fs.abs(routeDB)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open tracelog database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(historyQuery50)
	if err != nil {
		return nil, fmt.Errorf("query tracelog: %w", err)
	}
	defer rows.Close()

	ctx := newDecodeContext(Generation50, diag)
	var tracks []*track.Track
	for rows.Next() {
		var (
			id    int64
			title sql.NullString
			ts    int64
		)
		if err := rows.Scan(&id, &title, &ts); err != nil {
			return nil, fmt.Errorf("scan tracelog: %w", err)
		}
		t := &track50{fs: r.fs, id: fmt.Sprint(id), ctx: ctx}
		tracks = append(tracks, track.New(title.String, ts, 0, t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tracelog: %w", err)
	}
	return tracks, nil
}

type track50 struct {
	fs  *Filesystem
	id  string
	ctx decodeContext
}

func (t *track50) file(suffix string) string {
	return path.Join(tracelogDir, t.id+suffix)
}

// recordFile is the common header of GPS and sensor files.
type recordFile struct {
	start int64
	typ   uint8
	count int
}

func (t *track50) openRecordFile(suffix, magic string) (*buffer.Cursor, recordFile, error) {
	c, err := t.fs.Open(t.file(suffix))
	if err != nil {
		return nil, recordFile{}, err
	}
	if c.String(0, len(magic)) != magic {
		return nil, recordFile{}, fmt.Errorf("%s: %w", t.file(suffix), track.ErrBadMagic)
	}
	if v := c.String(0x20, 10); !supportedVersions50[v] {
		t.ctx.warn(track.WarnUntestedFormat, "untested %s file format version %q, check that the output looks correct", magic, v)
	}
	h := recordFile{
		typ:   c.Uint8(0x11),
		start: int64(c.Uint32(0x18)),
	}
	c.Advance(0x30)
	h.count = int(c.Uint32(0))
	c.Advance(4)
	if err := c.Err(); err != nil {
		return nil, recordFile{}, fmt.Errorf("%s header: %w", t.file(suffix), err)
	}
	return c, h, nil
}

func (t *track50) segmentType(raw uint8, record string) (track.SegmentType, error) {
	st, ok := trackTags.Lookup(raw)
	if !ok {
		return 0, t.ctx.formatError(record, track.ErrUnknownSegmentType, uint64(raw))
	}
	return st, nil
}

func isGPSPause(c *buffer.Cursor) bool {
	return c.BEUint16(0) == 1 && c.BEUint32(4) == 0
}

func isSensorPause(c *buffer.Cursor) bool {
	return c.BEUint16(4) == 0xfefe && c.BEUint32(6) == 0
}

func (t *track50) Trackpoints() ([]track.TrackSegment, error) {
	c, h, err := t.openRecordFile("-GPS.dat", gpsMagic)
	if err != nil {
		return nil, err
	}
	rawType, ts, count := h.typ, h.start, h.count

	var segs []track.TrackSegment
	for len(segs) < maxSegments {
		st, err := t.segmentType(rawType, "trackpoint segment type")
		if err != nil {
			return nil, err
		}
		seg := track.TrackSegment{Type: st, Timestamp: ts, PointSize: gpsRecordSize}
		read := 0
		for ; read < count && c.Err() == nil && !isGPSPause(c); read++ {
			seg.Points = append(seg.Points, track.TrackPoint{
				Timestamp: h.start + int64(c.BEUint32(16)),
				Longitude: float64(c.BEInt32(0)) / 1000000.0,
				Latitude:  float64(c.BEInt32(4)) / 1000000.0,
				Elevation: float64(c.BEInt16(8)) / 10.0,
			})
			c.Advance(gpsRecordSize)
		}
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("trackpoints: %w", err)
		}
		segs = append(segs, seg)

		count -= read
		if count <= 0 {
			return segs, nil
		}
		// a pause record is followed by the record opening the next segment
		c.Advance(gpsRecordSize)
		rawType = c.Uint8(1)
		ts = h.start + int64(c.BEUint32(16))
		c.Advance(gpsRecordSize)
	}
	return nil, fmt.Errorf("more than %d trackpoint segments", maxSegments)
}

func (t *track50) Logpoints([]track.TrackSegment) ([]track.LogSegment, error) {
	c, h, err := t.openRecordFile("-TRN.dat", sensorMagic)
	if err != nil {
		return nil, err
	}
	rawType, ts, count := h.typ, h.start, h.count

	var segs []track.LogSegment
	for len(segs) < maxSegments {
		st, err := t.segmentType(rawType, "logpoint segment type")
		if err != nil {
			return nil, err
		}
		seg := track.LogSegment{Type: st, Timestamp: ts, PointSize: trnRecordSize}
		read := 0
		for ; read < count && c.Err() == nil && !isSensorPause(c); read++ {
			speed := 0.0
			if raw := c.BEUint16(20); raw != 0xff {
				speed = float64(raw) * 60.0 / 1000.0
			}
			seg.Points = append(seg.Points, track.LogPoint{
				Timestamp:   h.start + int64(c.BEUint32(0)),
				Speed:       floatPtr(speed),
				Temperature: floatPtr(float64(c.BEInt16(8))),
				Airpressure: floatPtr(float64(c.BEUint32(12)) / 100.0),
				Heartrate:   optionalByte(c.Uint8(4)),
				Cadence:     optionalByte(c.Uint8(5)),
			})
			c.Advance(trnRecordSize)
		}
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("logpoints: %w", err)
		}
		segs = append(segs, seg)

		count -= read
		if count <= 0 {
			return segs, nil
		}
		c.Advance(trnRecordSize)
		rawType = c.Uint8(17)
		ts = h.start + int64(c.BEUint32(0))
		c.Advance(trnRecordSize)
	}
	return nil, fmt.Errorf("more than %d logpoint segments", maxSegments)
}

type staAvgMax struct {
	Avg float64 `xml:"avg,attr"`
	Max float64 `xml:"max,attr"`
}

type staSummary struct {
	Start    string    `xml:"start,attr"`
	End      string    `xml:"end,attr"`
	Distance float64   `xml:"distance"`
	Speed    staAvgMax `xml:"speed"`
	HRM      staAvgMax `xml:"hrm"`
	Cad      staAvgMax `xml:"cad"`
	AltGain  float64   `xml:"altgain"`
	AltLoss  float64   `xml:"altloss"`
	Calorie  float64   `xml:"calorie"`
	RTime    float64   `xml:"rtime"`
}

type staFile struct {
	Laps    []staSummary `xml:"lap"`
	Summary *staSummary  `xml:"summary"`
}

func parseSTATime(s string) (int64, error) {
	t, err := time.Parse(staTimeLayout, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// truncAvgMax keeps the integer part of heart rate and cadence values.
func truncAvgMax(v staAvgMax) *track.AvgMax {
	return &track.AvgMax{Avg: float64(int(v.Avg)), Max: float64(int(v.Max))}
}

func (s staSummary) summary() (track.Summary, error) {
	start, err := parseSTATime(s.Start)
	if err != nil {
		return track.Summary{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseSTATime(s.End)
	if err != nil {
		return track.Summary{}, fmt.Errorf("end: %w", err)
	}
	return track.Summary{
		Start:        start,
		End:          end,
		Distance:     s.Distance,
		Speed:        track.AvgMax{Avg: s.Speed.Avg, Max: s.Speed.Max},
		Heartrate:    truncAvgMax(s.HRM),
		Cadence:      truncAvgMax(s.Cad),
		AltitudeGain: s.AltGain,
		AltitudeLoss: s.AltLoss,
		Calories:     int(s.Calorie),
		RideTime:     int64(s.RTime),
	}, nil
}

var errNoSummary = errors.New("missing summary element")

// parseSTA decodes the ride summary and the laps of an STA document.
func parseSTA(data []byte) (track.Summary, []track.Summary, error) {
	var doc staFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return track.Summary{}, nil, err
	}
	if doc.Summary == nil {
		return track.Summary{}, nil, errNoSummary
	}
	summary, err := doc.Summary.summary()
	if err != nil {
		return track.Summary{}, nil, fmt.Errorf("summary: %w", err)
	}
	laps := make([]track.Summary, 0, len(doc.Laps))
	for i, l := range doc.Laps {
		lap, err := l.summary()
		if err != nil {
			return track.Summary{}, nil, fmt.Errorf("lap %d: %w", i, err)
		}
		laps = append(laps, lap)
	}
	return summary, laps, nil
}

func (t *track50) Summaries(tr *track.Track) (track.Summary, []track.Summary, error) {
	data, err := t.fs.ReadFile(t.file("-STA.xml"))
	if err != nil {
		return track.Summary{}, nil, fmt.Errorf("summary file: %w", err)
	}
	summary, laps, err := parseSTA(data)
	if err != nil {
		return track.Summary{}, nil, fmt.Errorf("%s: %w", t.file("-STA.xml"), err)
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

func (t *track50) StorageUsage(tr *track.Track) (track.StorageUsage, error) {
	return segmentUsage(tr)
}
