package rider

import "github.com/lucasjlepore/bryton-gps/track"

var (
	trackLayout35 = trackLayout{
		headerSize:  0x28,
		pointSize:   6,
		segmentType: tagTable(trackTags),
		formats: map[uint16]trackFormat{
			0x0160: {size: 6, lon: 0, lat: 2, ele: 4, time: 5, unit: timeSeconds, elevation: elevationDelta},
			0x0460: {size: 6, lon: 0, lat: 2, ele: 4, time: 5, unit: timeFourSeconds, elevation: elevationDelta},
		},
		emptyFormats: []uint16{0x0140, 0x0440},
		hasLogOffset: true,
	}

	logLayout35 = logLayout{
		segmentType: tagTable(logTags),
		formats: map[uint16]logFormat{
			0x3304: {size: 6, speed: speedFFAbsent, cadence: none, heartrate: none, temperature: 2, airpressure: 4, reserved: 1},
			0x3504: {size: 6, speed: speedFFAbsent, cadence: none, heartrate: none, temperature: 2, airpressure: 4, reserved: 1},
			0x3704: {size: 7, speed: speedFFAbsent, cadence: 1, heartrate: 2, temperature: 3, airpressure: 5, reserved: none},
		},
	}

	layout35 = blockLayout{
		trackpoints: 0x2a000 + 36,
		logpoints:   0xA8000 + 24,
		summaries:   0x11000,
		track:       trackLayout35,
		log:         logLayout35,
		check:       crossCheckFatal,
		lapStride:   32,
		synthesize:  true,
	}

	tracklist35 = tracklist{offset: 0x7f78, skip: 136, skipPlanned: true}
)

// Capacity of the storage areas. The device does not record how much of
// each is left.
const (
	space35Trackpoints = 516060
	space35Logpoints   = 315368
	space35Tracklist   = 33228
	space35Laps        = 65536
)

// Rider35 reads generation 35 devices.
type Rider35 struct {
	dev *BlockDevice
}

var _ Device = (*Rider35)(nil)

func NewRider35(dev *BlockDevice) *Rider35 {
	return &Rider35{dev: dev}
}

func (r *Rider35) Generation() Generation { return Generation35 }

func (r *Rider35) ReadSerial() (string, error) { return r.dev.ReadSerial() }

func (r *Rider35) ReadStorageUsage() (DeviceStorage, error) {
	return DeviceStorage{Areas: []AreaUsage{
		{Name: "Trackpoints", Total: space35Trackpoints, Left: -1},
		{Name: "Logpoints", Total: space35Logpoints, Left: -1},
		{Name: "Tracks", Total: space35Tracklist, Left: -1},
		{Name: "Laps", Total: space35Laps, Left: -1},
	}}, nil
}

func (r *Rider35) ReadHistory(diag track.Diagnostics) ([]*track.Track, error) {
	return tracklist35.read(r.dev, &layout35, newDecodeContext(Generation35, diag))
}
