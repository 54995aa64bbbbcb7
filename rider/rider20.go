package rider

import "github.com/lucasjlepore/bryton-gps/track"

var (
	trackLayout20 = trackLayout{
		headerSize:  0x28,
		pointSize:   6,
		segmentType: tagTable(trackTags),
		formats: map[uint16]trackFormat{
			0x0161: {size: 6, lon: 0, lat: 2, ele: 4, time: 5, unit: timeSeconds, elevation: elevationSteps},
		},
		emptyFormats:    []uint16{0x0161, 0x0140, 0x0141},
		hasLogOffset:    true,
		smoothElevation: true,
	}

	// generation 20 only records speed
	logLayout20 = logLayout{
		segmentType: tagTable(logTags),
		formats: map[uint16]logFormat{
			0x8104: {size: 1, speed: speedNoSentinel, cadence: none, heartrate: none, temperature: none, airpressure: none, reserved: none},
			0x0104: {size: 1, speed: speedNoSentinel, cadence: none, heartrate: none, temperature: none, airpressure: none, reserved: none},
		},
		pointSize: 1,
	}

	layout20 = blockLayout{
		trackpoints: 0x36000 + 24,
		logpoints:   0xAE000 + 24,
		summaries:   0x11000,
		track:       trackLayout20,
		log:         logLayout20,
		check:       crossCheckFatal,
		// lap records are not decoded, LapSummaries falls back to the summary
		lapStride: 0,
	}

	tracklist20 = tracklist{offset: 0x8e94, skip: 24}
)

// Rider20 reads generation 20 devices. The device has no altimeter;
// elevation comes from a coarse GPS reading and is smoothed.
type Rider20 struct {
	dev *BlockDevice
}

var _ Device = (*Rider20)(nil)

func NewRider20(dev *BlockDevice) *Rider20 {
	return &Rider20{dev: dev}
}

func (r *Rider20) Generation() Generation { return Generation20 }

func (r *Rider20) ReadSerial() (string, error) { return r.dev.ReadSerial() }

func (r *Rider20) ReadStorageUsage() (DeviceStorage, error) {
	return DeviceStorage{}, ErrStorageUnavailable
}

func (r *Rider20) ReadHistory(diag track.Diagnostics) ([]*track.Track, error) {
	return tracklist20.read(r.dev, &layout20, newDecodeContext(Generation20, diag))
}
