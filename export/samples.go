package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// Sample is one row of the merged GPS and sensor stream.
type Sample struct {
	TSUTCISO     string
	Timestamp    int64
	ElapsedS     float64
	Segment      int
	Latitude     *float64
	Longitude    *float64
	ElevationM   *float64
	SpeedKmh     *float64
	HRBPM        *float64
	CadenceRPM   *float64
	PowerW       *float64
	TemperatureC *float64
	AirPressure  *float64
	ValidGPS     bool
	ValidSensor  bool
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// Samples flattens the merged segments of r. Segments without GPS points
// are skipped.
func Samples(r *Ride) []Sample {
	var out []Sample
	for i, merged := range r.Merged() {
		for _, mp := range merged {
			ts := mp.Timestamp()
			s := Sample{
				TSUTCISO:  formatTimestamp(ts),
				Timestamp: ts,
				ElapsedS:  float64(ts - r.Timestamp),
				Segment:   i,
			}
			if p := mp.Track; p != nil {
				s.ValidGPS = true
				s.Latitude = &p.Latitude
				s.Longitude = &p.Longitude
				s.ElevationM = &p.Elevation
			}
			if lp := mp.Log; lp != nil {
				s.ValidSensor = true
				s.SpeedKmh = lp.Speed
				s.HRBPM = intToFloat(lp.Heartrate)
				s.CadenceRPM = intToFloat(lp.Cadence)
				s.PowerW = intToFloat(lp.Watts)
				s.TemperatureC = lp.Temperature
				s.AirPressure = lp.Airpressure
			}
			out = append(out, s)
		}
	}
	return out
}

var sampleHeader = []string{
	"ts_utc_iso", "elapsed_s", "segment", "latitude", "longitude", "elevation_m", "speed_kmh",
	"hr_bpm", "cadence_rpm", "power_w", "temperature_c", "airpressure",
	"valid_gps", "valid_sensor",
}

// WriteCSV writes the merged samples of r with a header row. Missing values
// are empty cells.
func WriteCSV(w io.Writer, r *Ride) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sampleHeader); err != nil {
		return err
	}
	for _, s := range Samples(r) {
		row := []string{
			s.TSUTCISO,
			formatFloat(s.ElapsedS),
			strconv.Itoa(s.Segment),
			formatFloatPtr(s.Latitude),
			formatFloatPtr(s.Longitude),
			formatFloatPtr(s.ElevationM),
			formatFloatPtr(s.SpeedKmh),
			formatFloatPtr(s.HRBPM),
			formatFloatPtr(s.CadenceRPM),
			formatFloatPtr(s.PowerW),
			formatFloatPtr(s.TemperatureC),
			formatFloatPtr(s.AirPressure),
			strconv.FormatBool(s.ValidGPS),
			strconv.FormatBool(s.ValidSensor),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type sampleParquetRow struct {
	TSUTCISO     string  `parquet:"name=ts_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp    int64   `parquet:"name=timestamp, type=INT64"`
	ElapsedS     float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	Segment      int32   `parquet:"name=segment, type=INT32"`
	Latitude     float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude    float64 `parquet:"name=longitude, type=DOUBLE"`
	ElevationM   float64 `parquet:"name=elevation_m, type=DOUBLE"`
	SpeedKmh     float64 `parquet:"name=speed_kmh, type=DOUBLE"`
	HRBPM        float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	CadenceRPM   float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	PowerW       float64 `parquet:"name=power_w, type=DOUBLE"`
	TemperatureC float64 `parquet:"name=temperature_c, type=DOUBLE"`
	AirPressure  float64 `parquet:"name=airpressure, type=DOUBLE"`
	ValidGPS     bool    `parquet:"name=valid_gps, type=BOOLEAN"`
	ValidSensor  bool    `parquet:"name=valid_sensor, type=BOOLEAN"`
}

func newSampleParquetRow(s Sample) sampleParquetRow {
	return sampleParquetRow{
		TSUTCISO:     s.TSUTCISO,
		Timestamp:    s.Timestamp,
		ElapsedS:     s.ElapsedS,
		Segment:      int32(s.Segment),
		Latitude:     valueOrNaN(s.Latitude),
		Longitude:    valueOrNaN(s.Longitude),
		ElevationM:   valueOrNaN(s.ElevationM),
		SpeedKmh:     valueOrNaN(s.SpeedKmh),
		HRBPM:        valueOrNaN(s.HRBPM),
		CadenceRPM:   valueOrNaN(s.CadenceRPM),
		PowerW:       valueOrNaN(s.PowerW),
		TemperatureC: valueOrNaN(s.TemperatureC),
		AirPressure:  valueOrNaN(s.AirPressure),
		ValidGPS:     s.ValidGPS,
		ValidSensor:  s.ValidSensor,
	}
}

func writeParquetRows(fw source.ParquetFile, samples []Sample) error {
	pw, err := writer.NewParquetWriter(fw, new(sampleParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range samples {
		if err := pw.Write(newSampleParquetRow(s)); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

// MarshalParquet encodes the merged samples of r in memory.
func MarshalParquet(r *Ride) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeParquetRows(fw, Samples(r)); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteParquetFile writes the merged samples of r to path.
func WriteParquetFile(path string, r *Ride) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeParquetRows(fw, Samples(r)); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
