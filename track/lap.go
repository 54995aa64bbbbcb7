package track

import (
	"github.com/samber/lo"
)

// SynthesizeTrailingLap returns laps with one extra lap appended when the
// reported laps end before the ride does. Its totals are the ride totals
// minus every reported lap, its ride time is copied from the last reported
// lap, and its averages are recomputed from the sensor points recorded after
// the last reported lap ended. merged must include empty track segments.
func SynthesizeTrailingLap(summary Summary, laps []Summary, merged [][]MergedPoint) []Summary {
	if len(laps) == 0 || laps[len(laps)-1].End >= summary.End {
		return laps
	}

	last := Summary{
		Start:        laps[len(laps)-1].End,
		End:          summary.End,
		Distance:     summary.Distance,
		Calories:     summary.Calories,
		AltitudeGain: summary.AltitudeGain,
		AltitudeLoss: summary.AltitudeLoss,
		RideTime:     summary.RideTime,
	}
	for _, lap := range laps {
		last.Distance -= lap.Distance
		last.Calories -= lap.Calories
		last.AltitudeGain -= lap.AltitudeGain
		last.AltitudeLoss -= lap.AltitudeLoss
		// the device repeats the previous lap's ride time
		last.RideTime = lap.RideTime
	}

	var speed []float64
	var hr, cad []int
	for _, seg := range merged {
		for _, mp := range seg {
			if mp.Timestamp() <= last.Start || mp.Log == nil {
				continue
			}
			lp := mp.Log
			if lp.Speed != nil && *lp.Speed > 0 {
				speed = append(speed, *lp.Speed)
			}
			if lp.Heartrate != nil && *lp.Heartrate > 0 {
				hr = append(hr, *lp.Heartrate)
			}
			if lp.Cadence != nil && *lp.Cadence > 0 {
				cad = append(cad, *lp.Cadence)
			}
		}
	}

	if len(speed) > 0 {
		last.Speed = AvgMax{Avg: lo.Sum(speed) / float64(len(speed)), Max: lo.Max(speed)}
	}
	last.Heartrate = intAvgMax(hr)
	last.Cadence = intAvgMax(cad)

	return append(laps[:len(laps):len(laps)], last)
}

// intAvgMax averages whole-number samples with a floored mean, matching the
// device's own lap figures.
func intAvgMax(values []int) *AvgMax {
	if len(values) == 0 {
		return nil
	}
	return &AvgMax{
		Avg: float64(lo.Sum(values) / len(values)),
		Max: float64(lo.Max(values)),
	}
}
