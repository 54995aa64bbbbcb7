package track

// cloneSegments copies segments and their points so callers can rewrite
// points without touching a Track's cached data.
func cloneSegments(segs []TrackSegment) []TrackSegment {
	out := make([]TrackSegment, len(segs))
	for i, seg := range segs {
		out[i] = seg
		out[i].Points = append([]TrackPoint(nil), seg.Points...)
	}
	return out
}

// FixElevation shifts every point so the first point sits at elevation.
func FixElevation(segs []TrackSegment, elevation float64) []TrackSegment {
	out := cloneSegments(segs)
	var diff float64
	found := false
	for i := range out {
		for j := range out[i].Points {
			p := &out[i].Points[j]
			if !found {
				diff = elevation - p.Elevation
				found = true
			}
			p.Elevation += diff
		}
	}
	return out
}

// StripElevation sets every elevation to zero.
func StripElevation(segs []TrackSegment) []TrackSegment {
	out := cloneSegments(segs)
	for i := range out {
		for j := range out[i].Points {
			out[i].Points[j].Elevation = 0
		}
	}
	return out
}
