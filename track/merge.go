package track

import (
	"cmp"
	"slices"
)

// maxPairGap is the largest timestamp distance, in seconds, at which a GPS
// point and a sensor point are paired.
const maxPairGap = 2

type mergeItem struct {
	ts int64
	tp *TrackPoint
	lp *LogPoint
}

func (m mergeItem) isTrack() bool { return m.tp != nil }

func sameKind(a, b mergeItem) bool { return a.isTrack() == b.isTrack() }

func single(a mergeItem) MergedPoint {
	return MergedPoint{Track: a.tp, Log: a.lp}
}

func pair(a, b mergeItem) MergedPoint {
	if sameKind(a, b) {
		panic("track: cannot pair two points from the same stream")
	}
	if a.isTrack() {
		return MergedPoint{Track: a.tp, Log: b.lp}
	}
	return MergedPoint{Track: b.tp, Log: a.lp}
}

// MergeSegments merges a GPS segment and a sensor segment into one time
// ordered stream. Points closer than maxPairGap seconds are paired, picking
// the closest neighbour within a four item lookahead window. Every input point
// appears in exactly one output tuple.
func MergeSegments(ts TrackSegment, ls LogSegment) []MergedPoint {
	items := make([]mergeItem, 0, len(ts.Points)+len(ls.Points))
	for i := range ts.Points {
		items = append(items, mergeItem{ts: ts.Points[i].Timestamp, tp: &ts.Points[i]})
	}
	for i := range ls.Points {
		items = append(items, mergeItem{ts: ls.Points[i].Timestamp, lp: &ls.Points[i]})
	}
	slices.SortStableFunc(items, func(a, b mergeItem) int { return cmp.Compare(a.ts, b.ts) })

	out := make([]MergedPoint, 0, len(items))
	next := min(4, len(items))
	w := slices.Clone(items[:next])

	for len(w) > 1 {
		switch {
		case w[0].ts == w[1].ts:
			if sameKind(w[0], w[1]) {
				out = append(out, single(w[0]))
				w = w[1:]
			} else {
				out = append(out, pair(w[0], w[1]))
				w = w[2:]
			}
		case w[1].ts-w[0].ts > maxPairGap:
			out = append(out, single(w[0]))
			w = w[1:]
		case sameKind(w[0], w[1]):
			out = append(out, single(w[0]))
			w = w[1:]
		case len(w) > 2 && sameKind(w[1], w[2]):
			out = append(out, pair(w[0], w[1]))
			w = w[2:]
		case len(w) > 3 && w[2].ts == w[3].ts:
			out = append(out, pair(w[0], w[1]))
			w = w[2:]
		case len(w) > 2:
			if w[1].ts-w[0].ts > w[2].ts-w[1].ts {
				out = append(out, single(w[0]), pair(w[1], w[2]))
				w = w[3:]
			} else {
				out = append(out, pair(w[0], w[1]))
				w = w[2:]
			}
		default:
			if w[1].ts-w[0].ts <= maxPairGap {
				out = append(out, pair(w[0], w[1]))
			} else {
				out = append(out, single(w[0]), single(w[1]))
			}
			w = w[2:]
		}

		for len(w) < 4 && next < len(items) {
			w = append(w, items[next])
			next++
		}
	}
	if len(w) == 1 {
		out = append(out, single(w[0]))
	}
	return out
}
