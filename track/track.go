package track

import (
	"fmt"
	"sync"
)

// Decoder materializes one ride for a specific device generation.
type Decoder interface {
	Trackpoints() ([]TrackSegment, error)
	Logpoints(trackpoints []TrackSegment) ([]LogSegment, error)
	// Summaries returns the ride summary and the laps, including a
	// synthesized trailing lap where the generation produces one.
	Summaries(t *Track) (Summary, []Summary, error)
	StorageUsage(t *Track) (StorageUsage, error)
}

// Lazy is a compute-once cell.
type Lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

// Get runs compute on the first call and returns its result on every call.
func (l *Lazy[T]) Get(compute func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = compute() })
	return l.val, l.err
}

type summaries struct {
	summary Summary
	laps    []Summary
}

// Track is one recorded ride. Points, summaries and storage usage are
// decoded on first access and cached for the life of the Track.
type Track struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	LapCount  int    `json:"lap_count"`

	decoder     Decoder
	trackpoints Lazy[[]TrackSegment]
	logpoints   Lazy[[]LogSegment]
	summaries   Lazy[summaries]
	merged      Lazy[[][]MergedPoint]
	storage     Lazy[StorageUsage]
}

// New returns a Track backed by decoder.
func New(name string, timestamp int64, lapCount int, decoder Decoder) *Track {
	return &Track{Name: name, Timestamp: timestamp, LapCount: lapCount, decoder: decoder}
}

func (t *Track) Trackpoints() ([]TrackSegment, error) {
	return t.trackpoints.Get(func() ([]TrackSegment, error) {
		segs, err := t.decoder.Trackpoints()
		if err != nil {
			return nil, fmt.Errorf("track %q trackpoints: %w", t.Name, err)
		}
		return segs, nil
	})
}

func (t *Track) Logpoints() ([]LogSegment, error) {
	return t.logpoints.Get(func() ([]LogSegment, error) {
		tps, err := t.Trackpoints()
		if err != nil {
			return nil, err
		}
		segs, err := t.decoder.Logpoints(tps)
		if err != nil {
			return nil, fmt.Errorf("track %q logpoints: %w", t.Name, err)
		}
		return segs, nil
	})
}

func (t *Track) readSummaries() (summaries, error) {
	return t.summaries.Get(func() (summaries, error) {
		s, laps, err := t.decoder.Summaries(t)
		if err != nil {
			return summaries{}, fmt.Errorf("track %q summary: %w", t.Name, err)
		}
		return summaries{summary: s, laps: laps}, nil
	})
}

// Summary returns the whole-ride summary.
func (t *Track) Summary() (Summary, error) {
	s, err := t.readSummaries()
	return s.summary, err
}

// LapSummaries returns the laps. A ride without laps has a single lap equal
// to its summary.
func (t *Track) LapSummaries() ([]Summary, error) {
	s, err := t.readSummaries()
	if err != nil {
		return nil, err
	}
	if len(s.laps) == 0 {
		return []Summary{s.summary}, nil
	}
	return s.laps, nil
}

// MergedSegments merges each track segment with the log segment at the same
// index. Empty track segments are skipped when removeEmpty is set. The merge
// runs once; callers share the returned point slices.
func (t *Track) MergedSegments(removeEmpty bool) ([][]MergedPoint, error) {
	all, err := t.merged.Get(func() ([][]MergedPoint, error) {
		tps, err := t.Trackpoints()
		if err != nil {
			return nil, err
		}
		lps, err := t.Logpoints()
		if err != nil {
			return nil, err
		}
		n := min(len(tps), len(lps))
		out := make([][]MergedPoint, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, MergeSegments(tps[i], lps[i]))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	tps, _ := t.Trackpoints()
	out := make([][]MergedPoint, 0, len(all))
	for i, seg := range all {
		if removeEmpty && len(tps[i].Points) == 0 {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

func (t *Track) StorageUsage() (StorageUsage, error) {
	return t.storage.Get(func() (StorageUsage, error) {
		return t.decoder.StorageUsage(t)
	})
}
