package brytongps

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/lo/mutable"

	"github.com/lucasjlepore/bryton-gps/rider"
	"github.com/lucasjlepore/bryton-gps/track"
)

var ErrInvalidTrackID = errors.New("invalid track id")

// ReadHistory returns the rides of dev with the most recent first.
func ReadHistory(dev rider.Device, diag track.Diagnostics) ([]*track.Track, error) {
	history, err := dev.ReadHistory(diag)
	if err != nil {
		return nil, fmt.Errorf("read %s history: %w", dev.Generation(), err)
	}
	out := append([]*track.Track(nil), history...)
	mutable.Reverse(out)
	return out, nil
}

// SelectTracks picks rides by their index in history.
func SelectTracks(history []*track.Track, ids []string) ([]*track.Track, error) {
	tracks := make([]*track.Track, 0, len(ids))
	for _, id := range ids {
		i, err := strconv.Atoi(id)
		if err != nil || i < 0 || i >= len(history) {
			return nil, fmt.Errorf("%w %s", ErrInvalidTrackID, id)
		}
		tracks = append(tracks, history[i])
	}
	return tracks, nil
}
