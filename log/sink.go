package log

import (
	"go.uber.org/zap"

	"github.com/lucasjlepore/bryton-gps/track"
)

// Sink reports decode warnings through a zap logger.
type Sink struct {
	Logger *zap.Logger
}

// NewSink returns a Sink writing to the package logger when l is nil.
func NewSink(l *zap.Logger) *Sink {
	if l == nil {
		l = Logger
	}
	return &Sink{Logger: l}
}

func (s *Sink) Warn(w track.Warning) {
	s.Logger.Warn(w.Message,
		zap.String("generation", w.Generation),
		zap.String("kind", string(w.Kind)),
	)
}

// Tee forwards warnings to every sink.
func Tee(sinks ...track.Diagnostics) track.Diagnostics {
	return track.DiagnosticsFunc(func(w track.Warning) {
		for _, s := range sinks {
			s.Warn(w)
		}
	})
}
