package track

import (
	"fmt"
	"sync"
)

// WarningKind names a class of recoverable decode anomalies.
type WarningKind string

const (
	WarnOffsetDrift      WarningKind = "offset-drift"
	WarnUnexpectedOffset WarningKind = "unexpected-offset"
	WarnSegmentMismatch  WarningKind = "segment-mismatch"
	WarnUnexpectedPoints WarningKind = "unexpected-points"
	WarnUntestedFormat   WarningKind = "untested-format"
	WarnUnknownModel     WarningKind = "unknown-model"
)

// Warning is a correctness warning raised while decoding. Decoding continues
// after a warning.
type Warning struct {
	Generation string      `json:"generation"`
	Kind       WarningKind `json:"kind"`
	Message    string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Generation, w.Kind, w.Message)
}

// Diagnostics receives correctness warnings.
type Diagnostics interface {
	Warn(w Warning)
}

// DiagnosticsFunc adapts a function to Diagnostics.
type DiagnosticsFunc func(Warning)

func (f DiagnosticsFunc) Warn(w Warning) { f(w) }

// Discard drops every warning.
var Discard Diagnostics = DiagnosticsFunc(func(Warning) {})

// Collector keeps warnings in arrival order. Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

func (c *Collector) Warn(w Warning) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

// Warnings returns a copy of the collected warnings.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Warning(nil), c.warnings...)
}

// Messages returns the warnings formatted as strings.
func (c *Collector) Messages() []string {
	ws := c.Warnings()
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}
