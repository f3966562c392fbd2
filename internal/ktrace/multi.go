package ktrace

import "errors"

// MultiTracer mirrors every event to a set of underlying sinks. It backs the
// "both" storage mode, where a live stream and a post-mortem ring record the
// same run.
type MultiTracer struct {
	level Level
	sinks []Tracer
}

// NewMultiTracer builds a tracer that forwards to all of sinks.
func NewMultiTracer(level Level, sinks ...Tracer) *MultiTracer {
	return &MultiTracer{level: level, sinks: sinks}
}

// Emit forwards the event to every sink. Each sink applies its own level
// filter, so a debug ring can ride along with an op-level stream.
func (t *MultiTracer) Emit(ev Event) {
	for _, s := range t.sinks {
		s.Emit(ev)
	}
}

// Flush flushes every sink and reports the combined failures.
func (t *MultiTracer) Flush() error {
	errs := make([]error, 0, len(t.sinks))
	for _, s := range t.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every sink, even when an early one fails.
func (t *MultiTracer) Close() error {
	errs := make([]error, 0, len(t.sinks))
	for _, s := range t.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Level returns the configured level.
func (t *MultiTracer) Level() Level { return t.level }

// Enabled reports whether tracing is active.
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
