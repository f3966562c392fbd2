package ktrace

// Nop is the tracer in effect when tracing is disabled. Every method is a
// no-op; kernel call sites additionally gate on Enabled so disabled tracing
// costs nothing.
var Nop Tracer = nopTracer{}

type nopTracer struct{}

func (nopTracer) Emit(Event)    {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }
