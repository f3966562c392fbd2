// Package ktrace provides the tracing subsystem for the tern kernel.
//
// The package records scheduler and task lifecycle events (spawn, park,
// wake, deletion requests, termination) to help diagnose misbehaving
// scenarios and hangs.
//
// # Architecture
//
// Several tracer implementations are provided:
//
//   - nop tracer: zero-overhead when tracing is disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
// Verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelError: only post-mortem dumps
//   - LevelOp: kernel operations (deletion requests, run boundaries)
//   - LevelSched: scheduler events (steps, queue transitions)
//   - LevelDebug: everything including per-task flag changes
//
// # Context propagation
//
// Tracers travel through the CLI and scenario runner via context:
//
//	ctx = ktrace.WithTracer(ctx, tracer)
//	t := ktrace.FromContext(ctx)
package ktrace
