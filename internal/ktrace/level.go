package ktrace

import "fmt"

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff   Level = iota // no tracing
	LevelError              // only emit via post-mortem dumps
	LevelOp                 // kernel operation boundaries
	LevelSched              // scheduler queue events
	LevelDebug              // everything including per-task detail
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelOp:
		return "op"
	case LevelSched:
		return "sched"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF":
		return LevelOff, nil
	case "error", "ERROR":
		return LevelError, nil
	case "op", "OP":
		return LevelOp, nil
	case "sched", "SCHED":
		return LevelSched, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|op|sched|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError:
		return false // error events only surface through ring dumps
	case LevelOp:
		return scope <= ScopeKernel
	case LevelSched:
		return scope <= ScopeSched
	case LevelDebug:
		return true
	}
	return false
}
