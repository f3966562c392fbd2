package ktrace

import (
	"sync/atomic"
	"time"
)

// Scope indicates the granularity level of an event.
// Lower numeric values represent higher-level/coarser events.
type Scope uint8

const (
	// ScopeKernel represents top-level kernel operations (run, delete).
	ScopeKernel Scope = iota + 1
	// ScopeSched represents scheduler queue transitions (step, park, wake).
	ScopeSched
	// ScopeTask represents per-task detail (flag changes, depth changes).
	ScopeTask
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeKernel:
		return "kernel"
	case ScopeSched:
		return "sched"
	case ScopeTask:
		return "task"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time   time.Time // wall-clock timestamp
	Seq    uint64    // global sequence number (monotonic)
	Scope  Scope     // granularity level
	Pid    int32     // task the event concerns (0 if none)
	Name   string    // e.g. "delete", "park", "terminate"
	Detail string    // optional detail message
}

var seqCounter atomic.Uint64

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 {
	return seqCounter.Add(1)
}
