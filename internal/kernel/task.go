package kernel

import "strings"

// Pid identifies a schedulable unit. A pid of zero is never assigned to a
// live task; request parameters use it as the "calling task" sentinel.
type Pid int32

// PidSelf is the request-parameter sentinel meaning "the calling task".
const PidSelf Pid = 0

// TaskKind classifies a schedulable unit.
type TaskKind uint8

const (
	// KindTask is an ordinary kernel-managed task.
	KindTask TaskKind = iota
	// KindKernelThread is a thread running in kernel context.
	KindKernelThread
	// KindUserThread is a user-level thread. User threads have their own
	// cancellation API and must never reach the deletion gate.
	KindUserThread
)

// String returns the string representation of TaskKind.
func (k TaskKind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindKernelThread:
		return "kthread"
	case KindUserThread:
		return "uthread"
	default:
		return "unknown"
	}
}

// CancelFlags is the cancellation state bitset of a task.
type CancelFlags uint8

const (
	// CancelNonCancelable holds every deletion request pending; nothing may
	// act on this task until it becomes cancelable again.
	CancelNonCancelable CancelFlags = 1 << iota
	// CancelDeferred opts the task into cooperative cancellation: requests
	// are recorded and consumed by the task itself at cancellation points.
	CancelDeferred
	// CancelPending records a deletion request that the target has not yet
	// consumed. The gate only ever sets this bit; only the target clears it.
	CancelPending
)

// Has reports whether all bits in mask are set.
func (f CancelFlags) Has(mask CancelFlags) bool {
	return f&mask == mask
}

// String returns the string representation of the flag set.
func (f CancelFlags) String() string {
	if f == 0 {
		return "-"
	}
	parts := make([]string, 0, 3)
	if f.Has(CancelNonCancelable) {
		parts = append(parts, "noncancelable")
	}
	if f.Has(CancelDeferred) {
		parts = append(parts, "deferred")
	}
	if f.Has(CancelPending) {
		parts = append(parts, "pending")
	}
	return strings.Join(parts, "|")
}

// TaskStatus describes task scheduling state.
type TaskStatus uint8

const (
	TaskReady TaskStatus = iota
	TaskRunning
	TaskWaiting
	TaskDone
)

// String returns the string representation of TaskStatus.
func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskWaiting:
		return "waiting"
	case TaskDone:
		return "done"
	default:
		return "unknown"
	}
}

// ResultKind describes how a task completed.
type ResultKind uint8

const (
	// ResultNone means the task has not completed.
	ResultNone ResultKind = iota
	// ResultSuccess means the task ran to completion or exited voluntarily.
	ResultSuccess
	// ResultCanceled means the task consumed a pending cancellation.
	ResultCanceled
	// ResultKilled means the task was destroyed by the termination engine.
	ResultKilled
)

// String returns the string representation of ResultKind.
func (r ResultKind) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultSuccess:
		return "success"
	case ResultCanceled:
		return "canceled"
	case ResultKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Exit status values.
const (
	ExitSuccess  = 0
	ExitCanceled = 1
)

// Poll reports back to the scheduler how a task's slice ended.
type Poll uint8

const (
	// PollYield means the task ran a slice and wants to run again.
	PollYield Poll = iota
	// PollPark means the task parked itself on a wait key.
	PollPark
	// PollDone means the task finished normally.
	PollDone
)

// ResumeCause tells a woken task why it was woken.
type ResumeCause uint8

const (
	// ResumeNone means the task was not woken from a wait.
	ResumeNone ResumeCause = iota
	// ResumeWake means an ordinary wake.
	ResumeWake
	// ResumeCanceled means the task was woken by a cancellation notification
	// and must consume the pending cancellation.
	ResumeCanceled
)

// String returns the string representation of ResumeCause.
func (c ResumeCause) String() string {
	switch c {
	case ResumeNone:
		return "none"
	case ResumeWake:
		return "wake"
	case ResumeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// TaskFunc runs one scheduling slice of a task.
type TaskFunc func(k *Kernel, t *TCB) Poll

// TCB is the kernel's record of one schedulable unit: identity, scheduling
// state and cancellation flags.
type TCB struct {
	Pid    Pid
	Name   string
	Kind   TaskKind
	Flags  CancelFlags
	Status TaskStatus

	// Resume carries the cause of the most recent wake to the task's next
	// slice. The task is expected to consume and reset it.
	Resume ResumeCause

	// Result and ExitStatus are valid once Status is TaskDone.
	Result     ResultKind
	ExitStatus int

	// State is scratch storage for the task function.
	State any

	fn      TaskFunc
	cleanup func()
	cpDepth int
}

// CancelPointDepth returns the cancellation-point nesting depth. A depth
// greater than zero means the task is suspended inside a cancellation point
// and can be woken immediately.
func (t *TCB) CancelPointDepth() int {
	if t == nil {
		return 0
	}
	return t.cpDepth
}

// Cancelable reports whether a deletion request may act on the task now.
func (t *TCB) Cancelable() bool {
	if t == nil {
		return false
	}
	return !t.Flags.Has(CancelNonCancelable)
}
