package kernel

import "fmt"

// Terminator destroys a non-running task's control block and stack.
type Terminator interface {
	Terminate(pid Pid, forced bool) error
}

// Notifier wakes a task blocked inside a cancellation point.
type Notifier interface {
	NotifyCancellation(t *TCB)
}

// Outcome reports how a deletion request was resolved.
type Outcome uint8

const (
	// OutcomeNone is the zero outcome, paired with an error.
	OutcomeNone Outcome = iota
	// OutcomeKilled means the termination engine destroyed the target.
	OutcomeKilled
	// OutcomePendingHeld means the target is non-cancelable; the request is
	// recorded and held until the target changes its cancelability.
	OutcomePendingHeld
	// OutcomePendingDeferred means the target cancels cooperatively; the
	// request is recorded for the target to consume at a cancellation point.
	OutcomePendingDeferred
	// OutcomeSelfExit means the request was diverted into the caller's own
	// exit path. It is never observed as a return value: that path does not
	// return.
	OutcomeSelfExit
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeKilled:
		return "killed"
	case OutcomePendingHeld:
		return "pending-held"
	case OutcomePendingDeferred:
		return "pending-deferred"
	case OutcomeSelfExit:
		return "self-exit"
	default:
		return "none"
	}
}

// Gate decides, per deletion request, whether to kill the target
// immediately, defer the kill until the target cooperates, or divert the
// request into the caller's own exit path. Its collaborators are injected so
// the decision procedure is testable in isolation.
type Gate struct {
	Registry *Registry
	Lock     *SchedLock
	Engine   Terminator
	Notifier Notifier

	// Exit performs full teardown of the calling task and must not return.
	Exit func(status int)

	// Current reports the pid of the calling task.
	Current func() Pid

	// CancellationPoints mirrors the kernel's deferred-cancellation support.
	CancellationPoints bool
}

// Delete requests deletion of the task identified by pid. A pid of zero
// means the calling task, in which case Delete behaves like an exit that
// obeys cancellation semantics and never returns.
//
// The flag decision runs entirely under the scheduler lock so the target's
// cancellation state is stable while it is read; the lock is released before
// anything that can block or not return. Non-cancelable wins over deferred
// when both flags are set. Deferred outcomes are successes: the deletion is
// recorded, not enacted, and it becomes the target's own job to act on the
// pending flag.
func (g *Gate) Delete(pid Pid) (Outcome, error) {
	caller := g.Current()
	if pid == PidSelf {
		pid = caller
	}

	t := g.Registry.Lookup(pid)
	if t == nil {
		// The task has probably already exited.
		return OutcomeNone, fmt.Errorf("delete pid %d: %w", pid, ErrNoSuchTask)
	}

	// Only tasks and kernel threads may pass through this gate.
	if t.Kind == KindUserThread {
		panic(fmt.Sprintf("kernel: delete called on user thread (pid %d)", pid))
	}

	// Suppress task switching so the flags stay stable while we decide.
	g.Lock.Acquire()

	if t.Flags.Has(CancelNonCancelable) {
		// All cancels are held pending in the target until it changes its
		// cancelability.
		t.Flags |= CancelPending
		g.Lock.Release()
		return OutcomePendingHeld, nil
	}

	if g.CancellationPoints && t.Flags.Has(CancelDeferred) {
		// Record the request; if the target is waiting at a cancellation
		// point, wake it with the canceled cause so it can act on the flag.
		t.Flags |= CancelPending
		if t.cpDepth > 0 {
			g.Notifier.NotifyCancellation(t)
		}
		g.Lock.Release()
		return OutcomePendingDeferred, nil
	}

	g.Lock.Release()

	// Deleting the calling task is really an exit. Checked only after the
	// lock is dropped: the exit path does not return.
	if pid == caller {
		g.Exit(ExitSuccess)
		panic("kernel: exit path returned")
	}

	// Asynchronous cancellation: the termination engine does the heavy
	// lifting, and its verdict is forwarded unchanged.
	if err := g.Engine.Terminate(pid, false); err != nil {
		return OutcomeNone, fmt.Errorf("delete pid %d: %w", pid, err)
	}
	return OutcomeKilled, nil
}
