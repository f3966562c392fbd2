package kernel

import "tern/internal/ktrace"

// EnterCancelPoint marks the running task as inside a cancellation point.
// Nests.
func (k *Kernel) EnterCancelPoint() {
	t := k.CurrentTCB()
	if t == nil {
		return
	}
	t.cpDepth++
	k.trace(ktrace.ScopeTask, t.Pid, "cancelpoint", "enter")
}

// LeaveCancelPoint undoes one EnterCancelPoint.
func (k *Kernel) LeaveCancelPoint() {
	t := k.CurrentTCB()
	if t == nil {
		return
	}
	if t.cpDepth == 0 {
		panic("kernel: cancellation point left more times than entered")
	}
	t.cpDepth--
	k.trace(ktrace.ScopeTask, t.Pid, "cancelpoint", "leave")
}

// TestCancel is a synthetic cancellation point: it consumes a pending
// cancellation on the running task, diverting into the self-exit path. It
// does nothing while the task is non-cancelable or when no cancellation is
// pending.
func (k *Kernel) TestCancel() {
	t := k.CurrentTCB()
	if t == nil {
		return
	}
	if !t.Cancelable() || !t.Flags.Has(CancelPending) {
		return
	}
	k.exitCanceled()
}

// WaitInCancelPoint parks the running task inside a cancellation point on
// its own cancel-point key. The task's slice must return PollPark. On the
// next slice the task observes Resume and, if woken by a cancellation
// notification, is expected to call TestCancel.
func (k *Kernel) WaitInCancelPoint() {
	t := k.CurrentTCB()
	if t == nil {
		return
	}
	if t.cpDepth == 0 {
		panic("kernel: wait outside a cancellation point")
	}
	k.ParkCurrent(CancelPointKey(t.Pid))
}

// NotifyCancellation wakes a task blocked inside a cancellation point,
// delivering the canceled cause to its interrupted wait. Callers only invoke
// it when the target's cancellation-point depth is positive.
func (k *Kernel) NotifyCancellation(t *TCB) {
	if k == nil || t == nil {
		return
	}
	t.Resume = ResumeCanceled
	k.trace(ktrace.ScopeTask, t.Pid, "notify", "canceled")
	k.Wake(t.Pid)
}
