package kernel

import "tern/internal/ktrace"

// exitSignal unwinds a task slice when the task tears itself down. It is
// recovered by the scheduler loop; nothing else may catch it.
type exitSignal struct {
	status   int
	canceled bool
}

// Exit tears down the calling task with the given status and never returns.
// It must only be called from inside a task slice.
func (k *Kernel) Exit(status int) {
	if k == nil || k.current == 0 {
		panic("kernel: Exit called outside a task slice")
	}
	k.trace(ktrace.ScopeTask, k.current, "exit", "")
	panic(exitSignal{status: status})
}

// exitCanceled tears down the calling task as a consumed cancellation and
// never returns.
func (k *Kernel) exitCanceled() {
	if k == nil || k.current == 0 {
		panic("kernel: cancellation exit outside a task slice")
	}
	k.trace(ktrace.ScopeTask, k.current, "exit", "canceled")
	panic(exitSignal{status: ExitCanceled, canceled: true})
}

// finishExit completes the teardown started by Exit once the scheduler has
// recovered the exit signal.
func (k *Kernel) finishExit(t *TCB, sig exitSignal) {
	result := ResultSuccess
	if sig.canceled {
		result = ResultCanceled
	}
	k.destroy(t, result, sig.status, true)
}
