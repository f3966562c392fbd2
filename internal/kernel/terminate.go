package kernel

import (
	"fmt"

	"tern/internal/ktrace"
)

// Terminate destroys the target task's control block, removes it from all
// scheduling structures and wakes any joiners. It is the asynchronous side
// of task deletion: the target does not cooperate and gets no say.
//
// forced=false is the normal kill and runs the task's cleanup hook;
// forced=true skips it. Terminate must not be used on the running task;
// that is what the self-exit path is for.
func (k *Kernel) Terminate(pid Pid, forced bool) error {
	if k == nil {
		return ErrNoSuchTask
	}
	t := k.reg.Lookup(pid)
	if t == nil {
		return ErrNoSuchTask
	}
	if pid == k.current {
		panic(fmt.Sprintf("kernel: terminate called on the running task (pid %d)", pid))
	}
	k.destroy(t, ResultKilled, ExitSuccess, !forced)
	k.trace(ktrace.ScopeKernel, pid, "terminate", fmt.Sprintf("forced=%v", forced))
	return nil
}
