// Package testkit provides invariant checks shared by kernel tests.
package testkit

import (
	"fmt"

	"tern/internal/kernel"
)

// CheckKernelInvariants runs a minimal set of scheduler invariants:
// 1) the scheduler lock is not held between steps
// 2) no task is both queued to run and parked on a wait key
// 3) every queued or parked pid resolves to a live, non-done task
// 4) no task is marked running while the kernel is between steps
func CheckKernelInvariants(k *kernel.Kernel) error {
	if k == nil {
		return fmt.Errorf("nil kernel")
	}

	// 1) lock discipline
	if k.Lock().Held() {
		return fmt.Errorf("scheduler lock held between steps (depth %d)", k.Lock().Depth())
	}

	// 2) + 3) queue consistency
	ready := k.ReadyPids()
	seen := make(map[kernel.Pid]struct{}, len(ready))
	for _, pid := range ready {
		if _, dup := seen[pid]; dup {
			return fmt.Errorf("pid %d queued twice", pid)
		}
		seen[pid] = struct{}{}
		t := k.Registry().Lookup(pid)
		if t == nil {
			continue // destroyed while queued; the scheduler skips these
		}
		if t.Status == kernel.TaskDone {
			return fmt.Errorf("done pid %d still queued", pid)
		}
		if _, parked := k.Waiting(pid); parked {
			return fmt.Errorf("pid %d is both ready and parked", pid)
		}
	}

	// 3) + 4) registry consistency
	for _, pid := range k.Registry().Pids() {
		t := k.Registry().Lookup(pid)
		if t == nil {
			return fmt.Errorf("registry lists pid %d without a control block", pid)
		}
		if t.Pid != pid {
			return fmt.Errorf("control block pid mismatch: registered %d, carries %d", pid, t.Pid)
		}
		if t.Status == kernel.TaskRunning && k.Current() != pid {
			return fmt.Errorf("pid %d marked running between steps", pid)
		}
		if key, parked := k.Waiting(pid); parked {
			if !key.IsValid() {
				return fmt.Errorf("pid %d parked on an invalid key", pid)
			}
			if t.Status != kernel.TaskWaiting {
				return fmt.Errorf("pid %d parked but status is %s", pid, t.Status)
			}
		}
	}

	return nil
}
