package scenario

import (
	"fmt"

	"tern/internal/kernel"
)

func parseKind(s string) (kernel.TaskKind, error) {
	switch s {
	case "", "task":
		return kernel.KindTask, nil
	case "kthread":
		return kernel.KindKernelThread, nil
	default:
		return kernel.KindTask, fmt.Errorf("invalid kind %q (expected: task|kthread)", s)
	}
}

func parseFlags(flags []string) (kernel.CancelFlags, error) {
	var out kernel.CancelFlags
	for _, f := range flags {
		switch f {
		case "noncancelable":
			out |= kernel.CancelNonCancelable
		case "deferred":
			out |= kernel.CancelDeferred
		default:
			return 0, fmt.Errorf("invalid flag %q (expected: noncancelable|deferred)", f)
		}
	}
	return out, nil
}

func behaviorFor(name string) (kernel.TaskFunc, error) {
	switch name {
	case "", "spin":
		return spin, nil
	case "wait":
		return waitAtCancelPoint, nil
	case "poll":
		return pollForCancel, nil
	default:
		return nil, fmt.Errorf("invalid behavior %q (expected: spin|wait|poll)", name)
	}
}

// spin burns slices forever; it only dies by external termination.
func spin(_ *kernel.Kernel, _ *kernel.TCB) kernel.Poll {
	return kernel.PollYield
}

// waitAtCancelPoint blocks inside a cancellation point until a cancellation
// notification arrives, then consumes the pending cancellation.
func waitAtCancelPoint(k *kernel.Kernel, t *kernel.TCB) kernel.Poll {
	if t.Resume == kernel.ResumeCanceled {
		t.Resume = kernel.ResumeNone
		k.TestCancel()
	}
	t.Resume = kernel.ResumeNone
	if t.CancelPointDepth() == 0 {
		k.EnterCancelPoint()
	}
	k.WaitInCancelPoint()
	return kernel.PollPark
}

// pollForCancel keeps running but checks for a pending cancellation on every
// slice, the cooperative way.
func pollForCancel(k *kernel.Kernel, _ *kernel.TCB) kernel.Poll {
	k.TestCancel()
	return kernel.PollYield
}
