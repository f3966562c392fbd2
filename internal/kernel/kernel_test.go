package kernel

import (
	"testing"
)

func spinFor(slices int) TaskFunc {
	n := 0
	return func(_ *Kernel, _ *TCB) Poll {
		n++
		if n >= slices {
			return PollDone
		}
		return PollYield
	}
}

func TestKernelSpawnAssignsAscendingPids(t *testing.T) {
	k := New(Config{})
	a := k.Spawn("a", spinFor(1))
	b := k.Spawn("b", spinFor(1))
	if a != 1 || b != 2 {
		t.Fatalf("pids: want 1,2, got %d,%d", a, b)
	}
	if k.Spawn("nil-fn", nil) != 0 {
		t.Fatalf("spawn without a function must fail")
	}
}

func TestKernelStepRoundRobin(t *testing.T) {
	k := New(Config{})
	var order []Pid
	record := func(slices int) TaskFunc {
		n := 0
		return func(k *Kernel, tcb *TCB) Poll {
			order = append(order, tcb.Pid)
			n++
			if n >= slices {
				return PollDone
			}
			return PollYield
		}
	}
	k.Spawn("a", record(2))
	k.Spawn("b", record(2))

	steps := k.Run(0)
	if steps != 4 {
		t.Fatalf("steps: want 4, got %d", steps)
	}
	want := []Pid{1, 2, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("slices: want %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("slices: want %v, got %v", want, order)
		}
	}
	if !k.Idle() {
		t.Fatalf("kernel not idle after all tasks finished")
	}
}

func TestKernelRunBudget(t *testing.T) {
	k := New(Config{})
	k.Spawn("spinner", func(_ *Kernel, _ *TCB) Poll { return PollYield })
	if steps := k.Run(7); steps != 7 {
		t.Fatalf("budgeted steps: want 7, got %d", steps)
	}
	if k.Idle() {
		t.Fatalf("spinner should still be ready")
	}
}

func TestKernelDoneRunsCleanupAndWakesJoiner(t *testing.T) {
	k := New(Config{})
	cleanups := 0
	worker := k.SpawnTask(SpawnOptions{
		Name:    "worker",
		Kind:    KindTask,
		Cleanup: func() { cleanups++ },
		Fn:      spinFor(2),
	})

	var joined bool
	k.Spawn("joiner", func(k *Kernel, tcb *TCB) Poll {
		if tcb.Resume == ResumeWake {
			joined = true
			return PollDone
		}
		if k.Join(worker) {
			return PollPark
		}
		// Already gone, nothing to wait for.
		joined = true
		return PollDone
	})

	k.Run(0)
	if cleanups != 1 {
		t.Fatalf("cleanup ran %d times, want 1", cleanups)
	}
	if !joined {
		t.Fatalf("joiner never woke")
	}
	if k.Registry().Len() != 0 {
		t.Fatalf("registry not empty: %d entries", k.Registry().Len())
	}
}

func TestKernelJoinOnGoneTarget(t *testing.T) {
	k := New(Config{})
	done := false
	k.Spawn("joiner", func(k *Kernel, _ *TCB) Poll {
		if k.Join(42) {
			t.Errorf("join on a gone pid must not park")
			return PollPark
		}
		done = true
		return PollDone
	})
	k.Run(0)
	if !done {
		t.Fatalf("joiner never finished")
	}
}

func TestKernelParkAndWakeOne(t *testing.T) {
	k := New(Config{})
	key := EventKey(1)
	woken := 0
	sleeper := func(k *Kernel, tcb *TCB) Poll {
		if tcb.Resume == ResumeWake {
			woken++
			return PollDone
		}
		k.ParkCurrent(key)
		return PollPark
	}
	a := k.Spawn("a", sleeper)
	b := k.Spawn("b", sleeper)

	k.Step()
	k.Step()
	if !k.Idle() {
		t.Fatalf("both sleepers should be parked")
	}
	if _, ok := k.Waiting(a); !ok {
		t.Fatalf("pid %d not recorded as waiting", a)
	}

	k.WakeOne(key)
	k.Run(0)
	if woken != 1 {
		t.Fatalf("woken after WakeOne: want 1, got %d", woken)
	}
	if _, ok := k.Waiting(b); !ok {
		t.Fatalf("pid %d should still be waiting", b)
	}

	k.WakeAll(key)
	k.Run(0)
	if woken != 2 {
		t.Fatalf("woken after WakeAll: want 2, got %d", woken)
	}
}

func TestKernelSelfDeleteExits(t *testing.T) {
	k := New(Config{})
	pid := k.Spawn("victim", func(k *Kernel, _ *TCB) Poll {
		_, _ = k.Delete(PidSelf)
		t.Errorf("self-delete returned to the task")
		return PollDone
	})
	tcb := k.Registry().Lookup(pid)

	k.Run(0)
	if tcb.Status != TaskDone {
		t.Fatalf("status: want done, got %s", tcb.Status)
	}
	if tcb.Result != ResultSuccess {
		t.Fatalf("result: want success, got %s", tcb.Result)
	}
	if tcb.ExitStatus != ExitSuccess {
		t.Fatalf("exit status: want %d, got %d", ExitSuccess, tcb.ExitStatus)
	}
	if k.Registry().Lookup(pid) != nil {
		t.Fatalf("victim still registered after exit")
	}
}

func TestKernelExitOutsideSlicePanics(t *testing.T) {
	k := New(Config{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic from Exit outside a task slice")
		}
	}()
	k.Exit(ExitSuccess)
}

func TestKernelStepPanicsOnHeldLock(t *testing.T) {
	k := New(Config{})
	k.Spawn("leaker", func(k *Kernel, _ *TCB) Poll {
		k.Lock().Acquire()
		return PollYield
	})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when a slice leaves the lock held")
		}
	}()
	k.Step()
}

func TestKernelFuzzDeterministicPerSeed(t *testing.T) {
	runOrder := func(seed uint64) []Pid {
		k := New(Config{Fuzz: true, Seed: seed})
		var order []Pid
		for i := 0; i < 4; i++ {
			k.Spawn("t", func(_ *Kernel, tcb *TCB) Poll {
				order = append(order, tcb.Pid)
				return PollDone
			})
		}
		k.Run(0)
		return order
	}

	first := runOrder(7)
	second := runOrder(7)
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("incomplete runs: %v / %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed diverged: %v vs %v", first, second)
		}
	}
}
