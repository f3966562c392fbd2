package kernel

import (
	"errors"
	"fmt"
	"testing"
)

type engineCall struct {
	pid    Pid
	forced bool
}

type stubEngine struct {
	calls  []engineCall
	err    error
	onCall func()
}

func (e *stubEngine) Terminate(pid Pid, forced bool) error {
	e.calls = append(e.calls, engineCall{pid: pid, forced: forced})
	if e.onCall != nil {
		e.onCall()
	}
	return e.err
}

type stubNotifier struct {
	calls []*TCB
}

func (n *stubNotifier) NotifyCancellation(t *TCB) {
	n.calls = append(n.calls, t)
}

// exitCalled marks the divergence of the injected exit path in tests.
type exitCalled struct {
	status int
}

// newTestGate wires a gate around stub collaborators. The caller is a plain
// task with pid 1.
func newTestGate(points bool) (*Gate, *stubEngine, *stubNotifier) {
	reg := NewRegistry()
	reg.Insert(&TCB{Pid: 1, Name: "caller", Kind: KindTask, Status: TaskRunning})

	engine := &stubEngine{}
	notifier := &stubNotifier{}
	g := &Gate{
		Registry:           reg,
		Lock:               &SchedLock{},
		Engine:             engine,
		Notifier:           notifier,
		Exit:               func(status int) { panic(exitCalled{status: status}) },
		Current:            func() Pid { return 1 },
		CancellationPoints: points,
	}
	return g, engine, notifier
}

func TestDeleteUnknownPid(t *testing.T) {
	g, engine, notifier := newTestGate(true)

	out, err := g.Delete(999)
	if !errors.Is(err, ErrNoSuchTask) {
		t.Fatalf("want ErrNoSuchTask, got %v", err)
	}
	if out != OutcomeNone {
		t.Fatalf("outcome on miss: want none, got %s", out)
	}
	if len(engine.calls) != 0 || len(notifier.calls) != 0 {
		t.Fatalf("lookup miss must not touch engine or notifier")
	}
	if g.Lock.Held() {
		t.Fatalf("lock leaked on lookup miss")
	}
}

func TestDeleteNonCancelablePrecedence(t *testing.T) {
	// Both flags set: non-cancelable wins and the engine is never invoked.
	g, engine, notifier := newTestGate(true)
	target := &TCB{Pid: 5, Kind: KindTask, Flags: CancelNonCancelable | CancelDeferred}
	target.cpDepth = 3
	g.Registry.Insert(target)

	out, err := g.Delete(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomePendingHeld {
		t.Fatalf("outcome: want pending-held, got %s", out)
	}
	if !target.Flags.Has(CancelPending) {
		t.Fatalf("pending flag not set")
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine invoked on non-cancelable target")
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("notifier invoked on non-cancelable target")
	}
	if g.Lock.Held() {
		t.Fatalf("lock leaked")
	}
}

func TestDeleteDeferredNotWaiting(t *testing.T) {
	g, engine, notifier := newTestGate(true)
	target := &TCB{Pid: 5, Kind: KindTask, Flags: CancelDeferred}
	g.Registry.Insert(target)

	out, err := g.Delete(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomePendingDeferred {
		t.Fatalf("outcome: want pending-deferred, got %s", out)
	}
	if !target.Flags.Has(CancelPending) {
		t.Fatalf("pending flag not set")
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("notifier invoked with zero cancellation-point depth")
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine invoked on deferred target")
	}
}

func TestDeleteDeferredWaiting(t *testing.T) {
	g, engine, notifier := newTestGate(true)
	target := &TCB{Pid: 5, Kind: KindTask, Flags: CancelDeferred}
	target.cpDepth = 2
	g.Registry.Insert(target)

	out, err := g.Delete(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomePendingDeferred {
		t.Fatalf("outcome: want pending-deferred, got %s", out)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != target {
		t.Fatalf("notifier: want exactly one call with the target, got %d", len(notifier.calls))
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine invoked on deferred target")
	}
}

func TestDeleteDeferredIgnoredWithoutPointSupport(t *testing.T) {
	// Without cancellation-point support the deferred flag means nothing and
	// the kill is immediate.
	g, engine, _ := newTestGate(false)
	target := &TCB{Pid: 5, Kind: KindTask, Flags: CancelDeferred}
	target.cpDepth = 2
	g.Registry.Insert(target)

	out, err := g.Delete(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomeKilled {
		t.Fatalf("outcome: want killed, got %s", out)
	}
	if target.Flags.Has(CancelPending) {
		t.Fatalf("pending flag set on the asynchronous path")
	}
	if len(engine.calls) != 1 {
		t.Fatalf("engine calls: want 1, got %d", len(engine.calls))
	}
}

func TestDeleteAsyncForwardsEngineResult(t *testing.T) {
	g, engine, _ := newTestGate(true)
	g.Registry.Insert(&TCB{Pid: 5, Kind: KindTask})

	out, err := g.Delete(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomeKilled {
		t.Fatalf("outcome: want killed, got %s", out)
	}
	if len(engine.calls) != 1 {
		t.Fatalf("engine calls: want 1, got %d", len(engine.calls))
	}
	if engine.calls[0] != (engineCall{pid: 5, forced: false}) {
		t.Fatalf("engine called with %+v, want pid=5 forced=false", engine.calls[0])
	}
}

func TestDeleteAsyncForwardsEngineFailure(t *testing.T) {
	g, engine, _ := newTestGate(true)
	g.Registry.Insert(&TCB{Pid: 5, Kind: KindTask})
	cause := errors.New("target wedged")
	engine.err = cause

	out, err := g.Delete(5)
	if !errors.Is(err, cause) {
		t.Fatalf("engine failure not forwarded: got %v", err)
	}
	if out != OutcomeNone {
		t.Fatalf("outcome on engine failure: want none, got %s", out)
	}
	if len(engine.calls) != 1 {
		t.Fatalf("engine failure must not be retried: %d calls", len(engine.calls))
	}
}

func TestDeleteIdempotentOnPendingTarget(t *testing.T) {
	g, engine, _ := newTestGate(true)
	target := &TCB{Pid: 5, Kind: KindTask, Flags: CancelDeferred}
	g.Registry.Insert(target)

	for i := 0; i < 2; i++ {
		out, err := g.Delete(5)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if out != OutcomePendingDeferred {
			t.Fatalf("request %d: want pending-deferred, got %s", i, out)
		}
	}
	if target.Flags != CancelDeferred|CancelPending {
		t.Fatalf("flags after double delete: %s", target.Flags)
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine invoked for a pending deferred target")
	}
}

func TestDeleteUserThreadPanics(t *testing.T) {
	g, _, _ := newTestGate(true)
	g.Registry.Insert(&TCB{Pid: 7, Kind: KindUserThread})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on user-thread target")
		}
	}()
	_, _ = g.Delete(7)
}

func TestDeleteSelfDiverges(t *testing.T) {
	for _, pid := range []Pid{PidSelf, 1} {
		t.Run(fmt.Sprintf("pid=%d", pid), func(t *testing.T) {
			g, engine, _ := newTestGate(true)
			defer func() {
				r := recover()
				exit, ok := r.(exitCalled)
				if !ok {
					t.Fatalf("expected the exit path, got %v", r)
				}
				if exit.status != ExitSuccess {
					t.Fatalf("exit status: want %d, got %d", ExitSuccess, exit.status)
				}
				if len(engine.calls) != 0 {
					t.Fatalf("engine invoked on self-delete")
				}
				if g.Lock.Held() {
					t.Fatalf("lock held entering the exit path")
				}
			}()
			_, _ = g.Delete(pid)
			t.Fatalf("self-delete returned")
		})
	}
}

func TestDeleteLockReleasedBeforeEngine(t *testing.T) {
	g, engine, _ := newTestGate(true)
	g.Registry.Insert(&TCB{Pid: 5, Kind: KindTask})

	heldDuringTerminate := false
	engine.onCall = func() {
		heldDuringTerminate = g.Lock.Held()
	}

	if _, err := g.Delete(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if heldDuringTerminate {
		t.Fatalf("scheduler lock held across the engine call")
	}
}

func TestDeleteDecisionFinalAcrossLockWindow(t *testing.T) {
	// The flags are only honored under the lock. A target that turns
	// non-cancelable in the window between the lock release and the engine
	// call is still terminated: the gate does not re-validate.
	g, engine, _ := newTestGate(true)
	target := &TCB{Pid: 5, Kind: KindTask}
	g.Registry.Insert(target)

	engine.onCall = func() {
		target.Flags |= CancelNonCancelable
	}

	out, err := g.Delete(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomeKilled {
		t.Fatalf("outcome: want killed, got %s", out)
	}
	if len(engine.calls) != 1 {
		t.Fatalf("engine calls: want 1, got %d", len(engine.calls))
	}
}
