package kernel

import (
	"fmt"
	"math/rand"
	"time"

	"tern/internal/ktrace"
)

// Config configures kernel behavior.
type Config struct {
	// CancellationPoints enables deferred-cancellation support. When false,
	// tasks that opted into deferred cancellation are killed asynchronously
	// like everyone else.
	CancellationPoints bool
	// Fuzz picks ready tasks pseudo-randomly instead of FIFO.
	Fuzz bool
	// Seed seeds fuzz scheduling for reproducible interleavings.
	Seed uint64
}

// Kernel is a single-core cooperative-preemptive scheduler: one running task
// per step, a FIFO ready queue (optionally fuzzed), and wait queues keyed by
// WaitKey. All state is owned by the goroutine driving Step.
type Kernel struct {
	cfg    Config
	reg    *Registry
	lock   SchedLock
	gate   *Gate
	tracer ktrace.Tracer

	nextPid  Pid
	ready    []Pid
	readySet map[Pid]struct{}
	waiters  map[WaitKey][]Pid
	parked   map[Pid]WaitKey
	current  Pid
	rng      *rand.Rand
}

// New constructs a kernel with the provided configuration.
func New(cfg Config) *Kernel {
	k := &Kernel{
		cfg:      cfg,
		reg:      NewRegistry(),
		tracer:   ktrace.Nop,
		nextPid:  1,
		readySet: make(map[Pid]struct{}),
		waiters:  make(map[WaitKey][]Pid),
		parked:   make(map[Pid]WaitKey),
	}
	if cfg.Fuzz {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		k.rng = rand.New(rand.NewSource(int64(seed))) //nolint:gosec // deterministic scheduler seed
	}
	k.gate = &Gate{
		Registry:           k.reg,
		Lock:               &k.lock,
		Engine:             k,
		Notifier:           k,
		Exit:               k.Exit,
		Current:            k.Current,
		CancellationPoints: cfg.CancellationPoints,
	}
	return k
}

// SetTracer attaches a tracer for kernel events.
func (k *Kernel) SetTracer(t ktrace.Tracer) {
	if k == nil {
		return
	}
	if t == nil {
		t = ktrace.Nop
	}
	k.tracer = t
}

// Config returns the kernel configuration.
func (k *Kernel) Config() Config {
	if k == nil {
		return Config{}
	}
	return k.cfg
}

// Registry returns the pid registry.
func (k *Kernel) Registry() *Registry {
	if k == nil {
		return nil
	}
	return k.reg
}

// Lock returns the scheduler lock.
func (k *Kernel) Lock() *SchedLock {
	if k == nil {
		return nil
	}
	return &k.lock
}

// Current returns the pid of the running task, or zero between steps.
func (k *Kernel) Current() Pid {
	if k == nil {
		return 0
	}
	return k.current
}

// CurrentTCB returns the control block of the running task, or nil.
func (k *Kernel) CurrentTCB() *TCB {
	if k == nil {
		return nil
	}
	return k.reg.Lookup(k.current)
}

// SpawnOptions configures a new task.
type SpawnOptions struct {
	Name    string
	Kind    TaskKind
	Flags   CancelFlags
	State   any
	Cleanup func()
	Fn      TaskFunc
}

// Spawn registers an ordinary task and enqueues it for execution.
func (k *Kernel) Spawn(name string, fn TaskFunc) Pid {
	return k.SpawnTask(SpawnOptions{Name: name, Kind: KindTask, Fn: fn})
}

// SpawnTask registers a task from options and enqueues it for execution.
func (k *Kernel) SpawnTask(opts SpawnOptions) Pid {
	if k == nil || opts.Fn == nil {
		return 0
	}
	if k.nextPid == 0 {
		k.nextPid = 1
	}
	pid := k.nextPid
	k.nextPid++

	t := &TCB{
		Pid:     pid,
		Name:    opts.Name,
		Kind:    opts.Kind,
		Flags:   opts.Flags,
		Status:  TaskReady,
		State:   opts.State,
		fn:      opts.Fn,
		cleanup: opts.Cleanup,
	}
	k.reg.Insert(t)
	k.enqueue(pid)
	k.trace(ktrace.ScopeSched, pid, "spawn", opts.Kind.String())
	return pid
}

// Step runs one slice of the next ready task. It reports false when no task
// is ready.
func (k *Kernel) Step() bool {
	if k == nil {
		return false
	}
	pid, ok := k.nextReady()
	if !ok {
		return false
	}
	t := k.reg.Lookup(pid)
	if t == nil {
		return true
	}
	k.current = pid
	t.Status = TaskRunning
	poll, exited := k.pollTask(t)
	k.current = 0
	if k.lock.Held() {
		panic(fmt.Sprintf("kernel: pid %d left the scheduler lock held (depth %d)", pid, k.lock.Depth()))
	}
	if exited {
		return true
	}
	switch poll {
	case PollYield:
		if t.Status != TaskDone {
			k.enqueue(pid)
		}
	case PollPark:
		if t.Status != TaskWaiting && t.Status != TaskDone {
			k.enqueue(pid)
		}
	case PollDone:
		k.destroy(t, ResultSuccess, ExitSuccess, true)
		k.trace(ktrace.ScopeSched, pid, "finish", "")
	}
	return true
}

// Run steps the scheduler until no task is ready or the step budget is
// exhausted. A budget of zero or less means no budget. It returns the number
// of steps taken.
func (k *Kernel) Run(maxSteps int) int {
	steps := 0
	for maxSteps <= 0 || steps < maxSteps {
		if !k.Step() {
			break
		}
		steps++
	}
	return steps
}

// Idle reports whether no task is ready to run.
func (k *Kernel) Idle() bool {
	if k == nil {
		return true
	}
	for _, pid := range k.ready {
		if t := k.reg.Lookup(pid); t != nil && t.Status != TaskDone {
			return false
		}
	}
	return true
}

// pollTask runs one slice of t, catching the exit signal thrown by the
// self-exit path.
func (k *Kernel) pollTask(t *TCB) (poll Poll, exited bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		sig, ok := r.(exitSignal)
		if !ok {
			panic(r)
		}
		k.finishExit(t, sig)
		poll, exited = PollPark, true
	}()
	return t.fn(k, t), false
}

// nextReady returns the next ready task according to scheduler policy.
func (k *Kernel) nextReady() (Pid, bool) {
	for len(k.ready) > 0 {
		idx := 0
		if k.cfg.Fuzz && k.rng != nil {
			idx = k.rng.Intn(len(k.ready))
		}
		pid := k.ready[idx]
		copy(k.ready[idx:], k.ready[idx+1:])
		k.ready = k.ready[:len(k.ready)-1]
		delete(k.readySet, pid)
		t := k.reg.Lookup(pid)
		if t == nil || t.Status == TaskDone {
			continue
		}
		return pid, true
	}
	return 0, false
}

// ReadyPids returns the pids currently queued to run, in queue order.
func (k *Kernel) ReadyPids() []Pid {
	if k == nil {
		return nil
	}
	out := make([]Pid, len(k.ready))
	copy(out, k.ready)
	return out
}

// Waiting returns the wait key pid is parked on, if any.
func (k *Kernel) Waiting(pid Pid) (WaitKey, bool) {
	if k == nil {
		return WaitKey{}, false
	}
	key, ok := k.parked[pid]
	return key, ok
}

// Wake enqueues a task if it is not done, removing it from any wait queue.
func (k *Kernel) Wake(pid Pid) {
	if k == nil {
		return
	}
	t := k.reg.Lookup(pid)
	if t == nil || t.Status == TaskDone {
		return
	}
	if key, ok := k.parked[pid]; ok {
		k.removeWaiter(key, pid)
		delete(k.parked, pid)
	}
	if t.Resume == ResumeNone {
		t.Resume = ResumeWake
	}
	k.enqueue(pid)
	k.trace(ktrace.ScopeSched, pid, "wake", t.Resume.String())
}

// ParkCurrent moves the running task into the wait queue for key. The task's
// slice must return PollPark afterwards.
func (k *Kernel) ParkCurrent(key WaitKey) {
	if k == nil || !key.IsValid() || k.current == 0 {
		return
	}
	k.parkTask(k.current, key)
	k.trace(ktrace.ScopeSched, k.current, "park", key.Kind.String())
}

// Join parks the running task until target completes. It returns false when
// the target is already gone and no wait is needed.
func (k *Kernel) Join(target Pid) bool {
	if k == nil || k.reg.Lookup(target) == nil {
		return false
	}
	k.ParkCurrent(JoinKey(target))
	return true
}

// WakeOne wakes the oldest task waiting on key.
func (k *Kernel) WakeOne(key WaitKey) {
	if k == nil || !key.IsValid() {
		return
	}
	waiters := k.waiters[key]
	if len(waiters) == 0 {
		return
	}
	pid := waiters[0]
	waiters = waiters[1:]
	if len(waiters) == 0 {
		delete(k.waiters, key)
	} else {
		k.waiters[key] = waiters
	}
	delete(k.parked, pid)
	k.Wake(pid)
}

// WakeAll wakes all tasks waiting on key.
func (k *Kernel) WakeAll(key WaitKey) {
	if k == nil || !key.IsValid() {
		return
	}
	waiters := k.waiters[key]
	if len(waiters) == 0 {
		return
	}
	delete(k.waiters, key)
	for _, pid := range waiters {
		delete(k.parked, pid)
		k.Wake(pid)
	}
}

func (k *Kernel) enqueue(pid Pid) {
	if k.readySet == nil {
		k.readySet = make(map[Pid]struct{})
	}
	if _, ok := k.readySet[pid]; ok {
		return
	}
	k.ready = append(k.ready, pid)
	k.readySet[pid] = struct{}{}
	if t := k.reg.Lookup(pid); t != nil && t.Status != TaskDone {
		t.Status = TaskReady
	}
}

func (k *Kernel) parkTask(pid Pid, key WaitKey) {
	t := k.reg.Lookup(pid)
	if t == nil || t.Status == TaskDone {
		return
	}
	if k.waiters == nil {
		k.waiters = make(map[WaitKey][]Pid)
	}
	if k.parked == nil {
		k.parked = make(map[Pid]WaitKey)
	}
	if prev, ok := k.parked[pid]; ok {
		if prev == key {
			t.Status = TaskWaiting
			return
		}
		k.removeWaiter(prev, pid)
	}
	k.parked[pid] = key
	k.waiters[key] = append(k.waiters[key], pid)
	t.Status = TaskWaiting
}

func (k *Kernel) removeWaiter(key WaitKey, pid Pid) {
	waiters := k.waiters[key]
	for i, w := range waiters {
		if w == pid {
			copy(waiters[i:], waiters[i+1:])
			waiters = waiters[:len(waiters)-1]
			break
		}
	}
	if len(waiters) == 0 {
		delete(k.waiters, key)
		return
	}
	k.waiters[key] = waiters
}

// destroy tears down a control block: cleanup hook (unless suppressed),
// removal from wait queues, completion record, joiner wakeup, registry
// removal. Every task passes through here exactly once.
func (k *Kernel) destroy(t *TCB, result ResultKind, status int, runCleanup bool) {
	if runCleanup && t.cleanup != nil {
		t.cleanup()
	}
	if key, ok := k.parked[t.Pid]; ok {
		k.removeWaiter(key, t.Pid)
		delete(k.parked, t.Pid)
	}
	t.Status = TaskDone
	t.Result = result
	t.ExitStatus = status
	k.WakeAll(JoinKey(t.Pid))
	k.reg.Remove(t.Pid)
}

// Delete requests deletion of the task identified by pid. A pid of zero
// requests deletion of the calling task, in which case the call never
// returns. See Gate.Delete for the decision procedure.
func (k *Kernel) Delete(pid Pid) (Outcome, error) {
	if k == nil {
		return OutcomeNone, ErrNoSuchTask
	}
	out, err := k.gate.Delete(pid)
	if err != nil {
		k.trace(ktrace.ScopeKernel, pid, "delete", err.Error())
		return out, err
	}
	k.trace(ktrace.ScopeKernel, pid, "delete", out.String())
	return out, nil
}

// Gate returns the deletion gate wired to this kernel.
func (k *Kernel) Gate() *Gate {
	if k == nil {
		return nil
	}
	return k.gate
}

func (k *Kernel) trace(scope ktrace.Scope, pid Pid, name, detail string) {
	if k.tracer == nil || !k.tracer.Enabled() {
		return
	}
	k.tracer.Emit(ktrace.Event{
		Time:   time.Now(),
		Scope:  scope,
		Pid:    int32(pid),
		Name:   name,
		Detail: detail,
	})
}
