package scenario

import (
	"sort"

	"tern/internal/kernel"
	"tern/internal/ktrace"
)

// Event reports scenario progress for live UIs.
type Event struct {
	Step   int
	Kind   string // spawn|request|gone|done
	Task   string
	Pid    kernel.Pid
	Detail string
}

// Sink receives progress events.
type Sink interface {
	Send(Event)
}

// ChannelSink forwards events into a channel, dropping them when the channel
// is full.
type ChannelSink struct {
	Ch chan<- Event
}

// Send implements Sink.
func (s ChannelSink) Send(ev Event) {
	if s.Ch == nil {
		return
	}
	select {
	case s.Ch <- ev:
	default:
	}
}

// RequestOutcome records how one deletion request resolved.
type RequestOutcome struct {
	Target  string
	Pid     kernel.Pid
	Outcome kernel.Outcome
	Err     error
}

// Result summarizes a scenario run.
type Result struct {
	Steps     int
	Outcomes  []RequestOutcome
	Survivors []string // names of workload tasks still live at the end
}

// Options configures a scenario run.
type Options struct {
	Tracer   ktrace.Tracer
	Progress Sink

	// PostRun, when set, receives the kernel after the last step and before
	// Run returns. Used for task-table snapshots.
	PostRun func(k *kernel.Kernel) error
}

// driverName is the synthetic kernel thread that issues deletion requests.
const driverName = "request-driver"

const defaultMaxSteps = 10000

type runner struct {
	spec    *Spec
	k       *kernel.Kernel
	res     *Result
	sink    Sink
	pids    map[string]kernel.Pid
	names   map[kernel.Pid]string
	live    map[kernel.Pid]bool
	step    int
	nextReq int
}

// Run executes a scenario to completion and reports the request outcomes and
// survivors.
func Run(spec *Spec, opts Options) (*Result, error) {
	r := &runner{
		spec:  spec,
		res:   &Result{},
		sink:  opts.Progress,
		pids:  make(map[string]kernel.Pid, len(spec.Tasks)),
		names: make(map[kernel.Pid]string, len(spec.Tasks)),
		live:  make(map[kernel.Pid]bool, len(spec.Tasks)),
	}

	r.k = kernel.New(kernel.Config{
		CancellationPoints: spec.Kernel.CancellationPoints,
		Fuzz:               spec.Kernel.Fuzz,
		Seed:               spec.Kernel.Seed,
	})
	if opts.Tracer != nil {
		r.k.SetTracer(opts.Tracer)
	}

	for i := range spec.Tasks {
		ts := &spec.Tasks[i]
		kind, err := parseKind(ts.Kind)
		if err != nil {
			return nil, err
		}
		flags, err := parseFlags(ts.Flags)
		if err != nil {
			return nil, err
		}
		fn, err := behaviorFor(ts.Behavior)
		if err != nil {
			return nil, err
		}
		pid := r.k.SpawnTask(kernel.SpawnOptions{
			Name:  ts.Name,
			Kind:  kind,
			Flags: flags,
			Fn:    fn,
		})
		r.pids[ts.Name] = pid
		r.names[pid] = ts.Name
		r.live[pid] = true
		r.emit(Event{Step: 0, Kind: "spawn", Task: ts.Name, Pid: pid, Detail: flags.String()})
	}

	r.k.SpawnTask(kernel.SpawnOptions{
		Name: driverName,
		Kind: kernel.KindKernelThread,
		Fn:   r.driver,
	})

	max := spec.Kernel.MaxSteps
	if max <= 0 {
		max = defaultMaxSteps
	}
	for r.step = 0; r.step < max; r.step++ {
		if !r.k.Step() {
			break
		}
		r.res.Steps++
		r.noteDeaths()
	}

	r.collectSurvivors()
	if opts.PostRun != nil {
		if err := opts.PostRun(r.k); err != nil {
			return r.res, err
		}
	}
	r.emit(Event{Step: r.step, Kind: "done"})
	return r.res, nil
}

// driver issues the scenario's deletion requests once their step arrives.
func (r *runner) driver(k *kernel.Kernel, _ *kernel.TCB) kernel.Poll {
	for r.nextReq < len(r.spec.Requests) {
		req := r.spec.Requests[r.nextReq]
		if req.AtStep > r.step {
			return kernel.PollYield
		}
		r.nextReq++
		r.issue(k, req)
	}
	return kernel.PollDone
}

func (r *runner) issue(k *kernel.Kernel, req RequestSpec) {
	if req.Target == "self" {
		// The call below will not return; record the outcome first.
		r.res.Outcomes = append(r.res.Outcomes, RequestOutcome{
			Target:  req.Target,
			Outcome: kernel.OutcomeSelfExit,
		})
		r.emit(Event{Step: r.step, Kind: "request", Task: req.Target, Detail: kernel.OutcomeSelfExit.String()})
		k.Delete(kernel.PidSelf) //nolint:errcheck // diverges
		return
	}

	pid := r.pids[req.Target]
	out, err := k.Delete(pid)
	r.res.Outcomes = append(r.res.Outcomes, RequestOutcome{
		Target:  req.Target,
		Pid:     pid,
		Outcome: out,
		Err:     err,
	})
	detail := out.String()
	if err != nil {
		detail = err.Error()
	}
	r.emit(Event{Step: r.step, Kind: "request", Task: req.Target, Pid: pid, Detail: detail})
}

func (r *runner) noteDeaths() {
	for pid, alive := range r.live {
		if !alive {
			continue
		}
		if r.k.Registry().Lookup(pid) == nil {
			r.live[pid] = false
			r.emit(Event{Step: r.step, Kind: "gone", Task: r.names[pid], Pid: pid})
		}
	}
}

func (r *runner) collectSurvivors() {
	for pid, alive := range r.live {
		if alive && r.k.Registry().Lookup(pid) != nil {
			r.res.Survivors = append(r.res.Survivors, r.names[pid])
		}
	}
	sort.Strings(r.res.Survivors)
}

func (r *runner) emit(ev Event) {
	if r.sink == nil {
		return
	}
	r.sink.Send(ev)
}
