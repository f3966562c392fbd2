package kernel

import "sort"

// Registry maps live pids to their control blocks. Lookups never block.
type Registry struct {
	tasks map[Pid]*TCB
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[Pid]*TCB)}
}

// Lookup returns the control block for pid, or nil if the pid does not
// correspond to any live task.
func (r *Registry) Lookup(pid Pid) *TCB {
	if r == nil {
		return nil
	}
	return r.tasks[pid]
}

// Insert registers a control block under its pid.
func (r *Registry) Insert(t *TCB) {
	if r == nil || t == nil {
		return
	}
	if r.tasks == nil {
		r.tasks = make(map[Pid]*TCB)
	}
	r.tasks[t.Pid] = t
}

// Remove deletes the control block for pid, if present.
func (r *Registry) Remove(pid Pid) {
	if r == nil {
		return
	}
	delete(r.tasks, pid)
}

// Len returns the number of live tasks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tasks)
}

// Pids returns all live pids in ascending order.
func (r *Registry) Pids() []Pid {
	if r == nil {
		return nil
	}
	pids := make([]Pid, 0, len(r.tasks))
	for pid := range r.tasks {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}
