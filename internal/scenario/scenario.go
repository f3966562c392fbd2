// Package scenario loads and runs TOML-described kernel workloads: tasks to
// spawn, deletion requests to issue, and the capability toggles to run them
// under.
package scenario

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

var (
	// ErrNoTasks indicates that a scenario file defines no [[tasks]].
	ErrNoTasks = errors.New("scenario defines no tasks")
	// ErrTaskNameMissing indicates a [[tasks]] entry without a name.
	ErrTaskNameMissing = errors.New("missing task name")
)

// KernelSpec is the [kernel] section of a scenario file.
type KernelSpec struct {
	CancellationPoints bool   `toml:"cancellation_points"`
	Fuzz               bool   `toml:"fuzz"`
	Seed               uint64 `toml:"seed"`
	MaxSteps           int    `toml:"max_steps"`
}

// TaskSpec is one [[tasks]] entry.
type TaskSpec struct {
	Name     string   `toml:"name"`
	Kind     string   `toml:"kind"`     // task|kthread
	Flags    []string `toml:"flags"`    // noncancelable|deferred
	Behavior string   `toml:"behavior"` // spin|wait|poll
}

// RequestSpec is one [[requests]] entry: a deletion request the driver task
// issues once the given step is reached. Target "self" deletes the driver.
type RequestSpec struct {
	Target string `toml:"target"`
	AtStep int    `toml:"at_step"`
}

// Spec is a parsed scenario file.
type Spec struct {
	Kernel   KernelSpec    `toml:"kernel"`
	Tasks    []TaskSpec    `toml:"tasks"`
	Requests []RequestSpec `toml:"requests"`
}

// Load parses and validates a scenario file.
func Load(path string) (*Spec, error) {
	var spec Spec
	meta, err := toml.DecodeFile(path, &spec)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("tasks") || len(spec.Tasks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoTasks)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sort.SliceStable(spec.Requests, func(i, j int) bool {
		return spec.Requests[i].AtStep < spec.Requests[j].AtStep
	})
	return &spec, nil
}

func (s *Spec) validate() error {
	names := make(map[string]struct{}, len(s.Tasks))
	for i := range s.Tasks {
		task := &s.Tasks[i]
		if task.Name == "" {
			return ErrTaskNameMissing
		}
		if _, ok := names[task.Name]; ok {
			return fmt.Errorf("duplicate task name %q", task.Name)
		}
		names[task.Name] = struct{}{}
		if _, err := parseKind(task.Kind); err != nil {
			return fmt.Errorf("task %q: %w", task.Name, err)
		}
		if _, err := parseFlags(task.Flags); err != nil {
			return fmt.Errorf("task %q: %w", task.Name, err)
		}
		if _, err := behaviorFor(task.Behavior); err != nil {
			return fmt.Errorf("task %q: %w", task.Name, err)
		}
	}
	for _, req := range s.Requests {
		if req.Target == "self" {
			continue
		}
		if _, ok := names[req.Target]; !ok {
			return fmt.Errorf("request targets unknown task %q", req.Target)
		}
	}
	return nil
}
