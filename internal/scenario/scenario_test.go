package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadValidScenario(t *testing.T) {
	path := writeScenario(t, `
[kernel]
cancellation_points = true
max_steps = 100

[[tasks]]
name = "worker"
behavior = "spin"

[[tasks]]
name = "cooperative"
flags = ["deferred"]
behavior = "wait"

[[requests]]
target = "cooperative"
at_step = 5

[[requests]]
target = "worker"
at_step = 2
`)
	spec, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !spec.Kernel.CancellationPoints || spec.Kernel.MaxSteps != 100 {
		t.Fatalf("kernel section: %+v", spec.Kernel)
	}
	if len(spec.Tasks) != 2 || len(spec.Requests) != 2 {
		t.Fatalf("tasks=%d requests=%d", len(spec.Tasks), len(spec.Requests))
	}
	// Requests come back ordered by step.
	if spec.Requests[0].Target != "worker" || spec.Requests[1].Target != "cooperative" {
		t.Fatalf("request order: %+v", spec.Requests)
	}
}

func TestLoadRejectsEmptyTasks(t *testing.T) {
	path := writeScenario(t, `
[kernel]
fuzz = true
`)
	if _, err := Load(path); !errors.Is(err, ErrNoTasks) {
		t.Fatalf("want ErrNoTasks, got %v", err)
	}
}

func TestLoadRejectsMissingName(t *testing.T) {
	path := writeScenario(t, `
[[tasks]]
behavior = "spin"
`)
	if _, err := Load(path); !errors.Is(err, ErrTaskNameMissing) {
		t.Fatalf("want ErrTaskNameMissing, got %v", err)
	}
}

func TestLoadRejectsDuplicateName(t *testing.T) {
	path := writeScenario(t, `
[[tasks]]
name = "twin"

[[tasks]]
name = "twin"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate task name") {
		t.Fatalf("want duplicate-name error, got %v", err)
	}
}

func TestLoadRejectsBadFields(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"kind", "[[tasks]]\nname = \"t\"\nkind = \"pthread\"\n", "invalid kind"},
		{"flag", "[[tasks]]\nname = \"t\"\nflags = [\"eager\"]\n", "invalid flag"},
		{"behavior", "[[tasks]]\nname = \"t\"\nbehavior = \"sleep\"\n", "invalid behavior"},
		{"target", "[[tasks]]\nname = \"t\"\n\n[[requests]]\ntarget = \"ghost\"\n", "unknown task"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeScenario(t, tc.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("want error for a missing file")
	}
}
