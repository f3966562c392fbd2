package monitor

import (
	"strings"
	"testing"

	"tern/internal/scenario"
)

func newTestModel(tasks ...string) *model {
	m := New("demo", tasks, nil)
	return m.(*model)
}

func TestApplyEventTransitions(t *testing.T) {
	m := newTestModel("victim", "guarded")

	m.applyEvent(scenario.Event{Step: 0, Kind: "spawn", Task: "victim", Detail: "-"})
	m.applyEvent(scenario.Event{Step: 3, Kind: "request", Task: "guarded", Detail: "pending-held"})
	m.applyEvent(scenario.Event{Step: 4, Kind: "gone", Task: "victim"})

	if m.step != 4 {
		t.Fatalf("step: want 4, got %d", m.step)
	}
	if m.items[0].status != "gone" {
		t.Fatalf("victim status: %q", m.items[0].status)
	}
	if m.items[1].status != "pending-held" {
		t.Fatalf("guarded status: %q", m.items[1].status)
	}
}

func TestApplyEventIgnoresUnknownTask(t *testing.T) {
	m := newTestModel("only")
	m.applyEvent(scenario.Event{Kind: "gone", Task: "stranger"})
	if m.items[0].status != "live" {
		t.Fatalf("status changed by an unknown task: %q", m.items[0].status)
	}
}

func TestViewListsTasks(t *testing.T) {
	m := newTestModel("worker")
	out := m.View()
	if !strings.Contains(out, "worker") || !strings.Contains(out, "live") {
		t.Fatalf("view missing task row: %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Fatalf("no-op truncate: %q", got)
	}
	got := truncate("a-very-long-task-name", 10)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("long name not ellipsized: %q", got)
	}
	if got := truncate("abcdef", 2); len(got) > 2 {
		t.Fatalf("tiny width: %q", got)
	}
}
