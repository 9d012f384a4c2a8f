package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mltmacster/agentic-empire/internal/fault"
	"github.com/mltmacster/agentic-empire/internal/registry"
)

func testClock() func() time.Time {
	t := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func spec(id string, deps ...string) Spec {
	return Spec{
		ID:           id,
		Title:        "Task " + id,
		Priority:     "medium",
		Dependencies: deps,
		Complexity:   5,
		Clearance:    2,
	}
}

func mustCreate(t *testing.T, l *Ledger, s Spec) {
	t.Helper()
	if _, err := l.CreateTask(s, nil); err != nil {
		t.Fatal(err)
	}
}

func TestCreateTask_SchemaFirst(t *testing.T) {
	l := New()
	bad := spec("not-a-task-id")
	if _, err := l.CreateTask(bad, nil); fault.KindOf(err) != fault.SchemaViolation {
		t.Fatalf("err = %v, want schema_violation", err)
	}
	if len(l.Tasks()) != 0 {
		t.Fatal("ledger must be unchanged after failure")
	}
}

func TestCreateTask_DuplicateID(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	if _, err := l.CreateTask(spec("SHARD-001-A"), nil); fault.KindOf(err) != fault.DuplicateID {
		t.Fatalf("err = %v, want duplicate_id", err)
	}
}

func TestCreateTask_UnknownDependency(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	_, err := l.CreateTask(spec("SHARD-001-A", "SHARD-099-Z"), nil)
	if fault.KindOf(err) != fault.UnknownDependency {
		t.Fatalf("err = %v, want unknown_dependency", err)
	}
}

func TestCreateTask_SelfDependencyIsCycle(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	_, err := l.CreateTask(spec("SHARD-001-A", "SHARD-001-A"), nil)
	if fault.KindOf(err) != fault.CycleError {
		t.Fatalf("err = %v, want cycle_error", err)
	}
	if len(l.Tasks()) != 0 {
		t.Fatal("ledger must be unchanged after failure")
	}
}

func TestCreateTask_CommitFailureLeavesLedgerUnchanged(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	boom := errors.New("store down")
	_, err := l.CreateTask(spec("SHARD-001-A"), func(Task) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want store failure", err)
	}
	if len(l.Tasks()) != 0 {
		t.Fatal("failed commit must not insert")
	}
}

func TestTransition_Legality(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusPending, StatusBlocked, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusBlocked, true},
		{StatusInProgress, StatusPending, false},
		{StatusBlocked, StatusInProgress, true},
		{StatusBlocked, StatusFailed, true},
		{StatusBlocked, StatusCompleted, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusInProgress, false},
		{StatusFailed, StatusBlocked, false},
	}
	for _, c := range cases {
		if got := legalTransition(c.from, c.to); got != c.ok {
			t.Errorf("legalTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestTransition_IllegalLeavesStateUnchanged(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	if err := l.Transition("SHARD-001-A", StatusCompleted, nil); fault.KindOf(err) != fault.IllegalTransition {
		t.Fatalf("err = %v, want illegal_transition", err)
	}
	got, _ := l.Get("SHARD-001-A")
	if got.Status != StatusPending {
		t.Fatalf("Status = %q, want pending", got.Status)
	}
}

func TestTransition_DependenciesNotMet(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	mustCreate(t, l, spec("SHARD-002-B", "SHARD-001-A"))

	err := l.Transition("SHARD-002-B", StatusInProgress, nil)
	if fault.KindOf(err) != fault.DependenciesNotMet {
		t.Fatalf("err = %v, want dependencies_not_met", err)
	}

	for _, step := range []string{StatusInProgress, StatusCompleted} {
		if err := l.Transition("SHARD-001-A", step, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Transition("SHARD-002-B", StatusInProgress, nil); err != nil {
		t.Fatal(err)
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	for _, step := range []string{StatusInProgress, StatusCompleted} {
		if err := l.Transition("SHARD-001-A", step, nil); err != nil {
			t.Fatal(err)
		}
	}
	for _, next := range []string{StatusPending, StatusInProgress, StatusBlocked, StatusFailed} {
		if err := l.Transition("SHARD-001-A", next, nil); fault.KindOf(err) != fault.IllegalTransition {
			t.Fatalf("completed -> %s: err = %v, want illegal_transition", next, err)
		}
	}
}

func TestReadyTasks_OrderAndFiltering(t *testing.T) {
	l := New()
	l.SetClock(testClock())

	low := spec("SHARD-001-LOW")
	low.Priority = "low"
	crit := spec("SHARD-002-CRIT")
	crit.Priority = "critical"
	med := spec("SHARD-003-MED")
	med.Priority = "medium"
	gated := spec("SHARD-004-GATED", "SHARD-001-LOW")
	gated.Priority = "critical"

	for _, s := range []Spec{low, crit, med, gated} {
		mustCreate(t, l, s)
	}

	got := l.ReadyTasks()
	want := []string{"SHARD-002-CRIT", "SHARD-003-MED", "SHARD-001-LOW"}
	if len(got) != len(want) {
		t.Fatalf("ReadyTasks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadyTasks = %v, want %v", got, want)
		}
	}

	// Deterministic: identical state, identical order.
	again := l.ReadyTasks()
	for i := range got {
		if got[i] != again[i] {
			t.Fatal("ReadyTasks is not deterministic")
		}
	}
}

func TestReadyTasks_Scenario(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	mustCreate(t, l, spec("SHARD-002-B", "SHARD-001-A"))

	if got := l.ReadyTasks(); len(got) != 1 || got[0] != "SHARD-001-A" {
		t.Fatalf("ReadyTasks = %v, want [SHARD-001-A]", got)
	}

	for _, step := range []string{StatusInProgress, StatusCompleted} {
		if err := l.Transition("SHARD-001-A", step, nil); err != nil {
			t.Fatal(err)
		}
	}

	if got := l.ReadyTasks(); len(got) != 1 || got[0] != "SHARD-002-B" {
		t.Fatalf("ReadyTasks = %v, want [SHARD-002-B]", got)
	}
}

func TestAssignTask(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	s := spec("SHARD-001-A")
	s.Requires = "build"
	mustCreate(t, l, s)

	able := registry.Worker{ID: "builder", Status: registry.StatusIdle, Capabilities: []string{"build"}}
	if err := l.AssignTask("SHARD-001-A", able, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Get("SHARD-001-A")
	if got.Owner != "builder" {
		t.Fatalf("Owner = %q, want builder", got.Owner)
	}

	unable := registry.Worker{ID: "scribe", Status: registry.StatusIdle, Capabilities: []string{"write"}}
	if err := l.AssignTask("SHARD-001-A", unable, nil); fault.KindOf(err) != fault.UnavailableWorker {
		t.Fatalf("err = %v, want unavailable_worker", err)
	}

	retired := registry.Worker{ID: "elder", Status: registry.StatusRetired, Capabilities: []string{"build"}}
	if err := l.AssignTask("SHARD-001-A", retired, nil); fault.KindOf(err) != fault.UnavailableWorker {
		t.Fatalf("err = %v, want unavailable_worker", err)
	}

	if err := l.AssignTask("SHARD-099-Z", able, nil); fault.KindOf(err) != fault.NotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestAssignTask_DisplacedOwnerBecomesContributor(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))

	first := registry.Worker{ID: "alpha", Status: registry.StatusIdle}
	second := registry.Worker{ID: "beta", Status: registry.StatusActive}
	if err := l.AssignTask("SHARD-001-A", first, nil); err != nil {
		t.Fatal(err)
	}
	if err := l.AssignTask("SHARD-001-A", second, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Get("SHARD-001-A")
	if got.Owner != "beta" {
		t.Fatalf("Owner = %q, want beta", got.Owner)
	}
	if len(got.Contributors) != 1 || got.Contributors[0] != "alpha" {
		t.Fatalf("Contributors = %v, want [alpha]", got.Contributors)
	}
}

func TestForceBlock(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))

	if err := l.ForceBlock("SHARD-001-A", nil); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Get("SHARD-001-A")
	if got.Status != StatusBlocked {
		t.Fatalf("Status = %q, want blocked", got.Status)
	}
	if err := l.ForceBlock("SHARD-001-A", nil); fault.KindOf(err) != fault.IllegalTransition {
		t.Fatalf("err = %v, want illegal_transition", err)
	}
}

func TestOverdue(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	due := spec("SHARD-001-DUE")
	due.TargetCompletion = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	open := spec("SHARD-002-OPEN")
	mustCreate(t, l, due)
	mustCreate(t, l, open)

	now := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	got := l.Overdue(now)
	if len(got) != 1 || got[0] != "SHARD-001-DUE" {
		t.Fatalf("Overdue = %v, want [SHARD-001-DUE]", got)
	}
}

func TestCreateTask_LargeChainStaysAcyclic(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	prev := ""
	for i := 0; i < 200; i++ {
		id := taskID(i)
		s := spec(id)
		if prev != "" {
			s.Dependencies = []string{prev}
		}
		mustCreate(t, l, s)
		prev = id
	}
	if got := l.ReadyTasks(); len(got) != 1 || got[0] != taskID(0) {
		t.Fatalf("ReadyTasks = %v, want [%s]", got, taskID(0))
	}
}

func taskID(i int) string {
	return fmt.Sprintf("SHARD-%03d-CHAIN", i)
}
