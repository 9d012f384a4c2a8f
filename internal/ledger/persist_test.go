package ledger

import (
	"errors"
	"testing"

	"github.com/mltmacster/agentic-empire/internal/store"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	mustCreate(t, l, spec("SHARD-002-B", "SHARD-001-A"))
	for _, step := range []string{StatusInProgress, StatusCompleted} {
		if err := l.Transition("SHARD-001-A", step, nil); err != nil {
			t.Fatal(err)
		}
	}

	mem := store.NewMemory()
	if err := l.Save(mem); err != nil {
		t.Fatal(err)
	}
	got, err := Load(mem)
	if err != nil {
		t.Fatal(err)
	}

	a, err := got.Get("SHARD-001-A")
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", a.Status)
	}
	b, err := got.Get("SHARD-002-B")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Dependencies) != 1 || b.Dependencies[0] != "SHARD-001-A" {
		t.Fatalf("Dependencies = %v", b.Dependencies)
	}
}

func TestLoad_RebuildsReadinessCounters(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	mustCreate(t, l, spec("SHARD-002-B", "SHARD-001-A"))
	for _, step := range []string{StatusInProgress, StatusCompleted} {
		if err := l.Transition("SHARD-001-A", step, nil); err != nil {
			t.Fatal(err)
		}
	}

	mem := store.NewMemory()
	if err := l.Save(mem); err != nil {
		t.Fatal(err)
	}
	got, err := Load(mem)
	if err != nil {
		t.Fatal(err)
	}

	ready := got.ReadyTasks()
	if len(ready) != 1 || ready[0] != "SHARD-002-B" {
		t.Fatalf("ReadyTasks = %v, want [SHARD-002-B]", ready)
	}
	if err := got.Transition("SHARD-002-B", StatusInProgress, nil); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MissingSnapshotIsEmpty(t *testing.T) {
	got, err := Load(store.NewMemory())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tasks()) != 0 {
		t.Fatalf("Tasks = %v, want empty", got.Tasks())
	}
}

func TestLoad_CorruptSnapshot(t *testing.T) {
	mem := store.NewMemory()
	if err := mem.WriteFile("tasks.json", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(mem); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestLoad_RejectsCyclicSnapshot(t *testing.T) {
	snapshot := `[
  {"task_id": "SHARD-001-A", "title": "Task A", "status": "pending",
   "priority": "medium", "dependencies": ["SHARD-002-B"],
   "complexity": 5, "clearance": 2, "created_at": "2026-08-23T10:00:00Z"},
  {"task_id": "SHARD-002-B", "title": "Task B", "status": "pending",
   "priority": "medium", "dependencies": ["SHARD-001-A"],
   "complexity": 5, "clearance": 2, "created_at": "2026-08-23T10:00:01Z"}
]`
	mem := store.NewMemory()
	if err := mem.WriteFile("tasks.json", []byte(snapshot)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(mem); err == nil {
		t.Fatal("cyclic snapshot must fail the load")
	}
}

func TestSave_StoreFailure(t *testing.T) {
	l := New()
	l.SetClock(testClock())
	mustCreate(t, l, spec("SHARD-001-A"))
	mem := store.NewMemory()
	mem.Fail = errors.New("store down")
	if err := l.Save(mem); err == nil {
		t.Fatal("expected store failure")
	}
}
