// Package ledger owns task records and their dependency graph. It enforces
// the task state machine, keeps the graph acyclic, and computes readiness.
// The coordinator is the only caller of its mutating operations.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/mltmacster/agentic-empire/internal/fault"
	"github.com/mltmacster/agentic-empire/internal/registry"
	"github.com/mltmacster/agentic-empire/internal/schema"
)

// Ledger is the authoritative store of task state. Safe for concurrent use.
type Ledger struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string // creation order

	dependents map[string][]string // dep id -> ids of tasks depending on it
	waiting    map[string]int      // task id -> count of incomplete deps

	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		tasks:      make(map[string]*Task),
		dependents: make(map[string][]string),
		waiting:    make(map[string]int),
		now:        time.Now,
	}
}

// SetClock overrides the creation-timestamp clock. Tests only.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// A CommitFunc runs after an operation has validated but before its effect
// becomes visible. It receives the post-state task record. A non-nil error
// aborts the operation with the ledger unchanged; the coordinator uses this
// to make the audit append part of the same atomic unit.
type CommitFunc func(Task) error

// CreateTask validates and inserts a new pending task. Validation order:
// schema shape, then id uniqueness, then dependency existence, then an
// augmented-graph cycle check. Any failure, including a failed commit,
// leaves the ledger unchanged.
func (l *Ledger) CreateTask(spec Spec, commit CommitFunc) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := &Task{
		ID:               spec.ID,
		Title:            spec.Title,
		Description:      spec.Description,
		Status:           StatusPending,
		Priority:         spec.Priority,
		Requires:         spec.Requires,
		Dependencies:     append([]string(nil), spec.Dependencies...),
		Complexity:       spec.Complexity,
		Clearance:        spec.Clearance,
		CreatedAt:        spec.CreatedAt,
		TargetCompletion: spec.TargetCompletion,
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = l.now()
	}

	if res := schema.Validate(schema.KindTask, t.record()); !res.OK() {
		return "", fault.WithDetails(fault.SchemaViolation, "task "+spec.ID, res.Details())
	}
	if _, exists := l.tasks[t.ID]; exists {
		return "", fault.New(fault.DuplicateID, "task %q already exists", t.ID)
	}
	for _, dep := range t.Dependencies {
		if dep == t.ID {
			// A self edge exists in the augmented graph; the cycle check
			// reports it.
			continue
		}
		if _, ok := l.tasks[dep]; !ok {
			return "", fault.New(fault.UnknownDependency, "task %q: dependency %q does not exist", t.ID, dep)
		}
	}
	if l.wouldCycle(t.ID, t.Dependencies) {
		return "", fault.New(fault.CycleError, "task %q: dependencies would create a cycle", t.ID)
	}
	if commit != nil {
		if err := commit(copyTask(t)); err != nil {
			return "", err
		}
	}

	l.tasks[t.ID] = t
	l.order = append(l.order, t.ID)
	incomplete := 0
	for _, dep := range t.Dependencies {
		if l.tasks[dep].Status != StatusCompleted {
			incomplete++
		}
		l.dependents[dep] = append(l.dependents[dep], t.ID)
	}
	l.waiting[t.ID] = incomplete
	return t.ID, nil
}

// AssignTask makes w the task's owner. The worker must hold the task's
// requirement tag and be idle or active. A displaced owner is kept as a
// contributor.
func (l *Ledger) AssignTask(taskID string, w registry.Worker, commit CommitFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tasks[taskID]
	if !ok {
		return fault.New(fault.NotFound, "task %q not found", taskID)
	}
	if w.Status != registry.StatusIdle && w.Status != registry.StatusActive {
		return fault.New(fault.UnavailableWorker, "worker %q is %s", w.ID, w.Status)
	}
	if t.Requires != "" && !hasCapability(w, t.Requires) {
		return fault.New(fault.UnavailableWorker, "worker %q lacks capability %q", w.ID, t.Requires)
	}

	next := copyTask(t)
	if next.Owner != "" && next.Owner != w.ID && !contains(next.Contributors, next.Owner) {
		next.Contributors = append(next.Contributors, next.Owner)
	}
	next.Owner = w.ID
	if commit != nil {
		if err := commit(next); err != nil {
			return err
		}
	}
	t.Owner = next.Owner
	t.Contributors = next.Contributors
	return nil
}

// Transition moves the task to next if the state machine allows it. A move
// to in_progress requires every dependency to be completed, regardless of
// the prior state.
func (l *Ledger) Transition(taskID, next string, commit CommitFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tasks[taskID]
	if !ok {
		return fault.New(fault.NotFound, "task %q not found", taskID)
	}
	if !legalTransition(t.Status, next) {
		return fault.New(fault.IllegalTransition, "task %q: %s -> %s is not a legal transition", taskID, t.Status, next)
	}
	if next == StatusInProgress && l.waiting[taskID] > 0 {
		return fault.New(fault.DependenciesNotMet, "task %q has %d incomplete dependencies", taskID, l.waiting[taskID])
	}

	if commit != nil {
		post := copyTask(t)
		post.Status = next
		if err := commit(post); err != nil {
			return err
		}
	}

	t.Status = next
	if next == StatusCompleted {
		for _, dep := range l.dependents[taskID] {
			l.waiting[dep]--
		}
	}
	return nil
}

// ForceBlock moves a pending task to blocked. pending->blocked is not in
// the general legality table; it exists only for the coordinator's
// timeout sweep. Any other current status fails with IllegalTransition.
func (l *Ledger) ForceBlock(taskID string, commit CommitFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tasks[taskID]
	if !ok {
		return fault.New(fault.NotFound, "task %q not found", taskID)
	}
	if t.Status != StatusPending {
		return fault.New(fault.IllegalTransition, "task %q: cannot force-block from %s", taskID, t.Status)
	}
	if commit != nil {
		post := copyTask(t)
		post.Status = StatusBlocked
		if err := commit(post); err != nil {
			return err
		}
	}
	t.Status = StatusBlocked
	return nil
}

// ReadyTasks returns all pending tasks whose dependencies are all
// completed, ordered by priority descending, then creation time ascending,
// then id. The order is deterministic for identical ledger state.
func (l *Ledger) ReadyTasks() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ready []string
	for _, id := range l.order {
		if l.tasks[id].Status == StatusPending && l.waiting[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := l.tasks[ready[i]], l.tasks[ready[j]]
		if pa, pb := priorityRank(a.Priority), priorityRank(b.Priority); pa != pb {
			return pa < pb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ready
}

// Get returns a copy of the task.
func (l *Ledger) Get(taskID string) (Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tasks[taskID]
	if !ok {
		return Task{}, fault.New(fault.NotFound, "task %q not found", taskID)
	}
	return copyTask(t), nil
}

// Tasks returns copies of every task in creation order.
func (l *Ledger) Tasks() []Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Task, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, copyTask(l.tasks[id]))
	}
	return out
}

// CountByStatus returns the number of tasks per status.
func (l *Ledger) CountByStatus() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int)
	for _, t := range l.tasks {
		out[t.Status]++
	}
	return out
}

// Overdue returns pending tasks whose target completion has elapsed, in
// creation order. The coordinator uses this for the pending->blocked sweep;
// the ledger itself never times anything out.
func (l *Ledger) Overdue(now time.Time) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for _, id := range l.order {
		t := l.tasks[id]
		if t.Status == StatusPending && !t.TargetCompletion.IsZero() && t.TargetCompletion.Before(now) {
			out = append(out, id)
		}
	}
	return out
}

func copyTask(t *Task) Task {
	out := *t
	out.Contributors = append([]string(nil), t.Contributors...)
	out.Dependencies = append([]string(nil), t.Dependencies...)
	return out
}

func hasCapability(w registry.Worker, tag string) bool {
	for _, c := range w.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
