// Package coordinator is the sole write authority over the ledger and
// journal. It serializes mutation requests per task, runs the validation
// gate, applies ledger transitions, and appends exactly one journal entry
// per committed change. Either all three steps succeed and become visible
// together, or none do.
package coordinator

import (
	"fmt"
	"time"

	"github.com/mltmacster/agentic-empire/internal/fault"
	"github.com/mltmacster/agentic-empire/internal/journal"
	"github.com/mltmacster/agentic-empire/internal/ledger"
	"github.com/mltmacster/agentic-empire/internal/registry"
)

// Request is the closed set of commands the coordinator accepts.
type Request interface{ isRequest() }

// CreateTask inserts a new pending task on behalf of Actor.
type CreateTask struct {
	Spec  ledger.Spec
	Actor string
}

// AssignTask makes Worker the owner of the task.
type AssignTask struct {
	TaskID string
	Worker string
}

// TransitionTask moves the task to Next on behalf of Actor, who must own
// the task. An empty Actor marks a coordinator-internal transition.
type TransitionTask struct {
	TaskID  string
	Next    string
	Actor   string
	Summary string
}

// StatusReport aggregates registry and ledger state without mutation.
type StatusReport struct{}

// ListWorkers lists workers, optionally filtered by status.
type ListWorkers struct {
	Status string
}

func (CreateTask) isRequest()     {}
func (AssignTask) isRequest()     {}
func (TransitionTask) isRequest() {}
func (StatusReport) isRequest()   {}
func (ListWorkers) isRequest()    {}

// Report is the StatusReport payload.
type Report struct {
	Platform       string
	WorkersByState map[string]int
	TasksByState   map[string]int
	Ready          []string
	JournalEntries int
	GeneratedAt    time.Time
}

// Response carries the success payload of a request.
type Response struct {
	TaskID  string
	Seq     uint64
	Report  *Report
	Workers []registry.Worker
}

// Coordinator wires the registry, ledger, and journal together. Construct
// with New; the zero value is not usable.
type Coordinator struct {
	reg  *registry.Registry
	led  *ledger.Ledger
	jnl  *journal.Journal
	keys *keyedMutex
	now  func() time.Time
}

func New(reg *registry.Registry, led *ledger.Ledger, jnl *journal.Journal) *Coordinator {
	return &Coordinator{
		reg:  reg,
		led:  led,
		jnl:  jnl,
		keys: newKeyedMutex(),
		now:  time.Now,
	}
}

// SetClock overrides the journal-timestamp clock. Tests only.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// Submit executes one request. Recoverable failures come back as
// fault.Error values; only a durable-store failure surfaces as any other
// error kind.
func (c *Coordinator) Submit(req Request) (Response, error) {
	switch r := req.(type) {
	case CreateTask:
		return c.createTask(r)
	case AssignTask:
		return c.assignTask(r)
	case TransitionTask:
		return c.transitionTask(r)
	case StatusReport:
		return c.statusReport(), nil
	case ListWorkers:
		if r.Status == "" {
			return Response{Workers: c.reg.All()}, nil
		}
		return Response{Workers: c.reg.ByStatus(r.Status)}, nil
	default:
		return Response{}, fmt.Errorf("unknown request type %T", req)
	}
}

func (c *Coordinator) createTask(r CreateTask) (Response, error) {
	if r.Actor != "" {
		if _, err := c.reg.Lookup(r.Actor); err != nil {
			return Response{}, err
		}
	}

	release := c.keys.lock(r.Spec.ID)
	defer release()

	var seq uint64
	id, err := c.led.CreateTask(r.Spec, func(t ledger.Task) error {
		var appendErr error
		seq, appendErr = c.jnl.Append(c.entry(t, "task created"))
		return appendErr
	})
	if err != nil {
		return Response{}, err
	}
	return Response{TaskID: id, Seq: seq}, nil
}

func (c *Coordinator) assignTask(r AssignTask) (Response, error) {
	w, err := c.reg.Lookup(r.Worker)
	if err != nil {
		return Response{}, err
	}

	release := c.keys.lock(r.TaskID)
	defer release()

	var seq uint64
	err = c.led.AssignTask(r.TaskID, w, func(t ledger.Task) error {
		var appendErr error
		seq, appendErr = c.jnl.Append(c.entry(t, "assigned to "+w.ID))
		return appendErr
	})
	if err != nil {
		return Response{}, err
	}
	if w.Status == registry.StatusIdle {
		if err := c.reg.SetStatus(w.ID, registry.StatusActive); err != nil {
			return Response{}, err
		}
	}
	return Response{TaskID: r.TaskID, Seq: seq}, nil
}

func (c *Coordinator) transitionTask(r TransitionTask) (Response, error) {
	if r.Actor != "" {
		if _, err := c.reg.Lookup(r.Actor); err != nil {
			return Response{}, err
		}
		t, err := c.led.Get(r.TaskID)
		if err != nil {
			return Response{}, err
		}
		if t.Owner != r.Actor {
			return Response{}, fault.New(fault.UnavailableWorker, "worker %q does not own task %q", r.Actor, r.TaskID)
		}
	}

	release := c.keys.lock(r.TaskID)
	defer release()

	summary := r.Summary
	if summary == "" {
		summary = "transition to " + r.Next
	}
	var seq uint64
	err := c.led.Transition(r.TaskID, r.Next, func(t ledger.Task) error {
		var appendErr error
		seq, appendErr = c.jnl.Append(c.entry(t, summary))
		return appendErr
	})
	if err != nil {
		return Response{}, err
	}
	return Response{TaskID: r.TaskID, Seq: seq}, nil
}

// SweepOverdue forces a pending->blocked transition for every pending task
// whose target completion has elapsed. Each transition is its own atomic,
// audited unit; overdue tasks are never silently failed. It returns the
// ids of tasks it blocked.
func (c *Coordinator) SweepOverdue(now time.Time) ([]string, error) {
	var blocked []string
	for _, id := range c.led.Overdue(now) {
		if err := c.forceBlock(id); err != nil {
			// Lost the race to another mutation; skip, the sweep is advisory.
			if fault.KindOf(err) == fault.IllegalTransition {
				continue
			}
			return blocked, err
		}
		blocked = append(blocked, id)
	}
	return blocked, nil
}

func (c *Coordinator) forceBlock(taskID string) error {
	release := c.keys.lock(taskID)
	defer release()

	return c.led.ForceBlock(taskID, func(t ledger.Task) error {
		_, appendErr := c.jnl.Append(c.entry(t, "target completion elapsed"))
		return appendErr
	})
}

func (c *Coordinator) statusReport() Response {
	return Response{Report: &Report{
		Platform:       c.reg.Platform(),
		WorkersByState: c.reg.CountByStatus(),
		TasksByState:   c.led.CountByStatus(),
		Ready:          c.led.ReadyTasks(),
		JournalEntries: c.jnl.Len(),
		GeneratedAt:    c.now(),
	}}
}

// History returns the journal chain for one task, ordered by sequence.
func (c *Coordinator) History(taskID string) []journal.Entry {
	return c.jnl.ByTask(taskID)
}

func (c *Coordinator) entry(t ledger.Task, summary string) journal.Entry {
	return journal.Entry{
		TaskID:       t.ID,
		Status:       t.Status,
		Owner:        t.Owner,
		Contributors: t.Contributors,
		Summary:      summary,
		Timestamp:    c.now().UTC(),
		Clearance:    t.Clearance,
	}
}
