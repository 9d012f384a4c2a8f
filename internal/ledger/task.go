package ledger

import (
	"time"

	"github.com/mltmacster/agentic-empire/internal/schema"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// legalNext is the transition legality table. completed and failed are
// terminal: they have no successors.
var legalNext = map[string][]string{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusBlocked},
	StatusBlocked:    {StatusInProgress, StatusFailed},
}

func legalTransition(from, to string) bool {
	for _, s := range legalNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no legal successors.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Spec is a create-task request. CreatedAt defaults to the ledger clock
// when zero.
type Spec struct {
	ID               string
	Title            string
	Description      string
	Priority         string
	Requires         string // capability tag a worker must hold to be assigned
	Dependencies     []string
	Complexity       int
	Clearance        int
	CreatedAt        time.Time
	TargetCompletion time.Time
}

// Task is a unit of work. Tasks are never deleted; terminal tasks are
// retained for audit.
type Task struct {
	ID               string
	Title            string
	Description      string
	Status           string
	Owner            string
	Contributors     []string
	Priority         string
	Requires         string
	Dependencies     []string
	Complexity       int
	Clearance        int
	CreatedAt        time.Time
	TargetCompletion time.Time
}

func (t *Task) record() schema.Record {
	rec := schema.Record{
		"task_id":      t.ID,
		"title":        t.Title,
		"description":  t.Description,
		"status":       t.Status,
		"contributors": t.Contributors,
		"priority":     t.Priority,
		"requires":     t.Requires,
		"dependencies": t.Dependencies,
		"complexity":   t.Complexity,
		"clearance":    t.Clearance,
		"created_at":   t.CreatedAt,
	}
	if t.Owner != "" {
		rec["owner"] = t.Owner
	}
	if !t.TargetCompletion.IsZero() {
		rec["target_completion"] = t.TargetCompletion
	}
	return rec
}

// priorityRank orders priorities for readiness sorting; lower is more urgent.
func priorityRank(p string) int {
	switch p {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return 4
	}
}
