package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mltmacster/agentic-empire/internal/store"
)

const snapshotName = "tasks.json"

// taskRecord is the on-store shape of a task.
type taskRecord struct {
	ID               string    `json:"task_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Status           string    `json:"status"`
	Owner            string    `json:"owner,omitempty"`
	Contributors     []string  `json:"contributors,omitempty"`
	Priority         string    `json:"priority"`
	Requires         string    `json:"requires,omitempty"`
	Dependencies     []string  `json:"dependencies,omitempty"`
	Complexity       int       `json:"complexity"`
	Clearance        int       `json:"clearance"`
	CreatedAt        time.Time `json:"created_at"`
	TargetCompletion time.Time `json:"target_completion,omitempty"`
}

// Save writes the full task snapshot through the store in creation order.
func (l *Ledger) Save(s store.Store) error {
	l.mu.RLock()
	records := make([]taskRecord, 0, len(l.order))
	for _, id := range l.order {
		t := l.tasks[id]
		records = append(records, taskRecord{
			ID:               t.ID,
			Title:            t.Title,
			Description:      t.Description,
			Status:           t.Status,
			Owner:            t.Owner,
			Contributors:     t.Contributors,
			Priority:         t.Priority,
			Requires:         t.Requires,
			Dependencies:     t.Dependencies,
			Complexity:       t.Complexity,
			Clearance:        t.Clearance,
			CreatedAt:        t.CreatedAt,
			TargetCompletion: t.TargetCompletion,
		})
	}
	l.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode snapshot: %w", err)
	}
	return s.WriteFile(snapshotName, data)
}

// Load rebuilds a ledger from the store's task snapshot. A missing
// snapshot yields an empty ledger. Graph indexes and readiness counters
// are recomputed from the records.
func Load(s store.Store) (*Ledger, error) {
	l := New()
	data, err := s.ReadFile(snapshotName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("ledger: read snapshot: %w", err)
	}
	var records []taskRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ledger: decode snapshot: %w", err)
	}

	for _, rec := range records {
		t := &Task{
			ID:               rec.ID,
			Title:            rec.Title,
			Description:      rec.Description,
			Status:           rec.Status,
			Owner:            rec.Owner,
			Contributors:     rec.Contributors,
			Priority:         rec.Priority,
			Requires:         rec.Requires,
			Dependencies:     rec.Dependencies,
			Complexity:       rec.Complexity,
			Clearance:        rec.Clearance,
			CreatedAt:        rec.CreatedAt,
			TargetCompletion: rec.TargetCompletion,
		}
		if _, exists := l.tasks[t.ID]; exists {
			return nil, fmt.Errorf("ledger: snapshot has duplicate task %q", t.ID)
		}
		l.tasks[t.ID] = t
		l.order = append(l.order, t.ID)
	}
	for _, id := range l.order {
		t := l.tasks[id]
		incomplete := 0
		for _, dep := range t.Dependencies {
			d, ok := l.tasks[dep]
			if !ok {
				return nil, fmt.Errorf("ledger: snapshot task %q: dependency %q missing", id, dep)
			}
			if d.Status != StatusCompleted {
				incomplete++
			}
			l.dependents[dep] = append(l.dependents[dep], id)
		}
		l.waiting[id] = incomplete
	}
	if !l.acyclic() {
		return nil, fmt.Errorf("ledger: snapshot dependency graph has a cycle")
	}
	return l, nil
}
