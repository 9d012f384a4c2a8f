// Package registry loads and indexes worker definitions from the YAML
// manifest. The registry is rebuilt at process start and is immutable
// afterwards except for status updates, which only the coordinator makes.
package registry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mltmacster/agentic-empire/internal/fault"
	"github.com/mltmacster/agentic-empire/internal/schema"
)

// Worker statuses.
const (
	StatusIdle    = "idle"
	StatusActive  = "active"
	StatusBlocked = "blocked"
	StatusRetired = "retired"
)

// Worker is one manifest entry. Parent is a non-owning back-reference used
// only for lookup; it never implies lifetime or cascading updates.
type Worker struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Capabilities []string `yaml:"capabilities"`
	Status       string   `yaml:"status"`
	Parent       string   `yaml:"parent"`
	Clearance    int      `yaml:"clearance"`
}

// Manifest is the on-disk shape of the worker manifest.
type Manifest struct {
	Platform string   `yaml:"platform"`
	Workers  []Worker `yaml:"workers"`
}

// Registry indexes workers by id. Safe for concurrent reads; SetStatus is
// the only mutation and takes the write lock.
type Registry struct {
	mu       sync.RWMutex
	platform string
	order    []string // manifest order, for deterministic listings
	workers  map[string]*Worker
}

// Load reads and validates the manifest file. Any malformed entry fails the
// whole load; the registry never starts in an inconsistent state.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a Registry from manifest bytes.
func Parse(data []byte) (*Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if len(m.Workers) == 0 {
		return nil, fmt.Errorf("manifest: at least one worker is required")
	}

	r := &Registry{
		platform: m.Platform,
		workers:  make(map[string]*Worker, len(m.Workers)),
	}
	for i := range m.Workers {
		w := m.Workers[i]
		res := schema.Validate(schema.KindWorker, w.record())
		if !res.OK() {
			return nil, fault.WithDetails(fault.SchemaViolation,
				fmt.Sprintf("manifest: worker %d (%s)", i+1, w.ID), res.Details())
		}
		if _, exists := r.workers[w.ID]; exists {
			return nil, fault.New(fault.DuplicateID, "manifest: duplicate worker id %q", w.ID)
		}
		r.workers[w.ID] = &m.Workers[i]
		r.order = append(r.order, w.ID)
	}

	// Parent references must resolve within the manifest.
	for _, id := range r.order {
		w := r.workers[id]
		if w.Parent == "" {
			continue
		}
		if _, ok := r.workers[w.Parent]; !ok {
			return nil, fault.New(fault.NotFound, "manifest: worker %q: parent %q not found", w.ID, w.Parent)
		}
		if w.Parent == w.ID {
			return nil, fmt.Errorf("manifest: worker %q is its own parent", w.ID)
		}
	}
	return r, nil
}

func (w Worker) record() schema.Record {
	rec := schema.Record{
		"worker_id":    w.ID,
		"name":         w.Name,
		"role":         w.Role,
		"capabilities": w.Capabilities,
		"status":       w.Status,
		"clearance":    w.Clearance,
	}
	if w.Parent != "" {
		rec["parent"] = w.Parent
	}
	return rec
}

// Platform returns the manifest's platform name.
func (r *Registry) Platform() string { return r.platform }

// Lookup returns a copy of the worker with the given id.
func (r *Registry) Lookup(id string) (Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	if !ok {
		return Worker{}, fault.New(fault.NotFound, "worker %q not found", id)
	}
	return *w, nil
}

// ByRole returns workers with the given role tag, in manifest order.
func (r *Registry) ByRole(role string) []Worker {
	return r.filter(func(w *Worker) bool { return w.Role == role })
}

// ByStatus returns workers with the given status, in manifest order.
func (r *Registry) ByStatus(status string) []Worker {
	return r.filter(func(w *Worker) bool { return w.Status == status })
}

// All returns every worker in manifest order.
func (r *Registry) All() []Worker {
	return r.filter(func(*Worker) bool { return true })
}

func (r *Registry) filter(keep func(*Worker) bool) []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Worker
	for _, id := range r.order {
		if w := r.workers[id]; keep(w) {
			out = append(out, *w)
		}
	}
	return out
}

// HasCapability reports exact-set-membership of tag in the worker's
// capability set. No fuzzy matching.
func (r *Registry) HasCapability(id, tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	if !ok {
		return false
	}
	for _, c := range w.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// SetStatus updates a worker's status. Only the coordinator calls this.
func (r *Registry) SetStatus(id, status string) error {
	valid := false
	for _, s := range schema.WorkerStatuses {
		if s == status {
			valid = true
			break
		}
	}
	if !valid {
		return fault.New(fault.SchemaViolation, "unknown worker status %q", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok {
		return fault.New(fault.NotFound, "worker %q not found", id)
	}
	w.Status = status
	return nil
}

// CountByStatus returns the number of workers per status tag.
func (r *Registry) CountByStatus() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, w := range r.workers {
		out[w.Status]++
	}
	return out
}
