// Package journal is the append-only audit log. Every committed task
// transition produces exactly one immutable entry. Entries carry a strictly
// monotonic, gapless global sequence and a per-task causal chain: each
// entry names its predecessor entry for the same task and that
// predecessor's hash, so a reader can reconstruct and verify a task's full
// history without consulting the ledger.
//
// Tamper evidence: an entry's hash is the sha256 of its canonical encoding.
// Verify recomputes every hash and chain link.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mltmacster/agentic-empire/internal/fault"
	"github.com/mltmacster/agentic-empire/internal/schema"
	"github.com/mltmacster/agentic-empire/internal/store"
)

const logName = "journal.jsonl"

// Entry is one committed state change. Immutable once appended.
type Entry struct {
	EntryID      string    `json:"entry_id"`
	Seq          uint64    `json:"seq"`
	TaskID       string    `json:"task_id"`
	Status       string    `json:"status"`
	Owner        string    `json:"owner,omitempty"`
	Contributors []string  `json:"contributors,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Timestamp    time.Time `json:"last_sync"`
	Clearance    int       `json:"clearance"`
	CommitRef    string    `json:"commit_ref,omitempty"`

	// Parent is the entry id of the causal predecessor for the same task,
	// empty for a task's first entry. ParentHash is that entry's Hash.
	Parent     string `json:"parent,omitempty"`
	ParentHash string `json:"parent_hash,omitempty"`
	Hash       string `json:"hash"`
}

type chainHead struct {
	entryID string
	hash    string
}

// Journal appends entries through the durable store and keeps an in-memory
// index for reads. Safe for concurrent use.
type Journal struct {
	mu      sync.RWMutex
	store   store.Store
	entries []Entry
	heads   map[string]chainHead // task id -> latest entry
	nextSeq uint64
}

// Open loads any previously committed entries from the store and resumes
// the sequence after the last one.
func Open(s store.Store) (*Journal, error) {
	j := &Journal{
		store:   s,
		heads:   make(map[string]chainHead),
		nextSeq: 1,
	}
	lines, err := s.ReadLines(logName)
	if err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}
	for i, line := range lines {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("journal: entry %d: %w", i+1, err)
		}
		if e.Seq != j.nextSeq {
			return nil, fmt.Errorf("journal: entry %d: sequence %d, want %d", i+1, e.Seq, j.nextSeq)
		}
		j.entries = append(j.entries, e)
		j.heads[e.TaskID] = chainHead{entryID: e.EntryID, hash: e.Hash}
		j.nextSeq++
	}
	return j, nil
}

// Append validates the entry, assigns its identity, sequence, and chain
// links, writes it through the store, and only then makes it readable.
// It never rejects a well-formed entry; the gate runs here because the
// journal is a commit point.
func (j *Journal) Append(e Entry) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if res := schema.Validate(schema.KindJournalEntry, record(e)); !res.OK() {
		return 0, fault.WithDetails(fault.SchemaViolation, "journal entry for "+e.TaskID, res.Details())
	}

	e.EntryID = uuid.NewString()
	e.Seq = j.nextSeq
	if head, ok := j.heads[e.TaskID]; ok {
		e.Parent = head.entryID
		e.ParentHash = head.hash
	} else {
		e.Parent = ""
		e.ParentHash = ""
	}
	e.Hash = entryHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("journal: encode: %w", err)
	}
	if err := j.store.AppendLine(logName, data); err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}

	j.entries = append(j.entries, e)
	j.heads[e.TaskID] = chainHead{entryID: e.EntryID, hash: e.Hash}
	j.nextSeq++
	return e.Seq, nil
}

// ByTask returns the task's entries ordered by sequence number.
func (j *Journal) ByTask(taskID string) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Entry
	for _, e := range j.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry ordered by sequence number.
func (j *Journal) All() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of committed entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Verify recomputes every entry hash and per-task chain link, and checks
// the global sequence for gaps. It returns the first inconsistency found.
func (j *Journal) Verify() error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	heads := make(map[string]chainHead)
	for i, e := range j.entries {
		if e.Seq != uint64(i+1) {
			return fmt.Errorf("journal: entry %d: sequence %d, want %d", i+1, e.Seq, i+1)
		}
		if got := entryHash(e); got != e.Hash {
			return fmt.Errorf("journal: entry %d (%s): hash mismatch", i+1, e.EntryID)
		}
		head, seen := heads[e.TaskID]
		if !seen {
			if e.Parent != "" || e.ParentHash != "" {
				return fmt.Errorf("journal: entry %d (%s): first entry for %s has a parent", i+1, e.EntryID, e.TaskID)
			}
		} else if e.Parent != head.entryID || e.ParentHash != head.hash {
			return fmt.Errorf("journal: entry %d (%s): broken chain for %s", i+1, e.EntryID, e.TaskID)
		}
		heads[e.TaskID] = chainHead{entryID: e.EntryID, hash: e.Hash}
	}
	return nil
}

// entryHash computes the sha256 of the entry's canonical encoding: its JSON
// form with the Hash field cleared. Field order is fixed by the struct, so
// the bytes are stable across runs.
func entryHash(e Entry) string {
	e.Hash = ""
	data, err := json.Marshal(e)
	if err != nil {
		// Entry contains only marshalable field types.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func record(e Entry) schema.Record {
	rec := schema.Record{
		"task_id":      e.TaskID,
		"status":       e.Status,
		"contributors": e.Contributors,
		"summary":      e.Summary,
		"last_sync":    e.Timestamp,
		"clearance":    e.Clearance,
	}
	if e.Owner != "" {
		rec["owner"] = e.Owner
	}
	if e.CommitRef != "" {
		rec["commit_ref"] = e.CommitRef
	}
	return rec
}
