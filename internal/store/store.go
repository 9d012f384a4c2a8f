// Package store is the durable write-through layer under the journal and
// ledger snapshots. The only fatal failure category in the core is a store
// failure: it aborts the in-flight operation while previously committed
// state remains intact and readable.
package store

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is an append-friendly object store keyed by file name.
type Store interface {
	// AppendLine durably appends one line (newline added) to the named object.
	AppendLine(name string, data []byte) error
	// WriteFile atomically replaces the named object's contents.
	WriteFile(name string, data []byte) error
	// ReadLines returns the appended lines of the named object, oldest first.
	// A missing object yields no lines and no error.
	ReadLines(name string) ([][]byte, error)
	// ReadFile returns the named object's contents, or os.ErrNotExist.
	ReadFile(name string) ([]byte, error)
}

// Dir is a Store backed by a directory. Appends are fsync'd; whole-file
// writes go through a temp-file rename so a crash mid-write cannot corrupt
// committed state.
type Dir struct {
	Root string
}

// Open ensures the directory exists and returns a Dir store.
func Open(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &Dir{Root: root}, nil
}

func (d *Dir) path(name string) string {
	return filepath.Join(d.Root, name)
}

func (d *Dir) AppendLine(name string, data []byte) error {
	f, err := os.OpenFile(d.path(name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *Dir) WriteFile(name string, data []byte) error {
	return writeFileAtomic(d.path(name), data, 0644)
}

func (d *Dir) ReadLines(name string) ([][]byte, error) {
	data, err := os.ReadFile(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return splitLines(data), nil
}

func (d *Dir) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.path(name))
}

// Memory is an in-process Store for tests. A Fail hook lets tests simulate
// durable-store outages.
type Memory struct {
	mu    sync.Mutex
	lines map[string][][]byte
	files map[string][]byte

	// Fail, when non-nil, is returned by every mutation.
	Fail error
}

func NewMemory() *Memory {
	return &Memory{
		lines: make(map[string][][]byte),
		files: make(map[string][]byte),
	}
}

func (m *Memory) AppendLine(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	line := make([]byte, len(data))
	copy(line, data)
	m.lines[name] = append(m.lines[name], line)
	return nil
}

func (m *Memory) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[name] = buf
	return nil
}

func (m *Memory) ReadLines(name string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.lines[name]))
	copy(out, m.lines[name])
	return out, nil
}

func (m *Memory) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		out = append(out, line)
	}
	return out
}
