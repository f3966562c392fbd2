// Package snapshot captures and persists kernel task tables for post-run
// inspection.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"tern/internal/kernel"
)

// Current schema version - increment when Table format changes
const schemaVersion uint16 = 1

// TaskRecord is one task's row in a snapshot.
type TaskRecord struct {
	Pid              int32
	Name             string
	Kind             uint8
	Flags            uint8
	Status           uint8
	CancelPointDepth uint32
}

// KindString returns the task kind as text.
func (r TaskRecord) KindString() string {
	return kernel.TaskKind(r.Kind).String()
}

// FlagsString returns the cancellation flags as text.
func (r TaskRecord) FlagsString() string {
	return kernel.CancelFlags(r.Flags).String()
}

// StatusString returns the scheduling status as text.
func (r TaskRecord) StatusString() string {
	return kernel.TaskStatus(r.Status).String()
}

// Table is a point-in-time copy of the live task table.
type Table struct {
	// Schema version for safe invalidation when the format changes
	Schema  uint16
	TakenAt time.Time
	Tasks   []TaskRecord
}

// Capture copies the kernel's live task table, ordered by pid.
func Capture(k *kernel.Kernel) (*Table, error) {
	if k == nil {
		return nil, fmt.Errorf("nil kernel")
	}
	reg := k.Registry()
	tbl := &Table{Schema: schemaVersion, TakenAt: time.Now()}
	for _, pid := range reg.Pids() {
		t := reg.Lookup(pid)
		if t == nil {
			continue
		}
		depth, err := safecast.Conv[uint32](t.CancelPointDepth())
		if err != nil {
			return nil, fmt.Errorf("pid %d: cancel point depth overflow: %w", pid, err)
		}
		tbl.Tasks = append(tbl.Tasks, TaskRecord{
			Pid:              int32(t.Pid),
			Name:             t.Name,
			Kind:             uint8(t.Kind),
			Flags:            uint8(t.Flags),
			Status:           uint8(t.Status),
			CancelPointDepth: depth,
		})
	}
	return tbl, nil
}

// Write serializes the table to path, replacing any previous file
// atomically.
func Write(path string, tbl *Table) error {
	if tbl == nil {
		return fmt.Errorf("nil snapshot table")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(tbl); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read deserializes a table from path, validating the schema version.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var tbl Table
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&tbl); err != nil {
		return nil, fmt.Errorf("%s: failed to decode snapshot: %w", path, err)
	}
	if tbl.Schema != schemaVersion {
		return nil, fmt.Errorf("%s: snapshot schema %d, want %d", path, tbl.Schema, schemaVersion)
	}
	return &tbl, nil
}
