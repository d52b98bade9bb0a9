// Package syncer decides when collection state is written to disk. It
// owns all filesystem I/O for a collection: lazy flushes of dirty nodes,
// the forced flush when navigation leaves an unsaved request, physical
// removal of deleted nodes, and loading a persisted collection back into
// memory.
//
// On disk, a collection is a directory tree mirroring the node tree: one
// subdirectory per directory node, one <name>.yaml file per request, and
// a .hornet.yaml manifest per directory carrying display order (and, at
// the root, the collection's name and description).
package syncer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hornet-api/hornet/pkg/codec"
	"github.com/hornet-api/hornet/pkg/collection"
)

// State is the synchronization state of one collection.
type State int

const (
	StateClean State = iota
	StateDirty
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateFlushing:
		return "flushing"
	default:
		return "clean"
	}
}

// Engine synchronizes one collection with its directory. Engines for
// different collections are fully independent and may flush
// concurrently; within one engine, flushes are serialized and a close
// waits for any in-flight flush to finish.
type Engine struct {
	dir string

	mu       sync.Mutex // serializes flush, discard and close
	flushing atomic.Bool

	storeMu sync.RWMutex
	store   *collection.Store
}

// Create initializes a new collection directory and returns its engine.
// Fails if the directory already holds a collection manifest.
func Create(dir string, info collection.Info) (*Engine, error) {
	manifest := filepath.Join(dir, codec.ManifestName)
	if _, err := os.Stat(manifest); err == nil {
		return nil, fmt.Errorf("create collection: %s already exists", manifest)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	st := collection.NewStore(info)
	e := &Engine{dir: dir, store: st}
	if err := e.Flush(); err != nil {
		return nil, err
	}
	return e, nil
}

// Open loads a persisted collection. A malformed file fails the whole
// load with a decode error naming the file, leaving no partial state
// behind; the caller presents this as a recoverable condition.
func Open(dir string) (*Engine, error) {
	st, err := loadStore(dir)
	if err != nil {
		return nil, err
	}
	return &Engine{dir: dir, store: st}, nil
}

// Dir returns the collection's root directory.
func (e *Engine) Dir() string { return e.dir }

// Store returns the live store. The pointer changes after Discard, so
// callers should re-fetch it rather than cache it across a discard.
func (e *Engine) Store() *collection.Store {
	e.storeMu.RLock()
	defer e.storeMu.RUnlock()
	return e.store
}

// State reports the engine's position in the Clean/Dirty/Flushing cycle
// for the UI's sync indicator.
func (e *Engine) State() State {
	if e.flushing.Load() {
		return StateFlushing
	}
	if e.Store().AnyDirty() {
		return StateDirty
	}
	return StateClean
}

// Flush persists every dirty node and applies queued renames and
// deletions. When nothing is dirty this is a guaranteed no-op: no
// filesystem writes are issued at all. A node whose write fails stays
// dirty and is retried by the next flush; nodes written successfully in
// the same pass are not re-marked.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	st := e.Store()
	plan := st.PlanFlush()
	if plan.Empty() {
		return nil
	}

	e.flushing.Store(true)
	defer e.flushing.Store(false)

	var errs []error

	// Queued renames and deletions first, in mutation order: a later
	// op's paths assume the earlier ones already happened, so the replay
	// stops at the first failure and the remainder is retried next time.
	opsApplied := 0
	for _, op := range plan.Ops {
		if err := e.applyOp(op); err != nil {
			errs = append(errs, err)
			break
		}
		opsApplied++
	}

	var written []collection.NodeID
	if len(errs) == 0 {
		for _, dw := range plan.Dirs {
			if err := e.writeDir(dw); err != nil {
				errs = append(errs, err)
				continue
			}
			written = append(written, dw.ID)
		}
		for _, rw := range plan.Requests {
			if err := e.writeRequest(rw); err != nil {
				errs = append(errs, err)
				continue
			}
			written = append(written, rw.ID)
		}
	}

	st.CommitFlush(plan, opsApplied, written)
	if len(errs) > 0 {
		return fmt.Errorf("flush %s: %w", e.dir, errors.Join(errs...))
	}
	return nil
}

// NavigateAway is the forced-flush hook: called by the UI before focus
// leaves a request so an unsaved edit is never silently lost. Clean
// nodes cost nothing.
func (e *Engine) NavigateAway(id collection.NodeID) error {
	if !e.Store().IsDirty(id) {
		return nil
	}
	return e.Flush()
}

// Discard drops all unflushed changes and reloads the collection from
// disk. Waits for an in-flight flush rather than racing it.
func (e *Engine) Discard() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := loadStore(e.dir)
	if err != nil {
		return fmt.Errorf("discard: %w", err)
	}
	e.storeMu.Lock()
	e.store = st
	e.storeMu.Unlock()
	return nil
}

// Close flushes outstanding changes and waits for any in-flight flush.
// Callers that want to abandon changes instead call Discard first.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) abs(rel string) string {
	return filepath.Join(e.dir, filepath.FromSlash(rel))
}

func (e *Engine) applyOp(op collection.PendingOp) error {
	switch op.Kind {
	case collection.OpRename:
		from, to := e.abs(op.From), e.abs(op.To)
		if _, err := os.Stat(from); os.IsNotExist(err) {
			// Node was never persisted; the content write will create it
			// at the new path.
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
			return fmt.Errorf("rename %s: %w", op.From, err)
		}
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("rename %s -> %s: %w", op.From, op.To, err)
		}
		return nil
	case collection.OpDelete:
		if err := os.RemoveAll(e.abs(op.From)); err != nil {
			return fmt.Errorf("delete %s: %w", op.From, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown pending op %d", op.Kind)
	}
}

func (e *Engine) writeDir(dw collection.DirWrite) error {
	dir := e.abs(dw.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write directory %s: %w", dw.Path, err)
	}
	m := codec.Manifest{Order: dw.Order}
	if dw.Root {
		m.Name = dw.Name
		m.Description = dw.Description
	}
	data, err := codec.EncodeManifest(m)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(dir, codec.ManifestName), data)
}

func (e *Engine) writeRequest(rw collection.RequestWrite) error {
	path := e.abs(rw.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("write request %s: %w", rw.Path, err)
	}
	data, err := codec.EncodeRequest(rw.Def)
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite lands the file through a temp-and-rename so a failed or
// interrupted write never corrupts the previous content, and sibling
// files are never touched.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
