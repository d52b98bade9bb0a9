package collection

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
)

// idCounter hands out NodeIDs for the whole process so an id is never
// reused, even across collections or after a reload.
var idCounter atomic.Int64

func nextID() NodeID {
	return NodeID(idCounter.Add(1))
}

// EnvironmentsDirName is the directory inside a collection that holds
// variable files rather than tree content. The name is reserved: the
// loader skips it and mutations refuse to create a node with it.
const EnvironmentsDirName = "environments"

// Info is the collection-level metadata persisted in the root manifest.
type Info struct {
	Name        string
	Description string
}

// OpKind is the kind of a pending filesystem operation recorded by a
// mutation for the next flush.
type OpKind int

const (
	// OpRename moves a persisted file or directory to a new path.
	OpRename OpKind = iota
	// OpDelete removes a persisted file or directory subtree.
	OpDelete
)

// PendingOp is a filesystem operation queued by a rename, move or delete.
// Paths are slash-separated and relative to the collection directory.
// Ops must be replayed in the order they were recorded: a later op's
// paths assume every earlier op has already been applied.
type PendingOp struct {
	Kind OpKind
	From string
	To   string
}

// RequestWrite is one dirty request captured by a flush plan, deep-copied
// so the sync engine can encode and write it without holding the lock.
type RequestWrite struct {
	ID   NodeID
	Path string
	Def  RequestDef
}

// DirWrite is one dirty directory captured by a flush plan. Order lists
// the child names in display order for the directory manifest. Name and
// Description are only meaningful when Root is true.
type DirWrite struct {
	ID          NodeID
	Path        string
	Order       []string
	Root        bool
	Name        string
	Description string
}

// FlushPlan is a consistent snapshot of everything the sync engine must
// persist: queued filesystem ops plus the dirty nodes' encoded state.
// Mutations arriving after the plan was taken re-mark their nodes dirty
// and are picked up by the next flush.
type FlushPlan struct {
	Ops      []PendingOp
	Dirs     []DirWrite
	Requests []RequestWrite

	gens map[NodeID]uint64
}

// Empty reports whether the plan carries no work at all.
func (p *FlushPlan) Empty() bool {
	return p == nil || (len(p.Ops) == 0 && len(p.Dirs) == 0 && len(p.Requests) == 0)
}

// Store owns the tree of one open collection and is its sole mutation
// surface. All operations are serialized by an internal lock; different
// collections use different stores and are fully independent.
type Store struct {
	mu      sync.Mutex
	info    Info
	root    *Node
	dirty   map[NodeID]uint64 // id -> generation of the dirtying mutation
	gen     uint64
	pending []PendingOp
}

// NewStore creates a store around an empty root directory. The root
// starts dirty so the first flush persists the collection manifest;
// loaders that rebuild a persisted tree call ResetClean afterwards.
func NewStore(info Info) *Store {
	root := &Node{id: nextID(), name: info.Name, kind: KindDirectory}
	s := &Store{
		info:  info,
		root:  root,
		dirty: make(map[NodeID]uint64),
	}
	s.markDirty(root.id)
	return s
}

// Root returns the root directory node.
func (s *Store) Root() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Info returns the collection metadata.
func (s *Store) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SetInfo updates the collection metadata and marks the root dirty so
// the manifest is rewritten on the next flush.
func (s *Store) SetInfo(info Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
	s.root.name = info.Name
	s.markDirty(s.root.id)
}

// Find resolves an id to its node via depth-first search.
func (s *Store) Find(id NodeID) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.root.find(id)
	if n == nil {
		return nil, fmt.Errorf("find %d: %w", id, ErrNotFound)
	}
	return n, nil
}

// PathOf returns the root-to-node name chain, excluding the root itself.
func (s *Store) PathOf(id NodeID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.root.find(id)
	if n == nil {
		return nil, fmt.Errorf("path of %d: %w", id, ErrNotFound)
	}
	return s.namesBelow(n), nil
}

func (s *Store) namesBelow(n *Node) []string {
	var names []string
	for cur := n; cur != nil && cur != s.root; cur = cur.parent {
		names = append(names, cur.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// relPath computes the node's on-disk path relative to the collection
// directory. Requests carry a .yaml suffix, directories none, the root
// is the empty string.
func (s *Store) relPath(n *Node) string {
	rel := path.Join(s.namesBelow(n)...)
	if n.kind == KindRequest {
		rel += ".yaml"
	}
	return rel
}

func (s *Store) markDirty(id NodeID) {
	s.gen++
	s.dirty[id] = s.gen
}

// IsDirty reports whether the node has unflushed changes.
func (s *Store) IsDirty(id NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[id]
	return ok
}

// AnyDirty reports whether the collection has any unflushed change,
// including queued renames and deletions. There is no separate
// collection-level flag; this is derived from the tracked state.
func (s *Store) AnyDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0 || len(s.pending) > 0
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%q: %w", name, ErrEmptyName)
	}
	if strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%q: %w", name, ErrEmptyName)
	}
	// The environments directory holds variable files, not tree content.
	if name == EnvironmentsDirName {
		return fmt.Errorf("%q is reserved: %w", name, ErrEmptyName)
	}
	// Reserved suffixes would collide with persisted request files.
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return fmt.Errorf("%q: %w", name, ErrEmptyName)
	}
	return nil
}

// CreateNode adds a new directory or request under parentID and returns
// its id. The new node and its parent are marked dirty.
func (s *Store) CreateNode(parentID NodeID, kind Kind, name string) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.root.find(parentID)
	if parent == nil {
		return 0, fmt.Errorf("create %q: %w", name, ErrNotFound)
	}
	if parent.kind != KindDirectory {
		return 0, fmt.Errorf("create %q under %q: %w", name, parent.name, ErrNotDirectory)
	}
	if err := validateName(name); err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}
	if parent.child(name) != nil {
		return 0, fmt.Errorf("create %q under %q: %w", name, parent.name, ErrNameTaken)
	}

	n := &Node{id: nextID(), name: name, kind: kind, parent: parent}
	if kind == KindRequest {
		n.def = &RequestDef{Method: MethodGet}
	}
	parent.children = append(parent.children, n)

	s.markDirty(n.id)
	s.markDirty(parent.id)
	return n.id, nil
}

// RenameNode changes a node's name. Because the on-disk layout mirrors
// names, the persisted file is queued for a move on the next flush
// instead of leaving an orphan behind.
func (s *Store) RenameNode(id NodeID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.root.find(id)
	if n == nil {
		return fmt.Errorf("rename %d: %w", id, ErrNotFound)
	}
	if n == s.root {
		// The root's name is collection metadata, not a filesystem name.
		s.info.Name = newName
		n.name = newName
		s.markDirty(n.id)
		return nil
	}
	if err := validateName(newName); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if newName == n.name {
		return nil
	}
	if sib := n.parent.child(newName); sib != nil {
		return fmt.Errorf("rename %q to %q: %w", n.name, newName, ErrNameTaken)
	}

	from := s.relPath(n)
	n.name = newName
	s.pending = append(s.pending, PendingOp{Kind: OpRename, From: from, To: s.relPath(n)})
	s.markDirty(n.id)
	s.markDirty(n.parent.id)
	return nil
}

// MoveNode reparents a node under newParentID, keeping it at the end of
// the new parent's children. Moving a directory into itself or one of
// its descendants is rejected. The old parent, the new parent and the
// whole moved subtree are marked dirty.
func (s *Store) MoveNode(id, newParentID NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.root.find(id)
	if n == nil {
		return fmt.Errorf("move %d: %w", id, ErrNotFound)
	}
	if n == s.root {
		return fmt.Errorf("move %q: %w", n.name, ErrCyclicMove)
	}
	target := s.root.find(newParentID)
	if target == nil {
		return fmt.Errorf("move %q: target: %w", n.name, ErrNotFound)
	}
	if target.kind != KindDirectory {
		return fmt.Errorf("move %q into %q: %w", n.name, target.name, ErrNotDirectory)
	}
	if target.isDescendantOf(n) {
		return fmt.Errorf("move %q into %q: %w", n.name, target.name, ErrCyclicMove)
	}
	if target == n.parent {
		return nil
	}
	if target.child(n.name) != nil {
		return fmt.Errorf("move %q into %q: %w", n.name, target.name, ErrNameTaken)
	}

	oldParent := n.parent
	from := s.relPath(n)
	n.detach()
	n.parent = target
	target.children = append(target.children, n)

	s.pending = append(s.pending, PendingOp{Kind: OpRename, From: from, To: s.relPath(n)})
	s.markDirty(oldParent.id)
	s.markDirty(target.id)
	for sub := range n.Subtree() {
		s.markDirty(sub.id)
	}
	return nil
}

// DeleteNode removes the node and its subtree from the tree and queues
// the physical removal of its persisted state for the next flush. The
// subtree's ids leave the dirty set; they are never reused.
func (s *Store) DeleteNode(id NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.root.find(id)
	if n == nil {
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	if n == s.root {
		return fmt.Errorf("delete %q: %w", n.name, ErrDeleteRoot)
	}

	parent := n.parent
	s.pending = append(s.pending, PendingOp{Kind: OpDelete, From: s.relPath(n)})
	for sub := range n.Subtree() {
		delete(s.dirty, sub.id)
	}
	n.detach()
	s.markDirty(parent.id)
	return nil
}

// request resolves id to a request node or fails.
func (s *Store) request(id NodeID) (*Node, error) {
	n := s.root.find(id)
	if n == nil {
		return nil, fmt.Errorf("request %d: %w", id, ErrNotFound)
	}
	if n.kind != KindRequest {
		return nil, fmt.Errorf("%q: %w", n.name, ErrNotRequest)
	}
	return n, nil
}

// SetMethod updates the request's HTTP method.
func (s *Store) SetMethod(id NodeID, m Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.Method = m
	s.markDirty(id)
	return nil
}

// SetURL updates the request's URL. Empty is allowed while the user is
// still typing.
func (s *Store) SetURL(id NodeID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.URL = url
	s.markDirty(id)
	return nil
}

// SetBody updates the request's body. A body on a method that does not
// conventionally carry one is accepted; whether to warn is UI policy.
func (s *Store) SetBody(id NodeID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.Body = body
	s.markDirty(id)
	return nil
}

// SetBodySchema sets the optional JSON Schema path validated before send.
func (s *Store) SetBodySchema(id NodeID, schema string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.BodySchema = schema
	s.markDirty(id)
	return nil
}

// SetRequest replaces the whole request definition in one call. Used by
// the loader and by collection import.
func (s *Store) SetRequest(id NodeID, def RequestDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	d := def.Clone()
	n.def = &d
	s.markDirty(id)
	return nil
}

// SetAuth replaces the request's auth settings.
func (s *Store) SetAuth(id NodeID, auth Auth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.Auth = auth
	s.markDirty(id)
	return nil
}

// AddHeader appends a header entry, enabled by default.
func (s *Store) AddHeader(id NodeID, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.Headers = append(n.def.Headers, HeaderEntry{Name: name, Value: value, Enabled: true})
	s.markDirty(id)
	return nil
}

// SetHeader replaces the header entry at index i, keeping its position
// and enabled state.
func (s *Store) SetHeader(id NodeID, i int, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(n.def.Headers) {
		return fmt.Errorf("header %d on %q: %w", i, n.name, ErrHeaderIndex)
	}
	n.def.Headers[i].Name = name
	n.def.Headers[i].Value = value
	s.markDirty(id)
	return nil
}

// RemoveHeader deletes the header entry at index i.
func (s *Store) RemoveHeader(id NodeID, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(n.def.Headers) {
		return fmt.Errorf("header %d on %q: %w", i, n.name, ErrHeaderIndex)
	}
	n.def.Headers = append(n.def.Headers[:i], n.def.Headers[i+1:]...)
	s.markDirty(id)
	return nil
}

// SetHeaders replaces the whole ordered header list. Used by the loader
// and by bulk edits in the editor pane.
func (s *Store) SetHeaders(id NodeID, headers []HeaderEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.def.Headers = append([]HeaderEntry(nil), headers...)
	s.markDirty(id)
	return nil
}

// ToggleHeader flips the enabled flag of the header entry at index i
// without losing its value.
func (s *Store) ToggleHeader(id NodeID, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(n.def.Headers) {
		return fmt.Errorf("header %d on %q: %w", i, n.name, ErrHeaderIndex)
	}
	n.def.Headers[i].Enabled = !n.def.Headers[i].Enabled
	s.markDirty(id)
	return nil
}

// AttachResponse caches the outcome of an execution on the request.
// Responses are not part of the durable definition, so this does not
// mark the node dirty.
func (s *Store) AttachResponse(id NodeID, resp *Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.request(id)
	if err != nil {
		return err
	}
	n.resp = resp
	return nil
}

// RequestSnapshot is a deep-copied view of one request under a
// directory, safe to hold and execute outside the store lock.
type RequestSnapshot struct {
	ID   NodeID
	Path string // slash-joined names below the directory
	Def  RequestDef
}

// SnapshotRequests copies every request under dir in display order.
// Callers running requests off the UI goroutine take this snapshot
// instead of walking the live tree, which may be mutated concurrently.
func (s *Store) SnapshotRequests(dirID NodeID) ([]RequestSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.root.find(dirID)
	if d == nil {
		return nil, fmt.Errorf("snapshot %d: %w", dirID, ErrNotFound)
	}
	if d.kind != KindDirectory {
		return nil, fmt.Errorf("snapshot %q: %w", d.name, ErrNotDirectory)
	}

	base := len(s.namesBelow(d))
	var out []RequestSnapshot
	for n := range d.Subtree() {
		if n.kind != KindRequest {
			continue
		}
		names := s.namesBelow(n)
		out = append(out, RequestSnapshot{
			ID:   n.id,
			Path: path.Join(names[base:]...),
			Def:  n.def.Clone(),
		})
	}
	return out, nil
}

// PlanFlush snapshots everything that must be persisted: the queued
// filesystem ops in order, plus a deep copy of every dirty node's state.
// Returns an empty plan when the collection is clean, in which case the
// sync engine issues no writes at all.
func (s *Store) PlanFlush() *FlushPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := &FlushPlan{
		Ops:  append([]PendingOp(nil), s.pending...),
		gens: make(map[NodeID]uint64, len(s.dirty)),
	}
	for n := range s.root.Subtree() {
		gen, ok := s.dirty[n.id]
		if !ok {
			continue
		}
		plan.gens[n.id] = gen
		switch n.kind {
		case KindDirectory:
			dw := DirWrite{ID: n.id, Path: s.relPath(n), Root: n == s.root}
			for _, c := range n.children {
				dw.Order = append(dw.Order, c.name)
			}
			if dw.Root {
				dw.Name = s.info.Name
				dw.Description = s.info.Description
			}
			plan.Dirs = append(plan.Dirs, dw)
		case KindRequest:
			plan.Requests = append(plan.Requests, RequestWrite{
				ID:   n.id,
				Path: s.relPath(n),
				Def:  n.def.Clone(),
			})
		}
	}
	return plan
}

// CommitFlush records the outcome of a flush attempt. The first
// opsApplied queued ops are dropped; each successfully written node
// leaves the dirty set unless a newer mutation re-dirtied it while the
// flush was running, in which case it stays for the next pass. Failed
// nodes are simply not listed in written and remain dirty.
func (s *Store) CommitFlush(plan *FlushPlan, opsApplied int, written []NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opsApplied > len(s.pending) {
		opsApplied = len(s.pending)
	}
	s.pending = append([]PendingOp(nil), s.pending[opsApplied:]...)

	for _, id := range written {
		if gen, ok := s.dirty[id]; ok && gen == plan.gens[id] {
			delete(s.dirty, id)
		}
	}
}

// ResetClean declares the current in-memory state to match disk,
// dropping all dirty tracking and queued ops. Used by the loader after
// reconstructing a tree and by discard-changes.
func (s *Store) ResetClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = make(map[NodeID]uint64)
	s.pending = nil
}
