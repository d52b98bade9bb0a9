// Package collection holds the in-memory model of a request collection:
// a tree of directories and requests, and the Store that is the sole
// mutation surface over that tree. Every change funnels through the Store
// so dirty tracking stays authoritative for the sync engine.
package collection

import (
	"fmt"
	"iter"
	"time"
)

// NodeID identifies a node within the process. IDs are assigned from a
// process-wide counter at creation and never reused, not even after the
// node is deleted. They are not persisted; a reload assigns fresh IDs.
type NodeID int64

// Kind distinguishes the two node variants of the tree.
type Kind int

const (
	KindDirectory Kind = iota
	KindRequest
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "request"
}

// Method is the HTTP method of a request.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodPatch:
		return "PATCH"
	case MethodDelete:
		return "DELETE"
	default:
		return "GET"
	}
}

// ParseMethod converts an upper-case method name into a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "GET":
		return MethodGet, nil
	case "POST":
		return MethodPost, nil
	case "PUT":
		return MethodPut, nil
	case "PATCH":
		return MethodPatch, nil
	case "DELETE":
		return MethodDelete, nil
	default:
		return MethodGet, fmt.Errorf("unknown method %q", s)
	}
}

// Next cycles to the following method. Used by the UI to tab through
// methods on the editor pane.
func (m Method) Next() Method {
	return (m + 1) % 5
}

// Prev cycles to the preceding method.
func (m Method) Prev() Method {
	return (m + 4) % 5
}

// AllowsBody reports whether the method conventionally carries a body.
// The store still accepts a body on any method; the UI hides the body
// editor and the runner skips the payload when this is false.
func (m Method) AllowsBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

// HeaderEntry is one header line on a request. Entries keep insertion
// order, duplicate names are allowed, and each entry can be toggled
// without losing its value.
type HeaderEntry struct {
	Name    string
	Value   string
	Enabled bool
}

// AuthKind selects how a request authenticates.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthBearer
	AuthBasic
	AuthOAuth2
)

func (a AuthKind) String() string {
	switch a {
	case AuthBearer:
		return "bearer"
	case AuthBasic:
		return "basic"
	case AuthOAuth2:
		return "oauth2"
	default:
		return "none"
	}
}

// ParseAuthKind converts a persisted auth kind name into an AuthKind.
func ParseAuthKind(s string) (AuthKind, error) {
	switch s {
	case "", "none":
		return AuthNone, nil
	case "bearer":
		return AuthBearer, nil
	case "basic":
		return AuthBasic, nil
	case "oauth2":
		return AuthOAuth2, nil
	default:
		return AuthNone, fmt.Errorf("unknown auth kind %q", s)
	}
}

// Auth carries the credentials for a request. Only the fields relevant
// to Kind are used.
type Auth struct {
	Kind         AuthKind
	Token        string // bearer
	Username     string // basic
	Password     string // basic
	TokenURL     string // oauth2 client credentials
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Response is the cached outcome of the most recent execution of a
// request. It is transient: never persisted with the request definition
// and lost on reload.
type Response struct {
	StatusCode int
	Status     string
	Headers    []HeaderEntry
	Body       string
	Size       int64
	Duration   time.Duration
	ReceivedAt time.Time
}

// RequestDef is the editable definition of a request node.
type RequestDef struct {
	Method     Method
	URL        string
	Headers    []HeaderEntry
	Body       string
	BodySchema string // optional inline JSON Schema validated before send
	Auth       Auth
}

// Clone returns a deep copy of the definition.
func (d RequestDef) Clone() RequestDef {
	out := d
	out.Headers = append([]HeaderEntry(nil), d.Headers...)
	out.Auth.Scopes = append([]string(nil), d.Auth.Scopes...)
	return out
}

// Node is a single entry in the collection tree: a directory or a
// request. The tree exclusively owns its nodes; the parent pointer is a
// non-owning back-reference used only for upward navigation.
type Node struct {
	id       NodeID
	name     string
	kind     Kind
	parent   *Node
	children []*Node     // directories only
	def      *RequestDef // requests only
	resp     *Response   // requests only, transient
}

// ID returns the node's process-unique identifier.
func (n *Node) ID() NodeID { return n.id }

// Name returns the display name, which is also the persisted file or
// directory name.
func (n *Node) Name() string { return n.name }

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns the containing directory, or nil for the root and for
// nodes that have been removed from the tree.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the ordered child nodes of a directory. The returned
// slice is a copy; mutating it does not affect the tree.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Request returns a deep copy of the request definition, suitable to
// hand to the HTTP runner without holding the store lock.
func (n *Node) Request() RequestDef {
	if n.def == nil {
		return RequestDef{}
	}
	return n.def.Clone()
}

// LastResponse returns the cached response of the most recent execution,
// or nil if the request has not been executed this session.
func (n *Node) LastResponse() *Response { return n.resp }

// Subtree returns a restartable pre-order traversal rooted at n. The
// sequence is finite and every invocation walks the tree from scratch,
// so callers may range over it any number of times.
func (n *Node) Subtree() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// find performs a depth-first lookup by id within the subtree rooted at n.
func (n *Node) find(id NodeID) *Node {
	if n.id == id {
		return n
	}
	for _, c := range n.children {
		if found := c.find(id); found != nil {
			return found
		}
	}
	return nil
}

// child returns the direct child with the given name, or nil.
func (n *Node) child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// isDescendantOf reports whether n is d or lies below d.
func (n *Node) isDescendantOf(d *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == d {
			return true
		}
	}
	return false
}

// detach removes n from its parent's children and clears the
// back-reference, leaving n outside any tree.
func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}
