package collection

import "errors"

// Validation failures returned by Store mutations. Every mutation is
// all-or-nothing: when one of these is returned the tree is unchanged.
var (
	// ErrNotFound means the id does not resolve to a node in the tree.
	ErrNotFound = errors.New("node not found")

	// ErrNotDirectory means the target of a create or move is not a
	// directory node.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotRequest means a request-only operation targeted a directory.
	ErrNotRequest = errors.New("not a request")

	// ErrNameTaken means a sibling with the same name already exists.
	ErrNameTaken = errors.New("name already in use")

	// ErrEmptyName rejects blank or path-unsafe names.
	ErrEmptyName = errors.New("invalid node name")

	// ErrCyclicMove means a directory was asked to move into itself or
	// one of its own descendants.
	ErrCyclicMove = errors.New("cannot move a directory into itself")

	// ErrDeleteRoot means the collection root was asked to delete itself.
	ErrDeleteRoot = errors.New("cannot delete the collection root")

	// ErrHeaderIndex means a header operation referenced an entry that
	// does not exist.
	ErrHeaderIndex = errors.New("header index out of range")
)
