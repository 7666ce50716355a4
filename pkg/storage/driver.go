// Package storage defines the backends that persist transcript nodes and the
// per-conversation head pointers into them.
package storage

import (
	"context"

	"github.com/papercomputeco/citebot/pkg/merkle"
)

// Driver persists Merkle nodes and maps conversation keys to the hash of their
// latest node. De-duplication happens through content-addressing: identical
// turns with identical parents produce identical hashes and are stored once.
type Driver interface {
	// Put stores a node. It reports false when a node with the same hash already existed.
	Put(ctx context.Context, node *merkle.Node) (bool, error)

	// Get retrieves a node by its hash. Returns ErrNotFound if the node doesn't exist.
	Get(ctx context.Context, hash string) (*merkle.Node, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error)

	// List returns all nodes in the store.
	List(ctx context.Context) ([]*merkle.Node, error)

	// SetHead points a conversation key at a node hash.
	SetHead(ctx context.Context, key, hash string) error

	// Head returns the node hash for a conversation key. Returns ErrNoHead if unknown.
	Head(ctx context.Context, key string) (string, error)

	// Heads returns every known conversation key with its head hash.
	Heads(ctx context.Context) (map[string]string, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}

// ErrNoHead is returned when a conversation key has never been saved.
type ErrNoHead struct {
	Key string
}

func (e ErrNoHead) Error() string {
	return "no head for conversation: " + e.Key
}

// Ancestry walks parent links with get until it reaches a root. Drivers without
// a native traversal use it to implement Driver.Ancestry.
func Ancestry(ctx context.Context, hash string, get func(context.Context, string) (*merkle.Node, error)) ([]*merkle.Node, error) {
	var path []*merkle.Node

	current := hash
	for {
		node, err := get(ctx, current)
		if err != nil {
			return nil, err
		}
		path = append(path, node)

		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}
