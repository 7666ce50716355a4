// Package inmemory is a map backed storage.Driver for tests and ephemeral bots.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/citebot/pkg/merkle"
	"github.com/papercomputeco/citebot/pkg/storage"
)

// Driver keeps nodes and heads in process memory.
type Driver struct {
	mu    sync.RWMutex
	nodes map[string]*merkle.Node
	heads map[string]string
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		nodes: make(map[string]*merkle.Node),
		heads: make(map[string]string),
	}
}

func (d *Driver) Put(_ context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.nodes[node.Hash]; ok {
		return false, nil
	}

	stored := *node
	d.nodes[node.Hash] = &stored
	return true, nil
}

func (d *Driver) Get(_ context.Context, hash string) (*merkle.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.nodes[hash]
	if !ok {
		return nil, storage.ErrNotFound{Hash: hash}
	}

	out := *node
	return &out, nil
}

func (d *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	return storage.Ancestry(ctx, hash, d.Get)
}

func (d *Driver) List(_ context.Context) ([]*merkle.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	nodes := make([]*merkle.Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out := *n
		nodes = append(nodes, &out)
	}
	return nodes, nil
}

func (d *Driver) SetHead(_ context.Context, key, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.nodes[hash]; !ok {
		return storage.ErrNotFound{Hash: hash}
	}
	d.heads[key] = hash
	return nil
}

func (d *Driver) Head(_ context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hash, ok := d.heads[key]
	if !ok {
		return "", storage.ErrNoHead{Key: key}
	}
	return hash, nil
}

func (d *Driver) Heads(_ context.Context) (map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]string, len(d.heads))
	for k, v := range d.heads {
		out[k] = v
	}
	return out, nil
}

func (d *Driver) Close() error {
	return nil
}
