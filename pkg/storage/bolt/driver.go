// Package bolt is a storage.Driver backed by a single bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/papercomputeco/citebot/pkg/merkle"
	"github.com/papercomputeco/citebot/pkg/storage"
)

var (
	nodesBucket = []byte("nodes")
	headsBucket = []byte("heads")
)

// Driver stores JSON encoded nodes keyed by hash and heads keyed by conversation.
type Driver struct {
	db *bolt.DB
}

// NewDriver opens (or creates) the bbolt file at path.
func NewDriver(path string) (*Driver, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{nodesBucket, headsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create buckets: %w", err)
	}

	return &Driver{db: db}, nil
}

func (d *Driver) Put(_ context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	data, err := json.Marshal(node)
	if err != nil {
		return false, fmt.Errorf("marshal node: %w", err)
	}

	isNew := false
	err = d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(nodesBucket)
		if b.Get([]byte(node.Hash)) != nil {
			return nil
		}
		isNew = true
		return b.Put([]byte(node.Hash), data)
	})
	if err != nil {
		return false, fmt.Errorf("storing node: %w", err)
	}
	return isNew, nil
}

func (d *Driver) Get(_ context.Context, hash string) (*merkle.Node, error) {
	var node *merkle.Node
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(nodesBucket).Get([]byte(hash))
		if v == nil {
			return storage.ErrNotFound{Hash: hash}
		}
		node = &merkle.Node{}
		return json.Unmarshal(v, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (d *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	return storage.Ancestry(ctx, hash, d.Get)
}

func (d *Driver) List(_ context.Context) ([]*merkle.Node, error) {
	nodes := []*merkle.Node{}
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(nodesBucket).ForEach(func(_, v []byte) error {
			var node merkle.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return nodes, nil
}

func (d *Driver) SetHead(_ context.Context, key, hash string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(nodesBucket).Get([]byte(hash)) == nil {
			return storage.ErrNotFound{Hash: hash}
		}
		return tx.Bucket(headsBucket).Put([]byte(key), []byte(hash))
	})
}

func (d *Driver) Head(_ context.Context, key string) (string, error) {
	var hash string
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(headsBucket).Get([]byte(key))
		if v == nil {
			return storage.ErrNoHead{Key: key}
		}
		hash = string(v)
		return nil
	})
	return hash, err
}

func (d *Driver) Heads(_ context.Context) (map[string]string, error) {
	heads := make(map[string]string)
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(headsBucket).ForEach(func(k, v []byte) error {
			heads[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing heads: %w", err)
	}
	return heads, nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}
