// Package sqlite is a storage.Driver backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver registration
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/citebot/pkg/llm"
	"github.com/papercomputeco/citebot/pkg/merkle"
	"github.com/papercomputeco/citebot/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	hash        TEXT PRIMARY KEY,
	parent_hash TEXT,
	type        TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_hash);
CREATE TABLE IF NOT EXISTS heads (
	conversation_key TEXT PRIMARY KEY,
	hash             TEXT NOT NULL REFERENCES nodes(hash),
	updated_at       INTEGER NOT NULL
);`

// Driver stores nodes and heads in SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, path string) (*Driver, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not apply schema: %w", err)
	}

	return &Driver{db: db}, nil
}

func (d *Driver) Put(ctx context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO nodes (hash, parent_hash, type, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		node.Hash, node.ParentHash, node.Bucket.Type, string(node.Bucket.Role), node.Bucket.Content, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting node: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

func (d *Driver) Get(ctx context.Context, hash string) (*merkle.Node, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT hash, parent_hash, type, role, content FROM nodes WHERE hash = ?`, hash)

	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{Hash: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("getting node: %w", err)
	}
	return node, nil
}

func (d *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	rows, err := d.db.QueryContext(ctx, `
		WITH RECURSIVE chain(hash, parent_hash, type, role, content, depth) AS (
			SELECT hash, parent_hash, type, role, content, 0 FROM nodes WHERE hash = ?
			UNION ALL
			SELECT n.hash, n.parent_hash, n.type, n.role, n.content, c.depth + 1
			FROM nodes n JOIN chain c ON n.hash = c.parent_hash
		)
		SELECT hash, parent_hash, type, role, content FROM chain ORDER BY depth`, hash)
	if err != nil {
		return nil, fmt.Errorf("querying ancestry: %w", err)
	}
	defer rows.Close()

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, storage.ErrNotFound{Hash: hash}
	}
	return nodes, nil
}

func (d *Driver) List(ctx context.Context) ([]*merkle.Node, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT hash, parent_hash, type, role, content FROM nodes ORDER BY created_at, hash`)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

func (d *Driver) SetHead(ctx context.Context, key, hash string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO heads (conversation_key, hash, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(conversation_key) DO UPDATE SET hash = excluded.hash, updated_at = excluded.updated_at`,
		key, hash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("setting head: %w", err)
	}
	return nil
}

func (d *Driver) Head(ctx context.Context, key string) (string, error) {
	var hash string
	err := d.db.QueryRowContext(ctx,
		`SELECT hash FROM heads WHERE conversation_key = ?`, key).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNoHead{Key: key}
	}
	if err != nil {
		return "", fmt.Errorf("getting head: %w", err)
	}
	return hash, nil
}

func (d *Driver) Heads(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT conversation_key, hash FROM heads`)
	if err != nil {
		return nil, fmt.Errorf("listing heads: %w", err)
	}
	defer rows.Close()

	heads := make(map[string]string)
	for rows.Next() {
		var key, hash string
		if err := rows.Scan(&key, &hash); err != nil {
			return nil, fmt.Errorf("scanning head: %w", err)
		}
		heads[key] = hash
	}
	return heads, rows.Err()
}

func (d *Driver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (*merkle.Node, error) {
	var (
		node   merkle.Node
		parent sql.NullString
		role   string
	)
	if err := s.Scan(&node.Hash, &parent, &node.Bucket.Type, &role, &node.Bucket.Content); err != nil {
		return nil, err
	}
	node.Bucket.Role = llm.Role(role)
	if parent.Valid {
		p := parent.String
		node.ParentHash = &p
	}
	return &node, nil
}

func scanNodes(rows *sql.Rows) ([]*merkle.Node, error) {
	nodes := []*merkle.Node{}
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}
