// Package state persists conversation transcripts keyed by conversation identity.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/pkg/conversation"
	"github.com/papercomputeco/citebot/pkg/merkle"
	"github.com/papercomputeco/citebot/pkg/storage"
)

// Store loads and saves transcripts. Each key is owned by one turn at a time;
// implementations do not lock across Get and Set.
type Store interface {
	// Get returns the transcript saved under key, or def when nothing was saved yet.
	Get(ctx context.Context, key string, def *conversation.Data) (*conversation.Data, error)

	// Set replaces the transcript saved under key.
	Set(ctx context.Context, key string, data *conversation.Data) error

	// Keys lists every saved conversation key in lexical order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the underlying storage.
	Close() error
}

// DAGStore keeps transcripts as Merkle node chains in a storage.Driver,
// with one head pointer per conversation key.
type DAGStore struct {
	driver storage.Driver
	logger *zap.Logger
}

// NewDAGStore wraps driver.
func NewDAGStore(driver storage.Driver, logger *zap.Logger) *DAGStore {
	return &DAGStore{driver: driver, logger: logger}
}

func (s *DAGStore) Get(ctx context.Context, key string, def *conversation.Data) (*conversation.Data, error) {
	head, err := s.driver.Head(ctx, key)
	if err != nil {
		var noHead storage.ErrNoHead
		if errors.As(err, &noHead) {
			s.logger.Debug("no saved transcript, using default", zap.String("conversation", key))
			return def.Clone(), nil
		}
		return nil, fmt.Errorf("loading head for %s: %w", key, err)
	}

	ancestry, err := s.driver.Ancestry(ctx, head)
	if err != nil {
		return nil, fmt.Errorf("loading transcript for %s: %w", key, err)
	}

	// Ancestry is newest first
	data := &conversation.Data{Turns: make([]conversation.Turn, len(ancestry))}
	for i, node := range ancestry {
		if !node.Verify() {
			return nil, fmt.Errorf("transcript for %s has corrupt node %s", key, node.Hash)
		}
		data.Turns[len(ancestry)-1-i] = conversation.Turn{
			Role:    node.Bucket.Role,
			Content: node.Bucket.Content,
		}
	}

	s.logger.Debug("loaded transcript",
		zap.String("conversation", key),
		zap.String("head_hash", truncate(head, 16)),
		zap.Int("turns", data.Len()),
	)

	return data, nil
}

func (s *DAGStore) Set(ctx context.Context, key string, data *conversation.Data) error {
	if data == nil || data.Len() == 0 {
		return errors.New("cannot save an empty transcript")
	}

	var (
		parent  *merkle.Node
		created int
	)
	for _, turn := range data.Turns {
		node := merkle.NewTurnNode(turn.Role, turn.Content, parent)

		isNew, err := s.driver.Put(ctx, node)
		if err != nil {
			return fmt.Errorf("storing turn node: %w", err)
		}
		if isNew {
			created++
		}
		parent = node
	}

	if err := s.driver.SetHead(ctx, key, parent.Hash); err != nil {
		return fmt.Errorf("moving head for %s: %w", key, err)
	}

	s.logger.Debug("saved transcript",
		zap.String("conversation", key),
		zap.String("head_hash", truncate(parent.Hash, 16)),
		zap.Int("turns", data.Len()),
		zap.Int("new_nodes", created),
	)

	return nil
}

func (s *DAGStore) Keys(ctx context.Context) ([]string, error) {
	heads, err := s.driver.Heads(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(heads))
	for k := range heads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *DAGStore) Close() error {
	return s.driver.Close()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
