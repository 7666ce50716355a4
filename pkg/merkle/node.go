// Package merkle stores transcripts as chains of content-addressed nodes.
// Identical prefixes, such as a shared system prompt, hash to the same nodes
// and are stored once.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/citebot/pkg/llm"
)

// BucketTypeTurn marks a node holding a single conversation turn.
const BucketTypeTurn = "turn"

// Bucket is the hashable content of a node.
type Bucket struct {
	Type    string   `json:"type"`
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous turn's node.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Bucket is the hashable content for the node
	Bucket Bucket `json:"bucket"`
}

// NewNode creates a new node with the computed hash for the provided bucket
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		parentHash := parent.Hash
		n.ParentHash = &parentHash
	}

	n.Hash = n.computeHash()
	return n
}

// NewTurnNode is a shorthand for a turn bucket.
func NewTurnNode(role llm.Role, content string, parent *Node) *Node {
	return NewNode(Bucket{Type: BucketTypeTurn, Role: role, Content: content}, parent)
}

type input struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

// computeHash calculates the content-addressed hash for a node
func (n *Node) computeHash() string {
	i := &input{
		Bucket: n.Bucket,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Struct field order keeps the encoding canonical
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether the stored hash matches the node's content.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}
