// Package firestore is a state.Store that keeps one Firestore document per conversation.
package firestore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/citebot/pkg/conversation"
	"github.com/papercomputeco/citebot/pkg/llm"
)

// DefaultCollection holds the transcript documents.
const DefaultCollection = "transcripts"

type Store struct {
	client     *firestore.Client
	collection string
}

// NewStore creates a Firestore backed store for projectID.
func NewStore(ctx context.Context, projectID, collection string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, collection: collection}, nil
}

type turnDoc struct {
	Role    string `firestore:"role"`
	Content string `firestore:"content"`
}

type transcriptDoc struct {
	Turns     []turnDoc `firestore:"turns"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Document IDs may not contain "/", conversation keys can.
func (s *Store) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(url.PathEscape(key))
}

func (s *Store) Get(ctx context.Context, key string, def *conversation.Data) (*conversation.Data, error) {
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return def.Clone(), nil
		}
		return nil, fmt.Errorf("getting transcript %s: %w", key, err)
	}

	var d transcriptDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding transcript %s: %w", key, err)
	}

	data := &conversation.Data{Turns: make([]conversation.Turn, len(d.Turns))}
	for i, t := range d.Turns {
		data.Turns[i] = conversation.Turn{Role: llm.Role(t.Role), Content: t.Content}
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, data *conversation.Data) error {
	d := transcriptDoc{
		Turns:     make([]turnDoc, len(data.Turns)),
		UpdatedAt: time.Now().UTC(),
	}
	for i, t := range data.Turns {
		d.Turns[i] = turnDoc{Role: string(t.Role), Content: t.Content}
	}

	if _, err := s.doc(key).Set(ctx, d); err != nil {
		return fmt.Errorf("saving transcript %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(s.collection).DocumentRefs(ctx)

	var keys []string
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing transcripts: %w", err)
		}

		key, err := url.PathUnescape(ref.ID)
		if err != nil {
			key = ref.ID
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
