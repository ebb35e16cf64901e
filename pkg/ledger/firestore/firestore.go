// Package firestore is a ledger.Store backed by a Cloud Firestore collection,
// one document per processed id.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// DefaultCollection is used when Open is given an empty collection name.
const DefaultCollection = "processed_items"

// Store keeps processed items in one collection.
type Store struct {
	client     *firestore.Client
	collection string
}

// Open creates a Firestore client for projectID. FIRESTORE_EMULATOR_HOST is
// honoured by the client library.
func Open(ctx context.Context, projectID, collection string) (*Store, error) {
	if projectID == "" {
		return nil, errors.New("projectID is required for Firestore store")
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

type itemDoc struct {
	Kind        string    `firestore:"kind"`
	ProcessedAt time.Time `firestore:"processed_at"`
}

func (s *Store) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Upsert creates the document for item.ID. An existing document is left
// untouched.
func (s *Store) Upsert(ctx context.Context, item types.ProcessedItem) error {
	_, err := s.col().Doc(item.ID).Create(ctx, itemDoc{
		Kind:        string(item.Kind),
		ProcessedAt: item.ProcessedAt.UTC(),
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("firestore Upsert: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]types.ProcessedItem, error) {
	iter := s.col().OrderBy("processed_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []types.ProcessedItem
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore LoadAll: %w", err)
		}
		var doc itemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore LoadAll decode %s: %w", snap.Ref.ID, err)
		}
		out = append(out, types.ProcessedItem{
			ID:          snap.Ref.ID,
			Kind:        types.Kind(doc.Kind),
			ProcessedAt: doc.ProcessedAt.UTC(),
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
