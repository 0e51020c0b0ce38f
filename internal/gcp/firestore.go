package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/pdftranscriber/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RunLedger appends one Firestore document per processed object.
type RunLedger struct {
	client     *firestore.Client
	collection string
}

func NewRunLedger(ctx context.Context, projectID, collection string) (*RunLedger, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection must be provided to create a run ledger")
	}
	client, err := NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &RunLedger{client: client, collection: collection}, nil
}

// Record stores a transcription record under an auto-generated document ID.
func (l *RunLedger) Record(ctx context.Context, rec models.TranscriptionRecord) error {
	if _, _, err := l.client.Collection(l.collection).Add(ctx, rec); err != nil {
		return fmt.Errorf("failed to record %s: %w", rec.SourceURI, err)
	}
	return nil
}
