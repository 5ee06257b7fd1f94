package gcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
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

// FirestoreTracker keeps one ProcessingRecord per source document.
type FirestoreTracker struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewFirestoreTracker writes records into collection using client.
func NewFirestoreTracker(client *firestore.Client, collection string) *FirestoreTracker {
	return &FirestoreTracker{client: client, collection: collection, now: time.Now}
}

// Record overwrites the status document of rec.SourceKey.
func (t *FirestoreTracker) Record(ctx context.Context, rec models.ProcessingRecord) error {
	rec.UpdatedAt = t.now()
	docRef := t.client.Collection(t.collection).Doc(RecordID(rec.SourceKey))
	if _, err := docRef.Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to record status %s for %s: %w", rec.Status, rec.SourceKey, err)
	}
	return nil
}

// Close releases the underlying client.
func (t *FirestoreTracker) Close() error {
	return t.client.Close()
}

// RecordID maps a source key to a document id. Object keys contain slashes,
// which Firestore reads as path separators, so the key is hashed.
func RecordID(sourceKey string) string {
	sum := sha256.Sum256([]byte(sourceKey))
	return hex.EncodeToString(sum[:])
}
