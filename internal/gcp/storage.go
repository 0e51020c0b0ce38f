package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GCSUri renders the gs:// reference for an object.
func GCSUri(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// BucketStore lists and writes objects through a single authenticated storage client.
type BucketStore struct {
	client *storage.Client
}

// NewBucketStore builds a storage client from a service account key fetched at runtime.
// The key is validated before it is handed to the client library.
func NewBucketStore(ctx context.Context, credentialsJSON []byte) (*BucketStore, error) {
	key, err := ParseServiceAccountKey(credentialsJSON)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	slog.Info("Storage client authenticated.", "clientEmail", key.ClientEmail)

	return &BucketStore{client: client}, nil
}

// Objects returns a one-shot sequence over every object name in the bucket.
// Listing stops at the first iterator error, which is yielded once.
func (s *BucketStore) Objects(ctx context.Context, bucket string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		it := s.client.Bucket(bucket).Objects(ctx, nil)
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("failed to list objects in gs://%s: %w", bucket, err))
				return
			}
			if !yield(attrs.Name, nil) {
				return
			}
		}
	}
}

// Write creates or overwrites an object. There are no preconditions: the last writer wins.
func (s *BucketStore) Write(ctx context.Context, bucket, objectName, content, contentType string) error {
	return SaveToGCS(ctx, s.client.Bucket(bucket), objectName, content, contentType)
}

// Close releases the underlying storage client.
func (s *BucketStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// SaveToGCS streams content into a GCS object with the given content type.
func SaveToGCS(ctx context.Context, bucket *storage.BucketHandle, objectName, content, contentType string) error {
	writer := bucket.Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		slog.Error("Failed to close GCS writer", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}
