package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imamik/ocpool/internal/platform/s3"
)

// ObjectClient reads and writes objects. It is implemented by *s3.Client.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// S3Store keeps the registry as a JSON document in a bucket.
type S3Store struct {
	client ObjectClient
	bucket string
	key    string
}

// NewS3Store returns a store writing s3://bucket/key.
func NewS3Store(client ObjectClient, bucket, key string) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key}
}

// Load reads the registered names. A missing object is an empty registry.
func (s *S3Store) Load(ctx context.Context) ([]string, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.key)
	if errors.Is(err, s3.ErrObjectNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return doc.Names(), nil
}

// Save overwrites the object.
func (s *S3Store) Save(ctx context.Context, names []string) error {
	data, err := json.MarshalIndent(NewDocument(names), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	return s.client.PutObject(ctx, s.bucket, s.key, data)
}

// Close is a no-op.
func (s *S3Store) Close() error {
	return nil
}
