package registry

import (
	"context"
	"fmt"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/platform/s3"
	"github.com/imamik/ocpool/internal/pool"
)

// Store is a pool.Store holding resources that must be released.
type Store interface {
	pool.Store
	Close() error
}

// Entry is one registered cluster.
type Entry struct {
	Name string `yaml:"name" json:"name"`
}

// Document is the persisted registry.
type Document struct {
	Clusters []Entry `yaml:"clusters" json:"clusters"`
}

// NewDocument builds a document from names, preserving their order.
func NewDocument(names []string) Document {
	doc := Document{Clusters: make([]Entry, 0, len(names))}
	for _, n := range names {
		doc.Clusters = append(doc.Clusters, Entry{Name: n})
	}
	return doc
}

// Names returns the registered names in order, skipping empty entries.
func (d Document) Names() []string {
	names := make([]string, 0, len(d.Clusters))
	for _, e := range d.Clusters {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

// Open returns the store configured by cfg.
func Open(ctx context.Context, cfg config.RegistryConfig) (Store, error) {
	switch cfg.Backend {
	case config.RegistryBackendFile, "":
		return NewFileStore(cfg.Path), nil
	case config.RegistryBackendSQLite:
		return NewSQLiteStore(ctx, cfg.Path)
	case config.RegistryBackendS3:
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.Endpoint != "",
		})
		if err != nil {
			return nil, err
		}
		key := cfg.S3.Key
		if key == "" {
			key = config.DefaultRegistryKey
		}
		return NewS3Store(client, cfg.S3.Bucket, key), nil
	}
	return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
}
