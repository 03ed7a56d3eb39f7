package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/platform/s3"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *memObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", s3.ErrObjectNotFound, key)
	}
	return data, nil
}

func (m *memObjects) PutObject(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func TestStores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{
			name: "file",
			open: func(t *testing.T) Store {
				return NewFileStore(filepath.Join(t.TempDir(), "nested", "pool.yaml"))
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "pool.db"))
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "sqlite in memory",
			open: func(t *testing.T) Store {
				s, err := NewSQLiteStore(context.Background(), ":memory:")
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "s3",
			open: func(t *testing.T) Store {
				return NewS3Store(&memObjects{}, "pool", config.DefaultRegistryKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := tt.open(t)
			t.Cleanup(func() { _ = store.Close() })

			names, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, store.Save(ctx, []string{"zeta", "alpha", "mid"}))
			names, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)

			require.NoError(t, store.Save(ctx, []string{"alpha"}))
			names, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha"}, names)

			require.NoError(t, store.Save(ctx, nil))
			names, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestFileStore_Format(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	store := NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), []string{"demo", "lab"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.YAMLEq(t, "clusters:\n  - name: demo\n  - name: lab\n", string(data))
}

func TestFileStore_InvalidDocument(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clusters: {not: [a list"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.ErrorContains(t, err, "failed to parse registry")
}

func TestS3Store_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	objects := &memObjects{objects: map[string][]byte{"pool/key": []byte("not json")}}
	_, err := NewS3Store(objects, "pool", "key").Load(ctx)
	assert.ErrorContains(t, err, "failed to parse registry")

	objects.err = errors.New("AccessDenied")
	_, err = NewS3Store(objects, "pool", "key").Load(ctx)
	assert.ErrorContains(t, err, "AccessDenied")
	assert.ErrorContains(t, NewS3Store(objects, "pool", "key").Save(ctx, []string{"a"}), "AccessDenied")
}

func TestDocument_Names(t *testing.T) {
	t.Parallel()
	doc := Document{Clusters: []Entry{{Name: "a"}, {}, {Name: "b"}}}
	assert.Equal(t, []string{"a", "b"}, doc.Names())
	assert.Equal(t, doc.Names(), NewDocument([]string{"a", "b"}).Names())
}

func TestOpen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.RegistryConfig
		want    any
		wantErr bool
	}{
		{
			name: "file",
			cfg:  config.RegistryConfig{Backend: config.RegistryBackendFile, Path: filepath.Join(dir, "pool.yaml")},
			want: &FileStore{},
		},
		{
			name: "sqlite",
			cfg:  config.RegistryConfig{Backend: config.RegistryBackendSQLite, Path: filepath.Join(dir, "pool.db")},
			want: &SQLiteStore{},
		},
		{
			name: "s3",
			cfg: config.RegistryConfig{Backend: config.RegistryBackendS3, S3: config.S3Config{
				Endpoint: "http://127.0.0.1:9000", Region: "us-east-1", Bucket: "pool",
			}},
			want: &S3Store{},
		},
		{
			name:    "unknown",
			cfg:     config.RegistryConfig{Backend: "etcd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, err := Open(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			assert.IsType(t, tt.want, store)
		})
	}
}
