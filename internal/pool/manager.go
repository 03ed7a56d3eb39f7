package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/ocpool/internal/metrics"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/cluster"
)

const phasePool = "pool"

// Store persists the registry of cluster names.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, names []string) error
}

// Clusters creates, loads and deletes clusters. It is implemented by
// *cluster.Orchestrator.
type Clusters interface {
	Create(ctx context.Context, name string, types []provisioning.NodeType, version string) (*cluster.Cluster, error)
	Get(ctx context.Context, name string) (*cluster.Cluster, error)
	Delete(ctx context.Context, cl *cluster.Cluster) error
}

// Manager is the process-wide registry of clusters.
type Manager struct {
	clusters    Clusters
	store       Store
	observer    provisioning.Observer
	metrics     *metrics.Recorder
	skipMissing bool

	// ops serializes reload, create and delete.
	ops sync.Mutex

	mu   sync.RWMutex
	list []*cluster.Cluster
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver sets the observer receiving pool events.
func WithObserver(o provisioning.Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithSkipMissing makes Reload drop registry entries whose stack no longer
// exists instead of failing.
func WithSkipMissing(skip bool) Option {
	return func(m *Manager) {
		m.skipMissing = skip
	}
}

// NewManager creates an empty manager. Call Reload to populate it.
func NewManager(clusters Clusters, store Store, opts ...Option) *Manager {
	m := &Manager{
		clusters: clusters,
		store:    store,
		observer: provisioning.NopObserver(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reload replaces the in-memory list with the clusters named in the store.
// A name without a live stack fails the reload with ErrStackNotFound unless
// skip-missing is set. The list is left untouched on failure.
func (m *Manager) Reload(ctx context.Context) (err error) {
	m.ops.Lock()
	defer m.ops.Unlock()

	start := time.Now()
	defer func() { m.metrics.ObserveOperation("pool_reload", start, err) }()

	names, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	loaded := make([]*cluster.Cluster, 0, len(names))
	for _, name := range names {
		cl, err := m.clusters.Get(ctx, name)
		if errors.Is(err, provisioning.ErrStackNotFound) && m.skipMissing {
			provisioning.LogWarning(m.observer, phasePool, fmt.Sprintf("skipping cluster %s", name), err)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to reload cluster %s: %w", name, err)
		}
		loaded = append(loaded, cl)
	}

	m.mu.Lock()
	m.list = loaded
	m.mu.Unlock()
	m.metrics.SetPoolClusters(len(loaded))
	return nil
}

// CreateCluster creates and deploys a cluster, tracks it and persists the
// registry. Clusters whose creation fails are not tracked.
func (m *Manager) CreateCluster(ctx context.Context, name, version string, types []provisioning.NodeType) (*cluster.Cluster, error) {
	m.ops.Lock()
	defer m.ops.Unlock()

	if _, ok := m.Get(name); ok {
		return nil, provisioning.NewStackError(name, "create", provisioning.ErrStackAlreadyExists)
	}

	cl, err := m.clusters.Create(ctx, name, types, version)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.list = append(m.list, cl)
	m.mu.Unlock()

	if err := m.save(ctx); err != nil {
		return cl, err
	}
	provisioning.LogResourceCreated(m.observer, phasePool, "cluster", name)
	return cl, nil
}

// DeleteCluster stops tracking cl, deletes it and persists the registry. The
// registry is saved even when the deletion fails.
func (m *Manager) DeleteCluster(ctx context.Context, cl *cluster.Cluster) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	m.mu.Lock()
	kept := m.list[:0:0]
	for _, c := range m.list {
		if c.Name() != cl.Name() {
			kept = append(kept, c)
		}
	}
	m.list = kept
	m.mu.Unlock()

	deleteErr := m.clusters.Delete(ctx, cl)
	saveErr := m.save(ctx)
	if deleteErr == nil && saveErr == nil {
		provisioning.LogResourceDeleted(m.observer, phasePool, "cluster", cl.Name())
	}
	return errors.Join(deleteErr, saveErr)
}

// DeleteUntracked deletes a cluster the manager does not track, as when the
// pool could not be reloaded, and drops its name from the stored registry.
// The registry is read before the deletion and a failure to read it aborts
// the call. Like DeleteCluster, the registry is saved even when the deletion
// fails.
func (m *Manager) DeleteUntracked(ctx context.Context, cl *cluster.Cluster) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	names, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n != cl.Name() {
			kept = append(kept, n)
		}
	}

	deleteErr := m.clusters.Delete(ctx, cl)
	if len(kept) == len(names) {
		return deleteErr
	}
	var saveErr error
	if err := m.store.Save(ctx, kept); err != nil {
		saveErr = fmt.Errorf("failed to save registry: %w", err)
	}
	if deleteErr == nil && saveErr == nil {
		provisioning.LogResourceDeleted(m.observer, phasePool, "cluster", cl.Name())
	}
	return errors.Join(deleteErr, saveErr)
}

// Clusters returns the tracked clusters in registry order.
func (m *Manager) Clusters() []*cluster.Cluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*cluster.Cluster(nil), m.list...)
}

// Names returns the tracked cluster names in registry order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.list))
	for i, c := range m.list {
		names[i] = c.Name()
	}
	return names
}

// Get returns the tracked cluster called name.
func (m *Manager) Get(name string) (*cluster.Cluster, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.list {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func (m *Manager) save(ctx context.Context) error {
	names := m.Names()
	m.metrics.SetPoolClusters(len(names))
	if err := m.store.Save(ctx, names); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}
