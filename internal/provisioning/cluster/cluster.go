package cluster

import (
	"sort"
	"time"

	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/stack"
)

// MetadataFile is the per-cluster metadata record in the management environment.
const MetadataFile = ".metadata"

// Phase is the lifecycle state of a cluster.
type Phase string

const (
	PhaseProvisioning   Phase = "provisioning"
	PhasePreInstall     Phase = "pre_install"
	PhaseInstall        Phase = "install"
	PhaseReady          Phase = "ready"
	PhaseFailed         Phase = "failed"
	PhaseDeprovisioning Phase = "deprovisioning"
)

// Metadata is persisted to MetadataFile.
type Metadata struct {
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
	Owner     *string   `yaml:"owner"`
	Phase     Phase     `yaml:"phase,omitempty"`
	Version   string    `yaml:"version,omitempty"`
}

// Node is one classified host of a cluster.
type Node struct {
	Type     provisioning.NodeType
	Instance *stack.Instance
}

// Cluster is a stack with its hosts classified by node type.
type Cluster struct {
	stack    *stack.Stack
	hosts    *stack.HostsData
	nodes    []*Node
	metadata *Metadata
}

// Name returns the cluster name, which is also its stack name.
func (c *Cluster) Name() string {
	return c.stack.Name()
}

// Stack returns the underlying stack handle.
func (c *Cluster) Stack() *stack.Stack {
	return c.stack
}

// Nodes returns every node ordered by short name.
func (c *Cluster) Nodes() []*Node {
	return append([]*Node(nil), c.nodes...)
}

// NodesOfType returns the nodes of type t ordered by short name.
func (c *Cluster) NodesOfType(t provisioning.NodeType) []*Node {
	var out []*Node
	for _, n := range c.nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// TypeCounts returns the number of nodes per type.
func (c *Cluster) TypeCounts() map[provisioning.NodeType]int {
	counts := make(map[provisioning.NodeType]int)
	for _, n := range c.nodes {
		counts[n.Type]++
	}
	return counts
}

// Deployer returns the master that drives the install phase, or nil.
func (c *Cluster) Deployer() *Node {
	masters := c.NodesOfType(provisioning.NodeTypeMaster)
	if len(masters) == 0 {
		return nil
	}
	return masters[0]
}

// Metadata returns the last known metadata record. It is nil for clusters
// whose record was never written.
func (c *Cluster) Metadata() *Metadata {
	return c.metadata
}

// ServersDomain returns the domain the cluster hosts are registered under.
func (c *Cluster) ServersDomain() string {
	return c.hosts.ServersDomain
}

// classify builds the nodes of st from its instance_type outputs.
func classify(st *stack.Stack, hosts *stack.HostsData, instances []*stack.Instance) (*Cluster, error) {
	nodes := make([]*Node, 0, len(instances))
	for _, inst := range instances {
		t, err := hosts.NodeTypeOf(inst.FQDN)
		if err != nil {
			return nil, provisioning.NewStackError(st.Name(), "classify", err)
		}
		nodes = append(nodes, &Node{Type: t, Instance: inst})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Instance.ShortName() < nodes[j].Instance.ShortName()
	})
	return &Cluster{stack: st, hosts: hosts, nodes: nodes}, nil
}
