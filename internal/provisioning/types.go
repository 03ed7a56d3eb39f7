package provisioning

import (
	"fmt"
	"regexp"
	"strings"
)

// NodeType is the role of a host in a cluster.
type NodeType string

const (
	NodeTypeMaster  NodeType = "master"
	NodeTypeInfra   NodeType = "infra"
	NodeTypeCompute NodeType = "compute"
)

// AllNodeTypes returns every node type in canonical order.
func AllNodeTypes() []NodeType {
	return []NodeType{NodeTypeMaster, NodeTypeInfra, NodeTypeCompute}
}

// String implements fmt.Stringer.
func (t NodeType) String() string {
	return string(t)
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeMaster, NodeTypeInfra, NodeTypeCompute:
		return true
	}
	return false
}

// ParseNodeType parses a node type case-insensitively.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (expected master, infra or compute)", ErrInvalidNodeType, s)
	}
	return t, nil
}

// ParseNodeTypes parses a comma-separated node type list such as "master,infra,compute".
func ParseNodeTypes(csv string) ([]NodeType, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, fmt.Errorf("%w: empty node type list", ErrInvalidNodeType)
	}
	parts := strings.Split(csv, ",")
	types := make([]NodeType, 0, len(parts))
	for _, p := range parts {
		t, err := ParseNodeType(p)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// CountNodeTypes returns how many times each node type occurs.
func CountNodeTypes(types []NodeType) map[NodeType]int {
	counts := make(map[NodeType]int, 3)
	for _, t := range types {
		counts[t]++
	}
	return counts
}

// CheckTopology requires at least one MASTER and at least one non-MASTER node.
func CheckTopology(types []NodeType) error {
	counts := CountNodeTypes(types)
	if counts[NodeTypeMaster] == 0 {
		return fmt.Errorf("%w: at least one master node is required", ErrInvalidTopology)
	}
	if counts[NodeTypeInfra]+counts[NodeTypeCompute] == 0 {
		return fmt.Errorf("%w: at least one infra or compute node is required", ErrInvalidTopology)
	}
	for _, t := range types {
		if !t.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidNodeType, t)
		}
	}
	return nil
}

// InstanceSpec is one requested instance of a stack.
type InstanceSpec struct {
	Name string
	Type NodeType
}

// StackSpec is an immutable stack creation request.
type StackSpec struct {
	Name      string
	Instances []InstanceSpec
}

// stackNamePattern is a DNS label of at most 32 characters. The name is also
// a directory under the workspace, a label value and a server name prefix.
var stackNamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// ValidateStackName checks that name can be used as a stack name.
func ValidateStackName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: stack name is required", ErrInvalidTopology)
	}
	if !stackNamePattern.MatchString(name) {
		return fmt.Errorf("%w: stack name %q must be 1-32 lowercase letters, digits or hyphens, starting and ending with a letter or digit", ErrInvalidTopology, name)
	}
	return nil
}

// NewStackSpec pairs instance names with node types and validates the result.
func NewStackSpec(name string, names []string, types []NodeType) (StackSpec, error) {
	if err := ValidateStackName(name); err != nil {
		return StackSpec{}, err
	}
	if len(names) != len(types) {
		return StackSpec{}, fmt.Errorf("%w: %d instance names for %d node types", ErrInvalidTopology, len(names), len(types))
	}

	seen := make(map[string]bool, len(names))
	hasMaster := false
	instances := make([]InstanceSpec, len(names))
	for i := range names {
		if names[i] == "" || seen[names[i]] {
			return StackSpec{}, fmt.Errorf("%w: instance name %q is empty or duplicated", ErrInvalidTopology, names[i])
		}
		if !types[i].Valid() {
			return StackSpec{}, fmt.Errorf("%w: %q", ErrInvalidNodeType, types[i])
		}
		seen[names[i]] = true
		hasMaster = hasMaster || types[i] == NodeTypeMaster
		instances[i] = InstanceSpec{Name: names[i], Type: types[i]}
	}
	if !hasMaster {
		return StackSpec{}, fmt.Errorf("%w: at least one master node is required", ErrInvalidTopology)
	}

	return StackSpec{Name: name, Instances: instances}, nil
}

// StackStatus is the backend-reported state of a stack.
type StackStatus string

const (
	StatusUnknown          StackStatus = "UNKNOWN"
	StatusCreateInProgress StackStatus = "CREATE_IN_PROGRESS"
	StatusCreateComplete   StackStatus = "CREATE_COMPLETE"
	StatusCreateFailed     StackStatus = "CREATE_FAILED"
	StatusDeleteInProgress StackStatus = "DELETE_IN_PROGRESS"
	StatusDeleteComplete   StackStatus = "DELETE_COMPLETE"
)

// ParseStackStatus maps a backend status string case-insensitively.
// Unrecognized values yield StatusUnknown.
func ParseStackStatus(s string) StackStatus {
	status := StackStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusCreateInProgress, StatusCreateComplete, StatusCreateFailed,
		StatusDeleteInProgress, StatusDeleteComplete:
		return status
	}
	return StatusUnknown
}

// IsDeleted reports whether the stack is being or has been deleted.
func (s StackStatus) IsDeleted() bool {
	return s == StatusDeleteInProgress || s == StatusDeleteComplete
}

// Inspectable reports whether outputs may be read in this state.
func (s StackStatus) Inspectable() bool {
	return s == StatusCreateComplete || s == StatusCreateFailed
}

// Output is one key/value pair exposed by a backend stack.
type Output struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StackSummary is one entry of a backend stack listing.
type StackSummary struct {
	ID     string
	Name   string
	Status string
}

// DNSOperation selects whether a record batch is added or removed.
type DNSOperation string

const (
	DNSRegister   DNSOperation = "register"
	DNSUnregister DNSOperation = "unregister"
)

// DNSRecord is a single A record.
type DNSRecord struct {
	Hostname string
	IP       string
}
