package labels

// Label keys set on every server of a stack.
const (
	// KeyStack identifies the stack a server belongs to
	KeyStack = "ocpool.io/stack"

	// KeyInstance is the instance name inside the stack (e.g. ocp-master-0)
	KeyInstance = "ocpool.io/instance"

	// KeyInstanceType is the node type of the instance
	KeyInstanceType = "ocpool.io/instance-type"

	// KeyDeployment is the deployment subdomain of the stack
	KeyDeployment = "ocpool.io/deployment"

	// KeyZone is the DNS zone the stack's hosts live in
	KeyZone = "ocpool.io/zone"

	// KeyExpected is the number of servers the stack was created with
	KeyExpected = "ocpool.io/expected"

	// KeyState marks stack-wide lifecycle transitions
	KeyState = "ocpool.io/state"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "ocpool.io/managed-by"
)

// State values.
const (
	StateFailed   = "failed"
	StateDeleting = "deleting"
)

// ManagedByOCPool is the KeyManagedBy value of servers created by this tool.
const ManagedByOCPool = "ocpool"

// LabelBuilder provides a fluent interface for constructing server labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a label builder with the stack name pre-set.
func NewLabelBuilder(stack string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyStack:     stack,
			KeyManagedBy: ManagedByOCPool,
		},
	}
}

// WithInstance adds the instance name and node type.
func (lb *LabelBuilder) WithInstance(name, nodeType string) *LabelBuilder {
	lb.labels[KeyInstance] = name
	lb.labels[KeyInstanceType] = nodeType
	return lb
}

// WithDomain adds the deployment subdomain and DNS zone.
func (lb *LabelBuilder) WithDomain(deployment, zone string) *LabelBuilder {
	if deployment != "" {
		lb.labels[KeyDeployment] = deployment
	}
	if zone != "" {
		lb.labels[KeyZone] = zone
	}
	return lb
}

// WithValue sets an arbitrary label.
func (lb *LabelBuilder) WithValue(key, value string) *LabelBuilder {
	lb.labels[key] = value
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForStack returns a label selector matching every server of a stack.
func SelectorForStack(stack string) string {
	return KeyStack + "=" + stack
}

// SelectorAllStacks returns a label selector matching every stack server.
func SelectorAllStacks() string {
	return KeyStack
}
