package provisioning

import "context"

// Backend is the orchestration backend holding named stacks.
// Stack IDs are opaque and come from ListStacks.
type Backend interface {
	ListStacks(ctx context.Context) ([]StackSummary, error)
	CreateStack(ctx context.Context, name, templateBody string) error
	GetStackStatus(ctx context.Context, id string) (string, error)
	GetStackOutputs(ctx context.Context, id string) ([]Output, error)
	DeleteStack(ctx context.Context, id string) error
}

// DNSUpdater applies a batch of A records.
type DNSUpdater interface {
	Apply(ctx context.Context, op DNSOperation, records []DNSRecord) error
}

// Prober performs a single reachability probe against a host.
type Prober interface {
	Reachable(ctx context.Context, host string) bool
}

// KeyExchanger distributes a shared SSH identity across the hosts of a stack.
type KeyExchanger interface {
	Exchange(ctx context.Context, hosts []string) error
}

// ConfigRunner runs a remote-configuration playbook and returns its exit code.
// A non-nil error means the runner could not be started at all.
type ConfigRunner interface {
	Run(ctx context.Context, playbook, inventoryPath string, extraVars map[string]any) (int, error)
}
