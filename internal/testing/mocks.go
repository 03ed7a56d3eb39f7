package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/ocpool/internal/provisioning"
)

// MockConfigRunner is a testify mock of provisioning.ConfigRunner.
type MockConfigRunner struct {
	mock.Mock
}

// Run implements provisioning.ConfigRunner.
func (m *MockConfigRunner) Run(ctx context.Context, playbook, inventoryPath string, extraVars map[string]any) (int, error) {
	args := m.Called(ctx, playbook, inventoryPath, extraVars)
	return args.Int(0), args.Error(1)
}

// MockDNSUpdater is a testify mock of provisioning.DNSUpdater.
type MockDNSUpdater struct {
	mock.Mock
}

// Apply implements provisioning.DNSUpdater.
func (m *MockDNSUpdater) Apply(ctx context.Context, op provisioning.DNSOperation, records []provisioning.DNSRecord) error {
	args := m.Called(ctx, op, records)
	return args.Error(0)
}

var (
	_ provisioning.ConfigRunner = (*MockConfigRunner)(nil)
	_ provisioning.DNSUpdater   = (*MockDNSUpdater)(nil)
	_ provisioning.Backend      = (*FakeBackend)(nil)
	_ provisioning.DNSUpdater   = (*FakeDNS)(nil)
	_ provisioning.Prober       = (*FakeProber)(nil)
	_ provisioning.KeyExchanger = (*FakeKeyExchanger)(nil)
	_ provisioning.ConfigRunner = (*FakeRunner)(nil)
)
