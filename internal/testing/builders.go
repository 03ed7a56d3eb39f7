package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
)

// ConfigBuilder builds valid configurations for tests.
type ConfigBuilder struct {
	cfg *config.Config
}

// NewConfigBuilder starts from a configuration that passes validation once
// the workspace, key file and playbook paths exist.
func NewConfigBuilder(workspace string) *ConfigBuilder {
	return &ConfigBuilder{cfg: &config.Config{
		Workspace: workspace,
		Subscription: config.SubscriptionConfig{
			Username:   "rhn-user",
			Password:   "secret",
			Pool:       "8a85f98",
			AuthServer: "https://auth.example.com",
		},
		Backend: config.BackendConfig{HCloud: config.HCloudConfig{
			Token:    "test-token",
			Location: "fsn1",
			Image:    "rhel-7",
			ServerTypes: map[string]string{
				"master":  "cx41",
				"infra":   "cx31",
				"compute": "cx31",
			},
			RateLimit: config.DefaultRateLimit,
			RateBurst: config.DefaultRateBurst,
		}},
		DNS: config.DNSConfig{
			Zone:     "example.com",
			Provider: config.DNSProviderNSUpdate,
			TTL:      config.DefaultDNSTTL,
			NSUpdate: config.NSUpdateConfig{Server: "ns1.example.com", Binary: "nsupdate"},
		},
		SSH: config.SSHConfig{
			User:           config.DefaultSSHUser,
			PrivateKeyFile: filepath.Join(workspace, "id_rsa"),
			Port:           config.DefaultSSHPort,
		},
		Probe: config.ProbeConfig{Method: config.ProbeMethodPing},
		Ansible: config.AnsibleConfig{
			Binary:       config.DefaultAnsibleBinary,
			PlaybooksDir: filepath.Join(workspace, "playbooks"),
			ConfigDir:    filepath.Join(workspace, "ocp-config"),
			RemoteUser:   config.DefaultSSHUser,
			Forks:        config.DefaultForks,
		},
		Deploy: config.DeployConfig{
			SupportedVersions: append([]string(nil), config.DefaultSupportedVersions...),
			NodePrefix:        "ocp",
		},
		Registry: config.RegistryConfig{
			Backend: config.RegistryBackendFile,
			Path:    filepath.Join(workspace, config.DefaultRegistryFile),
		},
	}}
}

// WithZone sets the DNS zone.
func (b *ConfigBuilder) WithZone(zone string) *ConfigBuilder {
	b.cfg.DNS.Zone = zone
	return b
}

// WithRegistry sets the registry backend and path.
func (b *ConfigBuilder) WithRegistry(backend, path string) *ConfigBuilder {
	b.cfg.Registry.Backend = backend
	b.cfg.Registry.Path = path
	return b
}

// WithSkipMissing sets registry.skip_missing.
func (b *ConfigBuilder) WithSkipMissing(skip bool) *ConfigBuilder {
	b.cfg.Registry.SkipMissing = skip
	return b
}

// WithSupportedVersions replaces the supported platform versions.
func (b *ConfigBuilder) WithSupportedVersions(versions ...string) *ConfigBuilder {
	b.cfg.Deploy.SupportedVersions = versions
	return b
}

// Build returns the configuration.
func (b *ConfigBuilder) Build() *config.Config {
	return b.cfg
}

// Materialize creates the key file and playbooks directory the configuration
// references so that it passes validation.
func (b *ConfigBuilder) Materialize(t testing.TB) *config.Config {
	t.Helper()
	require.NoError(t, os.MkdirAll(b.cfg.Ansible.PlaybooksDir, 0o755))
	require.NoError(t, os.WriteFile(b.cfg.SSH.PrivateKeyFile, []byte("fake key"), 0o600))
	return b.cfg
}

// DemoTopology returns the 1 master, 1 infra, 2 compute topology used
// across the test suites.
func DemoTopology() []provisioning.NodeType {
	return []provisioning.NodeType{
		provisioning.NodeTypeMaster,
		provisioning.NodeTypeInfra,
		provisioning.NodeTypeCompute,
		provisioning.NodeTypeCompute,
	}
}
