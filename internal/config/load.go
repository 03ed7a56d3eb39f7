package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ResolvePath returns the config file to load: the explicit flag value,
// then $OCPOOL_CONFIG, then ocpool.yaml inside $WORKSPACE.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	if ws := os.Getenv(EnvWorkspace); ws != "" {
		return filepath.Join(ws, DefaultConfigFile)
	}
	return DefaultConfigFile
}

// Load reads, completes and validates the configuration at path.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation reads and completes the configuration at path
// without validating it. Used by commands that only inspect local state.
func LoadWithoutValidation(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvWorkspace, &c.Workspace},
		{EnvHCloudToken, &c.Backend.HCloud.Token},
		{EnvCloudflareToken, &c.DNS.Cloudflare.APIToken},
		{EnvSubscriptionPassword, &c.Subscription.Password},
		{EnvAWSAccessKey, &c.Registry.S3.AccessKey},
		{EnvAWSSecretKey, &c.Registry.S3.SecretKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DNS.Provider == "" {
		c.DNS.Provider = DefaultDNSProvider
	}
	if c.DNS.TTL == 0 {
		c.DNS.TTL = DefaultDNSTTL
	}
	if c.DNS.NSUpdate.Binary == "" {
		c.DNS.NSUpdate.Binary = DefaultNSUpdateBinary
	}
	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.Probe.Method == "" {
		c.Probe.Method = DefaultProbeMethod
	}
	if c.Probe.Port == 0 {
		c.Probe.Port = c.SSH.Port
	}
	if c.Ansible.Binary == "" {
		c.Ansible.Binary = DefaultAnsibleBinary
	}
	if c.Ansible.RemoteUser == "" {
		c.Ansible.RemoteUser = c.SSH.User
	}
	if c.Ansible.Forks == 0 {
		c.Ansible.Forks = DefaultForks
	}
	if len(c.Deploy.SupportedVersions) == 0 {
		c.Deploy.SupportedVersions = append([]string(nil), DefaultSupportedVersions...)
	}
	if c.Backend.HCloud.RateLimit == 0 {
		c.Backend.HCloud.RateLimit = DefaultRateLimit
	}
	if c.Backend.HCloud.RateBurst == 0 {
		c.Backend.HCloud.RateBurst = DefaultRateBurst
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = DefaultRegistryBackend
	}
	if c.Registry.Path == "" {
		switch c.Registry.Backend {
		case RegistryBackendSQLite:
			c.Registry.Path = DefaultRegistryDatabase
		default:
			c.Registry.Path = DefaultRegistryFile
		}
	}
	if c.Registry.Path != "" && !filepath.IsAbs(c.Registry.Path) && c.Workspace != "" {
		c.Registry.Path = filepath.Join(c.Workspace, c.Registry.Path)
	}
	if c.Registry.S3.Key == "" {
		c.Registry.S3.Key = DefaultRegistryKey
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.ReloadSchedule == "" {
		c.Server.ReloadSchedule = DefaultReloadSchedule
	}
}
