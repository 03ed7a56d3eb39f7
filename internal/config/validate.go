package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Validate checks that every required key is present and that enumerated
// settings hold a known value.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return invalid("workspace is required (set it in the config or export %s)", EnvWorkspace)
	}

	if err := c.Subscription.validate(); err != nil {
		return err
	}
	if err := c.Backend.HCloud.validate(); err != nil {
		return err
	}
	if err := c.DNS.validate(); err != nil {
		return err
	}

	if c.SSH.PrivateKeyFile == "" {
		return invalid("ssh.private_key_file is required")
	}
	if c.Ansible.PlaybooksDir == "" {
		return invalid("ansible.playbooks_dir is required")
	}

	switch c.Probe.Method {
	case ProbeMethodPing, ProbeMethodTCP:
	default:
		return invalid("probe.method %q must be one of %s, %s", c.Probe.Method, ProbeMethodPing, ProbeMethodTCP)
	}

	for _, v := range c.Deploy.SupportedVersions {
		if _, err := semver.NewVersion(v); err != nil {
			return invalid("deploy.supported_versions: %q is not a version", v)
		}
	}

	return c.Registry.validate()
}

func (s SubscriptionConfig) validate() error {
	required := map[string]string{
		"subscription.username":    s.Username,
		"subscription.password":    s.Password,
		"subscription.pool":        s.Pool,
		"subscription.auth_server": s.AuthServer,
	}
	return requireAll(required)
}

func (h HCloudConfig) validate() error {
	required := map[string]string{
		"backend.hcloud.token":    h.Token,
		"backend.hcloud.location": h.Location,
		"backend.hcloud.image":    h.Image,
	}
	for _, t := range NodeTypes {
		required["backend.hcloud.server_types."+t] = h.ServerTypes[t]
	}
	if err := requireAll(required); err != nil {
		return err
	}
	if h.RateLimit < 0 || h.RateBurst < 0 {
		return invalid("backend.hcloud.rate_limit and rate_burst must not be negative")
	}
	return nil
}

func (d DNSConfig) validate() error {
	if d.Zone == "" {
		return invalid("dns.zone is required")
	}
	switch d.Provider {
	case DNSProviderNSUpdate:
		if d.NSUpdate.Server == "" {
			return invalid("dns.nsupdate.server is required for the %s provider", DNSProviderNSUpdate)
		}
	case DNSProviderCloudflare:
		if d.Cloudflare.APIToken == "" {
			return invalid("dns.cloudflare.api_token is required for the %s provider (or export %s)", DNSProviderCloudflare, EnvCloudflareToken)
		}
	default:
		return invalid("dns.provider %q must be one of %s, %s", d.Provider, DNSProviderNSUpdate, DNSProviderCloudflare)
	}
	if d.TTL < 0 {
		return invalid("dns.ttl must not be negative")
	}
	return nil
}

func (r RegistryConfig) validate() error {
	switch r.Backend {
	case RegistryBackendFile, RegistryBackendSQLite:
		if r.Path == "" {
			return invalid("registry.path is required for the %s backend", r.Backend)
		}
	case RegistryBackendS3:
		return requireAll(map[string]string{
			"registry.s3.bucket": r.S3.Bucket,
			"registry.s3.region": r.S3.Region,
		})
	default:
		return invalid("registry.backend %q must be one of %s, %s, %s",
			r.Backend, RegistryBackendFile, RegistryBackendSQLite, RegistryBackendS3)
	}
	return nil
}

// releasePattern is a bare major.minor release such as 3.11.
var releasePattern = regexp.MustCompile(`^\d+\.\d+$`)

// CheckVersion reports whether version names one of the supported
// major.minor platform releases. A patch component is rejected.
func (d DeployConfig) CheckVersion(version string) error {
	if !releasePattern.MatchString(version) {
		return invalid("version %q must be a major.minor release such as 3.11", version)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return invalid("version %q is not a valid version", version)
	}

	for _, supported := range d.SupportedVersions {
		s, err := semver.NewVersion(supported)
		if err != nil {
			continue
		}
		if s.Major() == v.Major() && s.Minor() == v.Minor() {
			return nil
		}
	}
	return invalid("version %q is not supported (supported: %s)", version, strings.Join(d.SupportedVersions, ", "))
}

func requireAll(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return invalid("missing required keys: %s", strings.Join(missing, ", "))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
