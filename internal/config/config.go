package config

// Config holds the application configuration.
type Config struct {
	// Workspace is the directory holding one management environment per stack.
	Workspace string `yaml:"workspace"`

	Subscription SubscriptionConfig `yaml:"subscription"`
	Backend      BackendConfig      `yaml:"backend"`
	DNS          DNSConfig          `yaml:"dns"`
	SSH          SSHConfig          `yaml:"ssh"`
	Probe        ProbeConfig        `yaml:"probe"`
	Ansible      AnsibleConfig      `yaml:"ansible"`
	Deploy       DeployConfig       `yaml:"deploy"`
	Registry     RegistryConfig     `yaml:"registry"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Server       ServerConfig       `yaml:"server"`
}

// SubscriptionConfig holds the registration credentials passed to the pre-install phase.
type SubscriptionConfig struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Pool       string `yaml:"pool"`
	AuthServer string `yaml:"auth_server"`
}

// BackendConfig selects and configures the orchestration backend.
type BackendConfig struct {
	HCloud HCloudConfig `yaml:"hcloud"`
}

// HCloudConfig holds the stack template parameters for Hetzner Cloud.
type HCloudConfig struct {
	Token       string            `yaml:"token"`
	Location    string            `yaml:"location"`
	Image       string            `yaml:"image"`
	ServerTypes map[string]string `yaml:"server_types"`
	SSHKeys     []string          `yaml:"ssh_keys"`
	Labels      map[string]string `yaml:"labels"`
	UserData    string            `yaml:"user_data"`

	// RateLimit is the sustained number of API calls per second.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// DNSConfig configures the DNS updater.
type DNSConfig struct {
	Zone     string `yaml:"zone"`
	Provider string `yaml:"provider"`
	TTL      int    `yaml:"ttl"`

	NSUpdate   NSUpdateConfig   `yaml:"nsupdate"`
	Cloudflare CloudflareConfig `yaml:"cloudflare"`
}

// NSUpdateConfig configures the nsupdate(1) provider.
type NSUpdateConfig struct {
	Server  string `yaml:"server"`
	KeyFile string `yaml:"key_file"`
	Binary  string `yaml:"binary"`
}

// CloudflareConfig configures the Cloudflare provider.
type CloudflareConfig struct {
	APIToken string `yaml:"api_token"`
	Proxied  bool   `yaml:"proxied"`
}

// SSHConfig holds the credentials used to reach the stack hosts.
type SSHConfig struct {
	User           string `yaml:"user"`
	PrivateKeyFile string `yaml:"private_key_file"`
	Port           int    `yaml:"port"`
}

// ProbeConfig selects how host reachability is tested.
type ProbeConfig struct {
	Method string `yaml:"method"`
	Port   int    `yaml:"port"`
}

// AnsibleConfig configures the playbook runner.
type AnsibleConfig struct {
	Binary       string `yaml:"binary"`
	PlaybooksDir string `yaml:"playbooks_dir"`
	ConfigDir    string `yaml:"config_dir"`
	RemoteUser   string `yaml:"remote_user"`
	Forks        int    `yaml:"forks"`
	Verbosity    int    `yaml:"verbosity"`
}

// DeployConfig holds platform deployment settings.
type DeployConfig struct {
	SupportedVersions []string `yaml:"supported_versions"`
	NodePrefix        string   `yaml:"node_prefix"`
}

// RegistryConfig selects where the pool registry is persisted.
type RegistryConfig struct {
	Backend string `yaml:"backend"`

	// Path is the registry file (file backend) or database (sqlite backend).
	Path string `yaml:"path"`

	// SkipMissing drops registry entries whose stack is gone instead of failing the reload.
	SkipMissing bool `yaml:"skip_missing"`

	S3 S3Config `yaml:"s3"`
}

// S3Config configures the s3 registry backend.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// MetricsConfig configures metric export for one-shot commands.
type MetricsConfig struct {
	// Textfile receives the metrics in Prometheus text format after each command.
	Textfile string `yaml:"textfile"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Listen         string `yaml:"listen"`
	ReloadSchedule string `yaml:"reload_schedule"`
}

// ServerType returns the configured server type for a node type.
func (c HCloudConfig) ServerType(nodeType string) string {
	return c.ServerTypes[nodeType]
}
