package config

// Defaults applied by Load when a field is left empty.
const (
	DefaultDNSProvider      = DNSProviderNSUpdate
	DefaultDNSTTL           = 300
	DefaultSSHUser          = "cloud-user"
	DefaultSSHPort          = 22
	DefaultProbeMethod      = ProbeMethodPing
	DefaultAnsibleBinary    = "ansible-playbook"
	DefaultNSUpdateBinary   = "nsupdate"
	DefaultForks            = 5
	DefaultRegistryBackend  = RegistryBackendFile
	DefaultRegistryFile     = "pool.yaml"
	DefaultRegistryDatabase = "pool.db"
	DefaultRegistryKey      = "ocpool/pool.json"
	DefaultRateLimit        = 1.0
	DefaultRateBurst        = 5
	DefaultListen           = ":8080"
	DefaultReloadSchedule   = "@every 5m"
	DefaultConfigFile       = "ocpool.yaml"
)

// DNS providers.
const (
	DNSProviderNSUpdate   = "nsupdate"
	DNSProviderCloudflare = "cloudflare"
)

// Probe methods.
const (
	ProbeMethodPing = "ping"
	ProbeMethodTCP  = "tcp"
)

// Registry backends.
const (
	RegistryBackendFile   = "file"
	RegistryBackendSQLite = "sqlite"
	RegistryBackendS3     = "s3"
)

// Environment variables read by Load.
const (
	EnvConfig               = "OCPOOL_CONFIG"
	EnvWorkspace            = "WORKSPACE"
	EnvHCloudToken          = "HCLOUD_TOKEN"
	EnvCloudflareToken      = "CF_API_TOKEN"
	EnvSubscriptionPassword = "OCPOOL_SUBSCRIPTION_PASSWORD"
	EnvAWSAccessKey         = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey         = "AWS_SECRET_ACCESS_KEY"
)

// DefaultSupportedVersions are the platform versions deploy accepts
// when deploy.supported_versions is not set.
var DefaultSupportedVersions = []string{"3.7", "3.9", "3.10", "3.11"}

// NodeTypes lists the node types every server_types map must cover.
var NodeTypes = []string{"master", "infra", "compute"}
