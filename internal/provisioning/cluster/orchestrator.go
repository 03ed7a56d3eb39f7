package cluster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/metrics"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/stack"
	"github.com/imamik/ocpool/internal/templates"
	"github.com/imamik/ocpool/internal/util/naming"
)

// PlaybookExt is appended to a phase name to locate its playbook.
const PlaybookExt = ".yaml"

// LogsDir is the directory of the management environment the install phase
// writes its logs to.
const LogsDir = "logs"

// Settings configures an Orchestrator.
type Settings struct {
	NodePrefix     string
	PlaybooksDir   string
	ConfigDir      string
	RemoteUser     string
	PrivateKeyFile string
	Subscription   config.SubscriptionConfig
}

// SettingsFromConfig derives cluster settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	user := cfg.Ansible.RemoteUser
	if user == "" {
		user = cfg.SSH.User
	}
	return Settings{
		NodePrefix:     cfg.Deploy.NodePrefix,
		PlaybooksDir:   cfg.Ansible.PlaybooksDir,
		ConfigDir:      cfg.Ansible.ConfigDir,
		RemoteUser:     user,
		PrivateKeyFile: cfg.SSH.PrivateKeyFile,
		Subscription:   cfg.Subscription,
	}
}

// Orchestrator creates, deploys, loads and deletes clusters.
type Orchestrator struct {
	stacks   *stack.Orchestrator
	runner   provisioning.ConfigRunner
	settings Settings
	observer provisioning.Observer
	metrics  *metrics.Recorder
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the observer receiving lifecycle events.
func WithObserver(o provisioning.Observer) Option {
	return func(orc *Orchestrator) {
		orc.observer = o
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(orc *Orchestrator) {
		orc.metrics = r
	}
}

// WithClock replaces the clock stamping metadata records.
func WithClock(now func() time.Time) Option {
	return func(orc *Orchestrator) {
		orc.now = now
	}
}

// NewOrchestrator creates a cluster orchestrator on top of stacks.
func NewOrchestrator(stacks *stack.Orchestrator, runner provisioning.ConfigRunner, settings Settings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stacks:   stacks,
		runner:   runner,
		settings: settings,
		observer: provisioning.NopObserver(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GenNodeNames returns instance names for types using the configured prefix.
func (o *Orchestrator) GenNodeNames(types []provisioning.NodeType) []string {
	return GenNodeNames(o.settings.NodePrefix, types)
}

// Create provisions the stack of a new cluster, classifies its hosts, records
// its metadata and deploys version onto it.
func (o *Orchestrator) Create(ctx context.Context, name string, types []provisioning.NodeType, version string) (cl *Cluster, err error) {
	if err := provisioning.CheckTopology(types); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { o.metrics.ObserveOperation("cluster_create", start, err) }()

	st, err := o.stacks.Create(ctx, name, o.GenNodeNames(types), types)
	if err != nil {
		return nil, err
	}
	cl, err = o.load(ctx, st)
	if err != nil {
		return nil, err
	}

	cl.metadata = &Metadata{Name: name, CreatedAt: o.now().UTC()}
	if err := o.setPhase(cl, PhaseProvisioning, ""); err != nil {
		return nil, err
	}
	return o.Deploy(ctx, cl, version)
}

// Deploy runs the pre_install phase and, only if it exits 0, the install
// phase. A non-zero exit fails with a *provisioning.PhaseError.
func (o *Orchestrator) Deploy(ctx context.Context, cl *Cluster, version string) (_ *Cluster, err error) {
	start := time.Now()
	defer func() { o.metrics.ObserveOperation("cluster_deploy", start, err) }()

	observer := o.observer.WithFields(map[string]string{"cluster": cl.Name(), "version": version})

	if err := o.runPhase(ctx, observer, cl, PhasePreInstall, version, o.preInstallVars(version)); err != nil {
		return nil, err
	}
	if err := o.runPhase(ctx, observer, cl, PhaseInstall, version, o.installVars(cl, version)); err != nil {
		return nil, err
	}
	if err := o.setPhase(cl, PhaseReady, version); err != nil {
		return nil, err
	}

	provisioning.LogPhaseComplete(observer, "deploy", time.Since(start))
	return cl, nil
}

// Get loads the cluster called name. Only stacks in CREATE_COMPLETE or
// CREATE_FAILED are returned; anything else fails with ErrStackNotFound.
func (o *Orchestrator) Get(ctx context.Context, name string) (*Cluster, error) {
	st := o.stacks.Get(name)
	status, err := st.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Inspectable() {
		return nil, provisioning.NewStackError(name, "get", fmt.Errorf("%w: status is %s", provisioning.ErrStackNotFound, status))
	}

	cl, err := o.load(ctx, st)
	if err != nil {
		return nil, err
	}

	var meta Metadata
	err = st.Env().ReadYAML(MetadataFile, &meta)
	switch {
	case err == nil:
		cl.metadata = &meta
	case !errors.Is(err, fs.ErrNotExist):
		return nil, provisioning.NewStackError(name, "get", err)
	}
	return cl, nil
}

// Delete tears the cluster's stack down.
func (o *Orchestrator) Delete(ctx context.Context, cl *Cluster) (err error) {
	start := time.Now()
	defer func() { o.metrics.ObserveOperation("cluster_delete", start, err) }()

	if cl.Stack().Env().Exists() {
		if err := o.setPhase(cl, PhaseDeprovisioning, ""); err != nil {
			return err
		}
	}
	return o.stacks.Delete(ctx, cl.Stack())
}

func (o *Orchestrator) load(ctx context.Context, st *stack.Stack) (*Cluster, error) {
	hosts, err := st.HostsData(ctx)
	if err != nil {
		return nil, err
	}
	instances, err := st.Instances(ctx)
	if err != nil {
		return nil, err
	}
	return classify(st, hosts, instances)
}

func (o *Orchestrator) runPhase(ctx context.Context, observer provisioning.Observer, cl *Cluster, phase Phase, version string, vars map[string]any) error {
	start := time.Now()
	provisioning.LogPhaseStart(observer, string(phase))

	if err := o.setPhase(cl, phase, version); err != nil {
		return err
	}

	inventory, err := o.writeInventory(cl, phase)
	if err != nil {
		return o.fail(observer, cl, phase, err)
	}

	playbook := filepath.Join(o.settings.PlaybooksDir, string(phase)+PlaybookExt)
	code, err := o.runner.Run(ctx, playbook, inventory, vars)
	if err != nil {
		return o.fail(observer, cl, phase, fmt.Errorf("failed to run %s: %w", playbook, err))
	}
	o.metrics.PhaseRun(string(phase), code)
	if code != 0 {
		return o.fail(observer, cl, phase, &provisioning.PhaseError{Cluster: cl.Name(), Phase: string(phase), ExitCode: code})
	}

	provisioning.LogPhaseComplete(observer, string(phase), time.Since(start))
	return nil
}

// fail marks the cluster failed and returns err. A metadata write failure is
// only logged so that err stays the reported cause.
func (o *Orchestrator) fail(observer provisioning.Observer, cl *Cluster, phase Phase, err error) error {
	provisioning.LogPhaseFailed(observer, string(phase), err)
	if werr := o.setPhase(cl, PhaseFailed, ""); werr != nil {
		provisioning.LogWarning(observer, string(phase), "failed to record cluster state", werr)
	}
	return err
}

func (o *Orchestrator) writeInventory(cl *Cluster, phase Phase) (string, error) {
	name := templates.PreInstallInventory
	if phase == PhaseInstall {
		name = templates.InstallInventory
	}

	hosts := make([]templates.InventoryHost, 0, len(cl.nodes))
	for _, n := range cl.nodes {
		hosts = append(hosts, templates.InventoryHost{FQDN: n.Instance.FQDN, IP: n.Instance.IP, Type: n.Type})
	}
	data := templates.NewInventoryData(cl.Name(), hosts, o.settings.RemoteUser, o.settings.PrivateKeyFile)

	content, err := templates.RenderInventory(name, data)
	if err != nil {
		return "", err
	}
	file := strings.TrimSuffix(name, ".tmpl")
	if err := cl.Stack().Env().WriteFile(file, content); err != nil {
		return "", err
	}
	return cl.Stack().Env().FilePath(file), nil
}

func (o *Orchestrator) preInstallVars(version string) map[string]any {
	s := o.settings.Subscription
	return map[string]any{
		"subscription_username": s.Username,
		"subscription_password": s.Password,
		"pool_id":               s.Pool,
		"auth_server":           s.AuthServer,
		"ocp_version":           version,
		"config_dir":            o.settings.ConfigDir,
	}
}

func (o *Orchestrator) installVars(cl *Cluster, version string) map[string]any {
	return map[string]any{
		"ocp_version":                        version,
		"logs_directory":                     cl.Stack().Env().FilePath(LogsDir),
		"openshift_master_default_subdomain": naming.AppsDomain(cl.ServersDomain()),
		"master_nodes":                       fqdns(cl.NodesOfType(provisioning.NodeTypeMaster)),
		"infra_nodes":                        fqdns(cl.NodesOfType(provisioning.NodeTypeInfra)),
		"compute_nodes":                      fqdns(cl.NodesOfType(provisioning.NodeTypeCompute)),
	}
}

// setPhase records phase, and version when set, in the metadata file.
func (o *Orchestrator) setPhase(cl *Cluster, phase Phase, version string) error {
	if cl.metadata == nil {
		cl.metadata = &Metadata{Name: cl.Name(), CreatedAt: o.now().UTC()}
	}
	cl.metadata.Phase = phase
	if version != "" {
		cl.metadata.Version = version
	}
	if err := cl.Stack().Env().WriteYAML(MetadataFile, cl.metadata); err != nil {
		return provisioning.NewStackError(cl.Name(), "metadata", err)
	}
	return nil
}

func fqdns(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Instance.FQDN
	}
	return out
}
