package stack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/metrics"
	"github.com/imamik/ocpool/internal/mgmtenv"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/templates"
	"github.com/imamik/ocpool/internal/util/retry"
)

const (
	phaseStack = "stack"
	phaseDNS   = "dns"
	phaseKeys  = "keys"

	// StackFile is the rendered stack body kept in the management environment.
	StackFile = "stack.yaml"
)

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Backend provisioning.Backend
	DNS     provisioning.DNSUpdater
	Prober  provisioning.Prober

	// Keys is optional. Without it the key exchange step is skipped.
	Keys provisioning.KeyExchanger

	// Sessions is optional. It backs Instance.Session.
	Sessions SessionFactory
}

// TemplateParams are the backend parameters rendered into every stack body.
type TemplateParams struct {
	Location    string
	Image       string
	ServerTypes map[string]string
	SSHKeys     []string
	Labels      map[string]string
	UserData    string
}

// Settings configures an Orchestrator.
type Settings struct {
	Workspace  string
	Zone       string
	NameServer string
	TTL        int
	Template   TemplateParams
	Timeouts   *config.Timeouts
}

// SettingsFromConfig derives orchestrator settings from the application config.
func SettingsFromConfig(cfg *config.Config, timeouts *config.Timeouts) Settings {
	h := cfg.Backend.HCloud
	return Settings{
		Workspace:  cfg.Workspace,
		Zone:       cfg.DNS.Zone,
		NameServer: cfg.DNS.NSUpdate.Server,
		TTL:        cfg.DNS.TTL,
		Template: TemplateParams{
			Location:    h.Location,
			Image:       h.Image,
			ServerTypes: h.ServerTypes,
			SSHKeys:     h.SSHKeys,
			Labels:      h.Labels,
			UserData:    h.UserData,
		},
		Timeouts: timeouts,
	}
}

// Orchestrator owns the lifecycle of named stacks.
type Orchestrator struct {
	deps     Deps
	settings Settings
	observer provisioning.Observer
	metrics  *metrics.Recorder
	sleep    retry.Sleeper
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

// WithSleeper replaces the wall-clock sleep of every poll loop.
func WithSleeper(s retry.Sleeper) Option {
	return func(orc *Orchestrator) {
		orc.sleep = s
	}
}

// NewOrchestrator creates a stack orchestrator.
func NewOrchestrator(deps Deps, settings Settings, opts ...Option) *Orchestrator {
	if settings.Timeouts == nil {
		settings.Timeouts = config.LoadTimeouts()
	}
	o := &Orchestrator{
		deps:     deps,
		settings: settings,
		observer: provisioning.NopObserver(),
		sleep:    retry.ContextSleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Get returns a handle on the stack called name without contacting the backend.
func (o *Orchestrator) Get(name string) *Stack {
	return &Stack{
		name:     name,
		zone:     o.settings.Zone,
		backend:  o.deps.Backend,
		env:      mgmtenv.New(o.settings.Workspace, name),
		sessions: o.deps.Sessions,
	}
}

// IsStack reports whether the backend holds name in CREATE_COMPLETE.
func (o *Orchestrator) IsStack(ctx context.Context, name string) (bool, error) {
	status, err := o.Get(name).Status(ctx)
	if errors.Is(err, provisioning.ErrStackNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == provisioning.StatusCreateComplete, nil
}

// Create provisions the stack, registers its hosts in DNS, waits for them to
// become reachable and runs the key exchange. A failure after submission
// leaves the stack in place for inspection.
func (o *Orchestrator) Create(ctx context.Context, name string, instanceNames []string, instanceTypes []provisioning.NodeType) (st *Stack, err error) {
	spec, err := provisioning.NewStackSpec(name, instanceNames, instanceTypes)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { o.metrics.ObserveOperation("stack_create", start, err) }()

	exists, err := o.IsStack(ctx, name)
	if err != nil {
		return nil, provisioning.NewStackError(name, "create", err)
	}
	if exists {
		return nil, provisioning.NewStackError(name, "create", provisioning.ErrStackAlreadyExists)
	}

	observer := o.observer.WithFields(map[string]string{"stack": name})
	st = o.Get(name)

	if err := o.submit(ctx, observer, st, spec); err != nil {
		return nil, err
	}
	if err := o.waitForCreate(ctx, observer, st); err != nil {
		return nil, err
	}

	hosts, err := st.HostsData(ctx)
	if err != nil {
		return nil, provisioning.NewStackError(name, "create", err)
	}
	records, err := hosts.DNSRecords()
	if err != nil {
		return nil, provisioning.NewStackError(name, "create", err)
	}
	if err := o.configureDNS(ctx, observer, st, provisioning.DNSRegister, records); err != nil {
		return nil, err
	}

	o.exchangeKeys(ctx, observer, st, hosts)

	provisioning.LogPhaseComplete(observer, phaseStack, time.Since(start))
	return st, nil
}

// Delete removes the stack's DNS records, confirms they no longer resolve,
// deletes the backend stack, waits for DELETE_COMPLETE and finally removes
// the management environment.
func (o *Orchestrator) Delete(ctx context.Context, st *Stack) (err error) {
	start := time.Now()
	defer func() { o.metrics.ObserveOperation("stack_delete", start, err) }()

	observer := o.observer.WithFields(map[string]string{"stack": st.Name()})

	hosts, err := st.HostsData(ctx)
	if err != nil {
		return provisioning.NewStackError(st.Name(), "delete", err)
	}
	if err := o.configureDNS(ctx, observer, st, provisioning.DNSUnregister, hosts.TeardownRecords()); err != nil {
		return err
	}

	id, err := st.ID(ctx)
	if err != nil {
		return provisioning.NewStackError(st.Name(), "delete", err)
	}
	provisioning.LogResourceDeleting(observer, phaseStack, "stack", st.Name())
	if err := o.deps.Backend.DeleteStack(ctx, id); err != nil {
		return provisioning.NewStackError(st.Name(), "delete", err)
	}
	if err := o.waitForDelete(ctx, observer, st); err != nil {
		return err
	}
	provisioning.LogResourceDeleted(observer, phaseStack, "stack", st.Name())

	if err := st.Env().Delete(); err != nil {
		return provisioning.NewStackError(st.Name(), "delete", err)
	}
	provisioning.LogPhaseComplete(observer, phaseStack, time.Since(start))
	return nil
}

// submit renders the stack body, keeps a copy in the management environment
// and hands it to the backend.
func (o *Orchestrator) submit(ctx context.Context, observer provisioning.Observer, st *Stack, spec provisioning.StackSpec) error {
	p := o.settings.Template
	data, err := templates.NewStackData(spec, o.settings.Zone, p.ServerTypes)
	if err != nil {
		return provisioning.NewStackError(st.Name(), "render", err)
	}
	data.Location = p.Location
	data.Image = p.Image
	data.SSHKeys = p.SSHKeys
	data.Labels = p.Labels
	data.UserData = p.UserData

	body, err := templates.RenderStack(data)
	if err != nil {
		return provisioning.NewStackError(st.Name(), "render", err)
	}
	if err := st.Env().WriteFile(StackFile, body); err != nil {
		return provisioning.NewStackError(st.Name(), "render", err)
	}

	provisioning.LogResourceCreating(observer, phaseStack, "stack", st.Name())
	if err := o.deps.Backend.CreateStack(ctx, st.Name(), string(body)); err != nil {
		return provisioning.NewStackError(st.Name(), "create", err)
	}
	return nil
}

func (o *Orchestrator) waitForCreate(ctx context.Context, observer provisioning.Observer, st *Stack) error {
	t := o.settings.Timeouts
	err := retry.Poll(ctx, t.StackCreateAttempts, t.PollInterval, o.sleep, func(attempt int) (bool, error) {
		o.metrics.PollAttempt("stack_create")
		observer.Progress(phaseStack, attempt, t.StackCreateAttempts)

		status, err := st.Status(ctx)
		if errors.Is(err, provisioning.ErrStackNotFound) {
			// Not listed yet.
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch status {
		case provisioning.StatusCreateComplete:
			return true, nil
		case provisioning.StatusCreateFailed:
			return false, provisioning.ErrStackCreateFailed
		}
		return false, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		err = fmt.Errorf("%w: not %s after %d polls every %v",
			provisioning.ErrProvisioningTimeout, provisioning.StatusCreateComplete, t.StackCreateAttempts, t.PollInterval)
	}
	if err != nil {
		provisioning.LogPhaseFailed(observer, phaseStack, err)
		return provisioning.NewStackError(st.Name(), "create", err)
	}
	provisioning.LogResourceCreated(observer, phaseStack, "stack", st.Name())
	return nil
}

func (o *Orchestrator) waitForDelete(ctx context.Context, observer provisioning.Observer, st *Stack) error {
	t := o.settings.Timeouts
	err := retry.Poll(ctx, t.StackDeleteAttempts, t.PollInterval, o.sleep, func(attempt int) (bool, error) {
		o.metrics.PollAttempt("stack_delete")
		observer.Progress(phaseStack, attempt, t.StackDeleteAttempts)

		status, err := st.Status(ctx)
		if errors.Is(err, provisioning.ErrStackNotFound) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return status == provisioning.StatusDeleteComplete, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		err = fmt.Errorf("%w: not %s after %d polls every %v",
			provisioning.ErrProvisioningTimeout, provisioning.StatusDeleteComplete, t.StackDeleteAttempts, t.PollInterval)
	}
	if err != nil {
		provisioning.LogPhaseFailed(observer, phaseStack, err)
		return provisioning.NewStackError(st.Name(), "delete", err)
	}
	return nil
}

// configureDNS renders the batch into the management environment, applies it
// and waits until every host is reachable (register) or none is (unregister).
func (o *Orchestrator) configureDNS(ctx context.Context, observer provisioning.Observer, st *Stack, op provisioning.DNSOperation, records []provisioning.DNSRecord) error {
	start := time.Now()
	provisioning.LogPhaseStart(observer, phaseDNS)

	file, err := templates.DNSTemplate(op)
	if err != nil {
		return provisioning.NewStackError(st.Name(), string(op), err)
	}
	batch, err := templates.RenderDNS(op, templates.DNSData{
		Server:  o.settings.NameServer,
		Zone:    o.settings.Zone,
		TTL:     o.settings.TTL,
		Records: records,
	})
	if err != nil {
		return provisioning.NewStackError(st.Name(), string(op), err)
	}
	if err := st.Env().WriteFile(strings.TrimSuffix(file, ".tmpl"), batch); err != nil {
		return provisioning.NewStackError(st.Name(), string(op), err)
	}

	if err := o.deps.DNS.Apply(ctx, op, records); err != nil {
		provisioning.LogPhaseFailed(observer, phaseDNS, err)
		return provisioning.NewStackError(st.Name(), string(op), err)
	}

	want := op == provisioning.DNSRegister
	if err := o.waitReachability(ctx, observer, hostnames(records), want); err != nil {
		provisioning.LogPhaseFailed(observer, phaseDNS, err)
		return provisioning.NewStackError(st.Name(), string(op), err)
	}

	provisioning.LogPhaseComplete(observer, phaseDNS, time.Since(start))
	return nil
}

func (o *Orchestrator) waitReachability(ctx context.Context, observer provisioning.Observer, hosts []string, want bool) error {
	t := o.settings.Timeouts
	err := retry.Poll(ctx, t.DNSCheckAttempts, t.DNSCheckInterval, o.sleep, func(attempt int) (bool, error) {
		o.metrics.PollAttempt("dns_check")
		observer.Progress(phaseDNS, attempt, t.DNSCheckAttempts)

		for _, h := range hosts {
			if o.deps.Prober.Reachable(ctx, h) != want {
				return false, nil
			}
		}
		return true, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		state := "unreachable"
		if !want {
			state = "reachable"
		}
		return fmt.Errorf("%w: hosts still %s after %d attempts", provisioning.ErrNameServerUpdate, state, t.DNSCheckAttempts)
	}
	return err
}

// exchangeKeys is best-effort: a failure is reported and kept on the handle.
func (o *Orchestrator) exchangeKeys(ctx context.Context, observer provisioning.Observer, st *Stack, hosts *HostsData) {
	if o.deps.Keys == nil {
		return
	}
	start := time.Now()
	provisioning.LogPhaseStart(observer, phaseKeys)
	if err := o.deps.Keys.Exchange(ctx, hosts.FQDNs()); err != nil {
		st.keyExchangeErr = err
		provisioning.LogWarning(observer, phaseKeys, "key exchange failed, hosts may not reach each other over ssh", err)
		return
	}
	provisioning.LogPhaseComplete(observer, phaseKeys, time.Since(start))
}

// hostnames returns the probe targets of a batch. Wildcards are not probed.
func hostnames(records []provisioning.DNSRecord) []string {
	var hosts []string
	for _, r := range records {
		if strings.HasPrefix(r.Hostname, "*") {
			continue
		}
		hosts = append(hosts, r.Hostname)
	}
	return hosts
}
