package hcloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"golang.org/x/time/rate"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/labels"
	"github.com/imamik/ocpool/internal/util/naming"
	"github.com/imamik/ocpool/internal/util/retry"
)

// Output key suffixes and the stack-wide deployment output.
const (
	outputPublicIP     = "_public_ip"
	outputName         = "_name"
	outputInstanceType = "_instance_type"
	outputDeployment   = "ocp_deployment_pqdn"
)

// Backend stores stacks as labeled Hetzner Cloud servers.
type Backend struct {
	client   *hcloud.Client
	limiter  *rate.Limiter
	timeouts *config.Timeouts
	sleep    retry.Sleeper
}

// Option configures a Backend.
type Option func(*Backend)

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) Option {
	return func(b *Backend) {
		b.client = hc
	}
}

// WithTimeouts sets the retry budget of API calls.
func WithTimeouts(t *config.Timeouts) Option {
	return func(b *Backend) {
		b.timeouts = t
	}
}

// WithRateLimit limits API calls to limit per second with the given burst.
// A non-positive limit disables limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(b *Backend) {
		if limit <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithSleeper replaces the wall-clock sleep between retries.
func WithSleeper(s retry.Sleeper) Option {
	return func(b *Backend) {
		b.sleep = s
	}
}

// NewBackend creates a backend authenticated with token.
func NewBackend(token string, opts ...Option) *Backend {
	b := &Backend{
		client:   hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("ocpool", "")),
		limiter:  rate.NewLimiter(rate.Limit(config.DefaultRateLimit), config.DefaultRateBurst),
		timeouts: config.LoadTimeouts(),
		sleep:    retry.ContextSleep,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBackendFromConfig creates a backend from the hcloud section of the config.
func NewBackendFromConfig(cfg config.HCloudConfig, timeouts *config.Timeouts) *Backend {
	return NewBackend(cfg.Token, WithTimeouts(timeouts), WithRateLimit(cfg.RateLimit, cfg.RateBurst))
}

// ListStacks implements provisioning.Backend.
func (b *Backend) ListStacks(ctx context.Context) ([]provisioning.StackSummary, error) {
	servers, err := b.servers(ctx, labels.SelectorAllStacks())
	if err != nil {
		return nil, err
	}

	byStack := make(map[string][]*hcloud.Server)
	for _, s := range servers {
		name := s.Labels[labels.KeyStack]
		byStack[name] = append(byStack[name], s)
	}

	names := make([]string, 0, len(byStack))
	for name := range byStack {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]provisioning.StackSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, provisioning.StackSummary{
			ID:     name,
			Name:   name,
			Status: string(deriveStatus(byStack[name])),
		})
	}
	return summaries, nil
}

// CreateStack implements provisioning.Backend. Servers are created in body
// order. If one fails, the servers already created are marked failed so the
// stack reports CREATE_FAILED.
func (b *Backend) CreateStack(ctx context.Context, name, templateBody string) error {
	body, err := parseStackBody(name, templateBody)
	if err != nil {
		return err
	}

	existing, err := b.servers(ctx, labels.SelectorForStack(name))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s has %d servers", provisioning.ErrStackAlreadyExists, name, len(existing))
	}

	var created []*hcloud.Server
	for _, s := range body.Servers {
		server, err := b.createServer(ctx, name, body, s)
		if err != nil {
			if len(created) > 0 {
				if markErr := b.markServers(ctx, created, labels.StateFailed); markErr != nil {
					err = errors.Join(err, markErr)
				}
			}
			return fmt.Errorf("failed to create server %s of stack %s: %w", s.Name, name, err)
		}
		created = append(created, server)
	}
	return nil
}

// GetStackStatus implements provisioning.Backend.
func (b *Backend) GetStackStatus(ctx context.Context, id string) (string, error) {
	servers, err := b.stackServers(ctx, id)
	if err != nil {
		return "", err
	}
	return string(deriveStatus(servers)), nil
}

// GetStackOutputs implements provisioning.Backend.
func (b *Backend) GetStackOutputs(ctx context.Context, id string) ([]provisioning.Output, error) {
	servers, err := b.stackServers(ctx, id)
	if err != nil {
		return nil, err
	}
	return serverOutputs(servers), nil
}

// DeleteStack implements provisioning.Backend. Servers are first marked as
// deleting so that concurrent status reads report DELETE_IN_PROGRESS.
func (b *Backend) DeleteStack(ctx context.Context, id string) error {
	servers, err := b.stackServers(ctx, id)
	if err != nil {
		return err
	}
	if err := b.markServers(ctx, servers, labels.StateDeleting); err != nil {
		return err
	}

	var errs []error
	for _, s := range servers {
		if err := b.wait(ctx); err != nil {
			return err
		}
		if _, _, err := b.client.Server.DeleteWithResult(ctx, s); err != nil && !IsNotFound(err) {
			errs = append(errs, fmt.Errorf("failed to delete server %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) createServer(ctx context.Context, stack string, body *stackBody, s serverBody) (*hcloud.Server, error) {
	opts, err := b.buildServerCreateOpts(ctx, stack, body, s)
	if err != nil {
		return nil, err
	}

	var result hcloud.ServerCreateResult
	err = retry.WithExponentialBackoff(ctx, func() error {
		if err := b.wait(ctx); err != nil {
			return retry.Fatal(err)
		}
		res, _, err := b.client.Server.Create(ctx, opts)
		if err != nil {
			if isFatalCreateError(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	},
		retry.WithMaxRetries(b.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(b.timeouts.RetryInitialDelay),
		retry.WithSleeper(b.sleep),
	)
	if err != nil {
		return nil, err
	}
	return result.Server, nil
}

func (b *Backend) buildServerCreateOpts(ctx context.Context, stack string, body *stackBody, s serverBody) (hcloud.ServerCreateOpts, error) {
	serverType, err := b.resolveServerType(ctx, s.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}
	image, err := b.resolveImage(ctx, s.Image, serverType.Architecture)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}
	location, err := b.resolveLocation(ctx, s.Location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}
	sshKeys, err := b.resolveSSHKeys(ctx, s.SSHKeys)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	serverLabels := labels.NewLabelBuilder(stack).
		Merge(body.Labels).
		WithValue(labels.KeyStack, stack).
		WithValue(labels.KeyManagedBy, labels.ManagedByOCPool).
		WithInstance(s.Name, s.InstanceType).
		WithDomain(body.Deployment, body.Zone).
		WithValue(labels.KeyExpected, strconv.Itoa(len(body.Servers))).
		Build()

	return hcloud.ServerCreateOpts{
		Name:       naming.Server(stack, s.Name),
		ServerType: serverType,
		Image:      image,
		Location:   location,
		SSHKeys:    sshKeys,
		Labels:     serverLabels,
		UserData:   body.UserData,
	}, nil
}

func (b *Backend) markServers(ctx context.Context, servers []*hcloud.Server, state string) error {
	var errs []error
	for _, s := range servers {
		if s.Labels[labels.KeyState] == state {
			continue
		}
		if err := b.wait(ctx); err != nil {
			return err
		}
		updated := make(map[string]string, len(s.Labels)+1)
		for k, v := range s.Labels {
			updated[k] = v
		}
		updated[labels.KeyState] = state
		if _, _, err := b.client.Server.Update(ctx, s, hcloud.ServerUpdateOpts{Labels: updated}); err != nil {
			errs = append(errs, fmt.Errorf("failed to mark server %s %s: %w", s.Name, state, err))
			continue
		}
		s.Labels = updated
	}
	return errors.Join(errs...)
}

func (b *Backend) stackServers(ctx context.Context, id string) ([]*hcloud.Server, error) {
	servers, err := b.servers(ctx, labels.SelectorForStack(id))
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("%w: no servers labeled %s", provisioning.ErrStackNotFound, labels.SelectorForStack(id))
	}
	return servers, nil
}

func (b *Backend) servers(ctx context.Context, selector string) ([]*hcloud.Server, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	servers, err := b.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers (%s): %w", selector, err)
	}
	return servers, nil
}

func (b *Backend) wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// deriveStatus maps the servers of one stack to a stack status.
func deriveStatus(servers []*hcloud.Server) provisioning.StackStatus {
	if len(servers) == 0 {
		return provisioning.StatusUnknown
	}

	expected := 0
	failed, running := false, 0
	for _, s := range servers {
		switch s.Labels[labels.KeyState] {
		case labels.StateDeleting:
			return provisioning.StatusDeleteInProgress
		case labels.StateFailed:
			failed = true
		}
		if n, err := strconv.Atoi(s.Labels[labels.KeyExpected]); err == nil && n > expected {
			expected = n
		}
		if s.Status == hcloud.ServerStatusRunning {
			running++
		}
	}

	switch {
	case failed:
		return provisioning.StatusCreateFailed
	case len(servers) < expected, running < len(servers):
		return provisioning.StatusCreateInProgress
	}
	return provisioning.StatusCreateComplete
}

// serverOutputs renders the outputs of one stack, sorted by key.
func serverOutputs(servers []*hcloud.Server) []provisioning.Output {
	var outputs []provisioning.Output
	deployment := ""
	for _, s := range servers {
		inst := s.Labels[labels.KeyInstance]
		if inst == "" {
			continue
		}
		if deployment == "" {
			deployment = s.Labels[labels.KeyDeployment]
		}
		domain := naming.ServersDomain(s.Labels[labels.KeyDeployment], s.Labels[labels.KeyZone])
		outputs = append(outputs,
			provisioning.Output{Key: inst + outputName, Value: naming.FQDN(inst, domain)},
			provisioning.Output{Key: inst + outputInstanceType, Value: s.Labels[labels.KeyInstanceType]},
		)
		if ip := ServerIPv4(s); ip != "" {
			outputs = append(outputs, provisioning.Output{Key: inst + outputPublicIP, Value: ip})
		}
	}
	outputs = append(outputs, provisioning.Output{Key: outputDeployment, Value: deployment})

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Key < outputs[j].Key })
	return outputs
}
