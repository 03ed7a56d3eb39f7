package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/keyexchange"
	"github.com/imamik/ocpool/internal/metrics"
	"github.com/imamik/ocpool/internal/mgmtenv"
	"github.com/imamik/ocpool/internal/platform/ansible"
	"github.com/imamik/ocpool/internal/platform/cloudflare"
	hcloudplatform "github.com/imamik/ocpool/internal/platform/hcloud"
	"github.com/imamik/ocpool/internal/platform/nsupdate"
	"github.com/imamik/ocpool/internal/platform/ssh"
	"github.com/imamik/ocpool/internal/pool"
	"github.com/imamik/ocpool/internal/probe"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/cluster"
	"github.com/imamik/ocpool/internal/provisioning/stack"
	"github.com/imamik/ocpool/internal/registry"
	"github.com/imamik/ocpool/internal/util/lock"
)

// Global holds the flags shared by every command.
type Global struct {
	ConfigPath string
	Verbose    int
}

// Factory function variables - can be replaced in tests.
var (
	newBackend = func(cfg *config.Config, t *config.Timeouts) provisioning.Backend {
		return hcloudplatform.NewBackendFromConfig(cfg.Backend.HCloud, t)
	}

	newDNSUpdater = func(cfg *config.Config) (provisioning.DNSUpdater, error) {
		switch cfg.DNS.Provider {
		case config.DNSProviderNSUpdate, "":
			return nsupdate.NewUpdaterFromConfig(cfg.DNS), nil
		case config.DNSProviderCloudflare:
			return cloudflare.NewUpdaterFromConfig(cfg.DNS), nil
		}
		return nil, fmt.Errorf("%w: unknown dns provider %q", config.ErrInvalidConfig, cfg.DNS.Provider)
	}

	newProber = func(cfg *config.Config) (provisioning.Prober, error) {
		return probe.FromConfig(cfg.Probe)
	}

	newRunner = func(cfg *config.Config, out io.Writer) provisioning.ConfigRunner {
		r := ansible.NewRunnerFromConfig(cfg)
		r.Output = out
		return r
	}

	newSessions = func(cfg *config.Config, t *config.Timeouts) stack.SessionFactory {
		dial := sshDialer(cfg, t)
		return func(host string) (stack.Session, error) {
			c, err := dial(host)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}

	newKeyExchanger = func(cfg *config.Config, t *config.Timeouts) provisioning.KeyExchanger {
		dial := sshDialer(cfg, t)
		return keyexchange.New(func(host string) (keyexchange.Remote, error) {
			c, err := dial(host)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	}

	openRegistry = func(ctx context.Context, cfg config.RegistryConfig) (registry.Store, error) {
		return registry.Open(ctx, cfg)
	}

	timeouts = config.LoadTimeouts

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// sshDialer returns a dial function opening SSH clients with the configured key.
// The key file is read on first use.
func sshDialer(cfg *config.Config, t *config.Timeouts) func(host string) (*ssh.Client, error) {
	return func(host string) (*ssh.Client, error) {
		key, err := os.ReadFile(cfg.SSH.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh private key: %w", err)
		}
		return ssh.NewClient(&ssh.Config{
			Host:        host,
			Port:        cfg.SSH.Port,
			User:        cfg.SSH.User,
			PrivateKey:  key,
			DialTimeout: t.SSHTimeout,
		})
	}
}

// runtime is the wiring shared by the commands: configuration, logging,
// metrics and the orchestrators.
type runtime struct {
	cfg      *config.Config
	log      logr.Logger
	observer provisioning.Observer
	registry *prometheus.Registry
	metrics  *metrics.Recorder
	stacks   *stack.Orchestrator
	clusters *cluster.Orchestrator

	lock    *lock.Lock
	closers []io.Closer
	// logEnv is the environment created only to hold the command log.
	logEnv *mgmtenv.Env
}

type runtimeOptions struct {
	// stackName scopes the log to the management environment of that stack.
	stackName string
	// exclusive takes the workspace lock.
	exclusive bool
}

func newRuntime(g Global, opts runtimeOptions) (rt *runtime, err error) {
	cfg, err := loadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	rt = &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if opts.exclusive {
		if rt.lock, err = lock.Acquire(cfg.Workspace); err != nil {
			return nil, err
		}
	}

	out := stderr
	if opts.stackName != "" {
		env := mgmtenv.New(cfg.Workspace, opts.stackName)
		if !env.Exists() {
			rt.logEnv = env
		}
		f, err := env.OpenLog()
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, f)
		out = io.MultiWriter(stderr, f)
	}
	rt.log = newLogger(out, g.Verbose)
	rt.observer = provisioning.NewLogObserver(rt.log)

	rt.registry = prometheus.NewRegistry()
	if rt.metrics, err = metrics.NewRecorder(rt.registry); err != nil {
		return nil, err
	}

	t := timeouts()
	dns, err := newDNSUpdater(cfg)
	if err != nil {
		return nil, err
	}
	prober, err := newProber(cfg)
	if err != nil {
		return nil, err
	}
	deps := stack.Deps{
		Backend:  newBackend(cfg, t),
		DNS:      dns,
		Prober:   prober,
		Keys:     newKeyExchanger(cfg, t),
		Sessions: newSessions(cfg, t),
	}
	rt.stacks = stack.NewOrchestrator(deps, stack.SettingsFromConfig(cfg, t),
		stack.WithObserver(rt.observer),
		stack.WithMetrics(rt.metrics),
	)
	rt.clusters = cluster.NewOrchestrator(rt.stacks, newRunner(cfg, out), cluster.SettingsFromConfig(cfg),
		cluster.WithObserver(rt.observer),
		cluster.WithMetrics(rt.metrics),
	)
	return rt, nil
}

// pool opens the registry and returns a manager on top of it. The manager is
// not reloaded.
func (rt *runtime) pool(ctx context.Context) (*pool.Manager, error) {
	store, err := openRegistry(ctx, rt.cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	rt.closers = append(rt.closers, store)
	return pool.NewManager(rt.clusters, store,
		pool.WithObserver(rt.observer),
		pool.WithMetrics(rt.metrics),
		pool.WithSkipMissing(rt.cfg.Registry.SkipMissing),
	), nil
}

// Close writes the metrics textfile, closes the log, drops an environment
// that only holds the log and releases the lock.
func (rt *runtime) Close() error {
	var errs []error
	if rt.registry != nil && rt.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(rt.cfg.Metrics.Textfile, rt.registry); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	if rt.logEnv != nil {
		if err := rt.logEnv.Prune(); err != nil {
			errs = append(errs, err)
		}
		rt.logEnv = nil
	}
	if err := rt.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	rt.lock = nil
	return errors.Join(errs...)
}

func loadConfig(flagValue string) (*config.Config, error) {
	path := config.ResolvePath(flagValue)
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// newLogger returns a logr.Logger writing through the standard log package.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	l := log.New(w, "", log.LstdFlags)
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			l.Printf("%s: %s", prefix, args)
			return
		}
		l.Print(args)
	}, funcr.Options{Verbosity: verbosity})
}
