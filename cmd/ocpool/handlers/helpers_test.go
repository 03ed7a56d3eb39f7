package handlers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/stack"
	"github.com/imamik/ocpool/internal/registry"
	ocptesting "github.com/imamik/ocpool/internal/testing"
)

const demoTypes = "master,infra,compute,compute"

// harness points every handler factory at a shared set of fakes and writes
// a valid configuration into a fresh workspace.
type harness struct {
	fakes     *ocptesting.Fakes
	cfg       *config.Config
	global    Global
	out       *bytes.Buffer
	workspace string
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	ws := t.TempDir()
	t.Setenv(config.EnvWorkspace, ws)
	t.Setenv(config.EnvConfig, "")

	cfg := ocptesting.NewConfigBuilder(ws).Materialize(t)
	for _, m := range mutate {
		m(cfg)
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(ws, config.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	h := &harness{
		fakes:     ocptesting.NewFakes(),
		cfg:       cfg,
		global:    Global{ConfigPath: path},
		out:       &bytes.Buffer{},
		workspace: ws,
	}
	h.install(t)
	return h
}

func (h *harness) install(t *testing.T) {
	origBackend := newBackend
	origDNS := newDNSUpdater
	origProber := newProber
	origRunner := newRunner
	origSessions := newSessions
	origKeys := newKeyExchanger
	origTimeouts := timeouts
	origStdout := stdout
	origStderr := stderr
	origTerminal := isTerminal
	origConfirm := confirm
	t.Cleanup(func() {
		newBackend = origBackend
		newDNSUpdater = origDNS
		newProber = origProber
		newRunner = origRunner
		newSessions = origSessions
		newKeyExchanger = origKeys
		timeouts = origTimeouts
		stdout = origStdout
		stderr = origStderr
		isTerminal = origTerminal
		confirm = origConfirm
	})

	f := h.fakes
	newBackend = func(*config.Config, *config.Timeouts) provisioning.Backend { return f.Backend }
	newDNSUpdater = func(*config.Config) (provisioning.DNSUpdater, error) { return f.DNS, nil }
	newProber = func(*config.Config) (provisioning.Prober, error) { return f.Prober, nil }
	newRunner = func(*config.Config, io.Writer) provisioning.ConfigRunner { return f.Runner }
	newSessions = func(*config.Config, *config.Timeouts) stack.SessionFactory { return f.Sessions.Factory() }
	newKeyExchanger = func(*config.Config, *config.Timeouts) provisioning.KeyExchanger { return f.Keys }
	timeouts = config.TestTimeouts
	stdout = h.out
	stderr = io.Discard
	isTerminal = func() bool { return false }
	confirm = func(string) (bool, error) { return true, nil }
}

func (h *harness) registryNames(t *testing.T) []string {
	t.Helper()
	names, err := registry.NewFileStore(h.cfg.Registry.Path).Load(ocptesting.TestContext(t))
	require.NoError(t, err)
	return names
}
