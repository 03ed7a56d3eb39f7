package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/mgmtenv"
	"github.com/imamik/ocpool/internal/provisioning"
	ocptesting "github.com/imamik/ocpool/internal/testing"
	"github.com/imamik/ocpool/internal/util/lock"
)

func TestCreate(t *testing.T) {
	textfile := ""
	h := newHarness(t, func(cfg *config.Config) {
		textfile = filepath.Join(cfg.Workspace, "ocpool.prom")
		cfg.Metrics.Textfile = textfile
	})
	ctx := ocptesting.TestContext(t)

	require.NoError(t, Create(ctx, h.global, "demo", demoTypes))

	out := h.out.String()
	assert.Contains(t, out, "Creating stack demo.")
	assert.Contains(t, out, "Stack has successfully created.")
	for _, fqdn := range []string{
		"ocp-master-0.demo.example.com",
		"ocp-infra-0.demo.example.com",
		"ocp-compute-0.demo.example.com",
		"ocp-compute-1.demo.example.com",
	} {
		assert.Contains(t, out, fqdn)
	}
	assert.NotContains(t, out, "Key exchange failed")

	// Stack only: nothing deployed, nothing registered.
	assert.Empty(t, h.fakes.Runner.Calls())
	assert.Empty(t, h.registryNames(t))

	env := mgmtenv.New(h.workspace, "demo")
	assert.FileExists(t, env.FilePath(mgmtenv.LogFile))

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ocpool_orchestrator_operations_total{operation="stack_create",result="success"} 1`)
}

func TestCreate_KeyExchangeWarning(t *testing.T) {
	h := newHarness(t)
	h.fakes.Keys.Err = errors.New("connection refused")

	require.NoError(t, Create(ocptesting.TestContext(t), h.global, "demo", demoTypes))
	assert.Contains(t, h.out.String(), "Key exchange failed: ")
}

func TestCreate_AlreadyExists(t *testing.T) {
	h := newHarness(t)
	ctx := ocptesting.TestContext(t)
	require.NoError(t, Create(ctx, h.global, "demo", demoTypes))
	mutations := h.fakes.Backend.Mutations()

	err := Create(ctx, h.global, "demo", demoTypes)
	require.ErrorIs(t, err, provisioning.ErrStackAlreadyExists)
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Equal(t, mutations, h.fakes.Backend.Mutations())
}

func TestCreate_InvalidArguments(t *testing.T) {
	tests := []struct {
		name      string
		nodeTypes string
		wantErr   error
	}{
		{name: "unknown type", nodeTypes: "master,worker", wantErr: provisioning.ErrInvalidNodeType},
		{name: "empty", nodeTypes: "", wantErr: provisioning.ErrInvalidNodeType},
		{name: "missing compute", nodeTypes: "master,infra", wantErr: provisioning.ErrInvalidTopology},
		{name: "missing master", nodeTypes: "infra,compute", wantErr: provisioning.ErrInvalidTopology},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := Create(ocptesting.TestContext(t), h.global, "demo", tt.nodeTypes)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, ExitValidation, ExitCode(err))
			assert.Zero(t, h.fakes.Backend.Mutations())
		})
	}
}

func TestCreate_MissingConfig(t *testing.T) {
	h := newHarness(t)
	h.global.ConfigPath = filepath.Join(h.workspace, "missing.yaml")

	err := Create(ocptesting.TestContext(t), h.global, "demo", demoTypes)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestCreate_Locked(t *testing.T) {
	h := newHarness(t)
	l, err := lock.Acquire(h.workspace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	err = Create(ocptesting.TestContext(t), h.global, "demo", demoTypes)
	require.ErrorIs(t, err, lock.ErrAlreadyRunning)
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Zero(t, h.fakes.Backend.Mutations())
}

func TestCreate_BackendFailure(t *testing.T) {
	h := newHarness(t)
	h.fakes.Backend.StatusAfterCreate = provisioning.StatusCreateFailed

	err := Create(ocptesting.TestContext(t), h.global, "demo", demoTypes)
	require.ErrorIs(t, err, provisioning.ErrStackCreateFailed)
	assert.Equal(t, ExitBackend, ExitCode(err))
}
