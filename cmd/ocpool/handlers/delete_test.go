package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/mgmtenv"
	"github.com/imamik/ocpool/internal/provisioning"
	ocptesting "github.com/imamik/ocpool/internal/testing"
)

func TestDelete_Tracked(t *testing.T) {
	h := newHarness(t)
	ctx := ocptesting.TestContext(t)
	require.NoError(t, Deploy(ctx, h.global, "demo", demoTypes, "3.7"))
	require.Equal(t, []string{"demo"}, h.registryNames(t))

	require.NoError(t, Delete(ctx, h.global, "demo", true))

	assert.Contains(t, h.out.String(), "Cluster demo has been successfully deleted.")
	assert.Empty(t, h.registryNames(t))
	assert.False(t, mgmtenv.New(h.workspace, "demo").Exists())
	assert.Equal(t, 1, h.fakes.Log.Count("dns.unregister"))
}

func TestDelete_Untracked(t *testing.T) {
	h := newHarness(t)
	ctx := ocptesting.TestContext(t)
	require.NoError(t, Create(ctx, h.global, "demo", demoTypes))

	require.NoError(t, Delete(ctx, h.global, "demo", true))

	assert.Contains(t, h.out.String(), "Cluster demo has been successfully deleted.")
	assert.Empty(t, h.registryNames(t))
	assert.Equal(t, 1, h.fakes.Log.Count("backend.delete"))
}

func TestDelete_Confirmation(t *testing.T) {
	tests := []struct {
		name        string
		answer      bool
		answerErr   error
		wantDeleted bool
		wantOutput  string
		wantErr     bool
	}{
		{name: "confirmed", answer: true, wantDeleted: true, wantOutput: "has been successfully deleted"},
		{name: "declined", answer: false, wantOutput: "Canceling operation."},
		{name: "prompt error", answerErr: errors.New("user aborted"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := ocptesting.TestContext(t)
			require.NoError(t, Create(ctx, h.global, "demo", demoTypes))

			var asked string
			isTerminal = func() bool { return true }
			confirm = func(q string) (bool, error) {
				asked = q
				return tt.answer, tt.answerErr
			}

			err := Delete(ctx, h.global, "demo", false)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, "Are you sure you want to delete cluster demo?", asked)
			assert.Contains(t, h.out.String(), tt.wantOutput)

			deleted := h.fakes.Log.Count("backend.delete") > 0
			assert.Equal(t, tt.wantDeleted, deleted)
		})
	}
}

func TestDelete_NoTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := ocptesting.TestContext(t)
	require.NoError(t, Create(ctx, h.global, "demo", demoTypes))
	confirm = func(string) (bool, error) {
		t.Fatal("confirm must not be called without a terminal")
		return false, nil
	}

	err := Delete(ctx, h.global, "demo", false)
	require.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Zero(t, h.fakes.Log.Count("backend.delete"))
}

func TestDelete_NotFound(t *testing.T) {
	h := newHarness(t)

	err := Delete(ocptesting.TestContext(t), h.global, "ghost", true)
	require.ErrorIs(t, err, provisioning.ErrStackNotFound)
	assert.Equal(t, ExitBackend, ExitCode(err))
}

func TestDelete_RegistryUnreadable(t *testing.T) {
	h := newHarness(t)
	ctx := ocptesting.TestContext(t)
	require.NoError(t, Deploy(ctx, h.global, "demo", demoTypes, "3.7"))
	require.NoError(t, Create(ctx, h.global, "other", demoTypes))

	store, err := openRegistry(ctx, h.cfg.Registry)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, []string{"demo", "ghost"}))
	require.NoError(t, store.Close())

	// The reload fails on ghost, so other is deleted without touching the registry.
	require.NoError(t, Delete(ctx, h.global, "other", true))
	assert.Equal(t, []string{"demo", "ghost"}, h.registryNames(t))
}

func TestDelete_PoolNotLoadedDropsRegistryEntry(t *testing.T) {
	h := newHarness(t)
	ctx := ocptesting.TestContext(t)
	require.NoError(t, Deploy(ctx, h.global, "demo", demoTypes, "3.7"))
	require.NoError(t, Deploy(ctx, h.global, "other", demoTypes, "3.7"))
	require.Equal(t, []string{"demo", "other"}, h.registryNames(t))

	// other disappears from the backend, so the pool cannot be reloaded.
	h.fakes.Backend.SetStatus("other", provisioning.StatusDeleteComplete)

	require.NoError(t, Delete(ctx, h.global, "demo", true))
	assert.Nil(t, h.fakes.Backend.Stack("demo"))
	assert.Equal(t, []string{"other"}, h.registryNames(t))
}

func TestDelete_UnknownLeavesNoEnvironment(t *testing.T) {
	h := newHarness(t)

	err := Delete(ocptesting.TestContext(t), h.global, "ghost", true)
	require.ErrorIs(t, err, provisioning.ErrStackNotFound)
	assert.False(t, mgmtenv.New(h.workspace, "ghost").Exists())
}
