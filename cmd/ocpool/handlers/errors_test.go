package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/lock"
)

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "usage", err: UsageError(errors.New("accepts 2 arg(s)")), want: ExitValidation},
		{name: "invalid config", err: fmt.Errorf("load: %w", config.ErrInvalidConfig), want: ExitValidation},
		{name: "locked", err: lock.ErrAlreadyRunning, want: ExitValidation},
		{name: "topology", err: provisioning.ErrInvalidTopology, want: ExitValidation},
		{name: "node type", err: provisioning.ErrInvalidNodeType, want: ExitValidation},
		{name: "already exists", err: provisioning.NewStackError("demo", "create", provisioning.ErrStackAlreadyExists), want: ExitValidation},
		{name: "not found", err: provisioning.ErrStackNotFound, want: ExitBackend},
		{name: "timeout", err: provisioning.ErrProvisioningTimeout, want: ExitBackend},
		{name: "phase", err: &provisioning.PhaseError{Cluster: "demo", Phase: "install", ExitCode: 2}, want: ExitBackend},
		{name: "cancelled", err: context.Canceled, want: ExitBackend},
		{name: "other", err: errors.New("boom"), want: ExitBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestUsageError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, UsageError(nil))

	err := UsageError(errors.New("bad flag"))
	require.ErrorIs(t, err, ErrUsage)
	assert.Same(t, err, UsageError(err))
}

func TestParseNodeTypes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		csv     string
		want    []provisioning.NodeType
		wantErr error
	}{
		{
			name: "demo",
			csv:  "master,infra,compute,compute",
			want: []provisioning.NodeType{
				provisioning.NodeTypeMaster, provisioning.NodeTypeInfra,
				provisioning.NodeTypeCompute, provisioning.NodeTypeCompute,
			},
		},
		{
			name: "case insensitive",
			csv:  "Master,INFRA,compute",
			want: []provisioning.NodeType{
				provisioning.NodeTypeMaster, provisioning.NodeTypeInfra, provisioning.NodeTypeCompute,
			},
		},
		{name: "no infra", csv: "master,compute", wantErr: provisioning.ErrInvalidTopology},
		{name: "bad type", csv: "master,infra,worker", wantErr: provisioning.ErrInvalidNodeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseNodeTypes(tt.csv)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
