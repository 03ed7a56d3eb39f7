package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

func TestLifecycleCommands(t *testing.T) {
	g := &handlers.Global{}
	tests := []struct {
		name  string
		build func(*handlers.Global) *cobra.Command
		use   string
		short string
	}{
		{name: "create", build: Create, use: "create NAME NODE_TYPES", short: "Create a cluster stack without deploying it"},
		{name: "deploy", build: Deploy, use: "deploy NAME NODE_TYPES VERSION", short: "Create and deploy an OpenShift cluster"},
		{name: "delete", build: Delete, use: "delete NAME", short: "Delete a cluster and its stack"},
		{name: "list", build: List, use: "list", short: "List registered clusters with their live status"},
		{name: "serve", build: Serve, use: "serve", short: "Serve a read-only view of the cluster pool"},
		{name: "doctor", build: Doctor, use: "doctor", short: "Check configuration and required tools"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.build(g)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.use, cmd.Use)
			assert.Equal(t, tt.short, cmd.Short)
			assert.NotNil(t, cmd.RunE)
			assert.NotNil(t, cmd.Args)
		})
	}
}

func TestDelete_ForceFlag(t *testing.T) {
	cmd := Delete(&handlers.Global{})

	flag := cmd.Flags().Lookup("force")
	require.NotNil(t, flag)
	assert.Equal(t, "f", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
	assert.Contains(t, cmd.Long, "WARNING")
}

func TestServe_ListenFlag(t *testing.T) {
	cmd := Serve(&handlers.Global{})

	flag := cmd.Flags().Lookup("listen")
	require.NotNil(t, flag)
	assert.Equal(t, "l", flag.Shorthand)
	assert.Contains(t, cmd.Long, "/clusters/{name}")
}

func TestList_Alias(t *testing.T) {
	cmd := List(&handlers.Global{})
	assert.Equal(t, []string{"ls"}, cmd.Aliases)
}
