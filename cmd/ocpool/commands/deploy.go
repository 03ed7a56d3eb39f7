package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Deploy returns the deploy command.
//
// The deploy command creates a cluster stack, runs the pre_install and
// install playbooks against it and records the cluster in the pool registry.
func Deploy(g *handlers.Global) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy NAME NODE_TYPES VERSION",
		Short: "Create and deploy an OpenShift cluster",
		Long: `Deploy creates the stack of a cluster and installs OpenShift on it.

The pre_install playbook runs first; install only runs if it succeeds.
NAME is a DNS label of up to 32 lowercase letters, digits and hyphens.
VERSION is a major.minor release such as 3.11 and must be one of
deploy.supported_versions; a patch component is rejected. On success the
cluster is added to the pool registry.

Example:
  ocpool deploy demo master,infra,compute,compute 3.7`,
		Args: usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Deploy(cmd.Context(), *g, args[0], args[1], args[2])
		},
	}
}
