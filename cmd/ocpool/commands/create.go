package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Create returns the create command.
//
// The create command provisions the stack of a cluster and registers its
// hosts in DNS without deploying OpenShift onto it.
func Create(g *handlers.Global) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME NODE_TYPES",
		Short: "Create a cluster stack without deploying it",
		Long: `Create provisions the servers of a cluster and registers them in DNS.

NAME is a DNS label of up to 32 lowercase letters, digits and hyphens.
NODE_TYPES is a comma separated list of master, infra and compute. Every
type must appear at least once. The cluster is not deployed and is not
added to the pool registry; use deploy for that.

Example:
  ocpool create demo master,infra,compute,compute`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Create(cmd.Context(), *g, args[0], args[1])
		},
	}
}
