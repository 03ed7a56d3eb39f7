package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Doctor returns the command checking configuration and external tools.
func Doctor(g *handlers.Global) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and required tools",
		Long: `Doctor validates the configuration file and checks that the tools it
relies on are installed: ansible-playbook always, nsupdate and ping when
selected, and oc as an optional extra.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), *g)
		},
	}
}
