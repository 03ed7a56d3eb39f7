package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Delete returns the delete command.
func Delete(g *handlers.Global) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a cluster and its stack",
		Long: `Delete unregisters the cluster hosts from DNS, deletes its stack and
removes its management environment and registry entry.

Without --force the command asks for confirmation and refuses to run when
stdin is not a terminal.

Example:
  ocpool delete demo -f

WARNING: This operation is irreversible.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Delete(cmd.Context(), *g, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without asking for confirmation")

	return cmd
}
