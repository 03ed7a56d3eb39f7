package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// List returns the list command.
func List(g *handlers.Global) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered clusters with their live status",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.List(cmd.Context(), *g)
		},
	}
}
