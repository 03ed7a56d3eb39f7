// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Root returns the root command for the ocpool CLI.
func Root() *cobra.Command {
	g := &handlers.Global{}

	cmd := &cobra.Command{
		Use:           "ocpool",
		Short:         "Provision and deploy a pool of OpenShift clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return handlers.UsageError(err)
	})

	cmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "",
		"Path to configuration file (default: $OCPOOL_CONFIG, then $WORKSPACE/ocpool.yaml)")
	cmd.PersistentFlags().CountVarP(&g.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")

	// Cluster lifecycle
	cmd.AddCommand(Create(g))
	cmd.AddCommand(Deploy(g))
	cmd.AddCommand(Delete(g))

	// Pool and utility commands
	cmd.AddCommand(List(g))
	cmd.AddCommand(Serve(g))
	cmd.AddCommand(Doctor(g))
	cmd.AddCommand(Version())

	return cmd
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return handlers.UsageError(fn(cmd, args))
	}
}
