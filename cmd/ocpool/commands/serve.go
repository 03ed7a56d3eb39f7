package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Serve returns the serve command.
//
// The serve command exposes the pool over HTTP and reloads it from the
// registry on the configured schedule.
func Serve(g *handlers.Global) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only view of the cluster pool",
		Long: `Serve loads the pool from the registry and serves it over HTTP.

Endpoints:
  GET  /healthz
  GET  /metrics
  GET  /clusters
  GET  /clusters/{name}
  POST /reload

The pool is reloaded on server.reload_schedule (default "@every 5m").`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), *g, listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default: server.listen)")

	return cmd
}
