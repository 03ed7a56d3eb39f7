// Package main is the entry point for the ocpool CLI.
//
// ocpool provisions a pool of OpenShift clusters: it creates the servers of
// each cluster as a named stack, registers them in DNS, runs the pre_install
// and install playbooks against them and keeps a registry of the deployed
// clusters.
//
// Commands: create, deploy, delete, list, serve, doctor, version.
//
// For detailed usage information, run:
//
//	ocpool --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/ocpool/cmd/ocpool/commands"
	"github.com/imamik/ocpool/cmd/ocpool/handlers"
)

// Version information set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(handlers.ExitCode(err))
	}
}
