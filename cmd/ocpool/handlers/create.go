package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/ocpool/internal/provisioning"
)

// Create handles the create command.
//
// It provisions the stack of a cluster, registers its hosts in DNS and
// prints their names. The cluster is not deployed and not added to the
// registry.
func Create(ctx context.Context, g Global, name, nodeTypes string) (err error) {
	if err := provisioning.ValidateStackName(name); err != nil {
		return err
	}
	types, err := parseNodeTypes(nodeTypes)
	if err != nil {
		return err
	}

	rt, err := newRuntime(g, runtimeOptions{stackName: name, exclusive: true})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()

	exists, err := rt.stacks.IsStack(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: cluster with the given name %q already exists", provisioning.ErrStackAlreadyExists, name)
	}

	fmt.Fprintf(stdout, "Creating stack %s.\n", name)
	st, err := rt.stacks.Create(ctx, name, rt.clusters.GenNodeNames(types), types)
	if err != nil {
		return fmt.Errorf("failed to create stack %s: %w", name, err)
	}
	instances, err := st.Instances(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	printSuccess(stdout, "Stack has successfully created.")
	rule(stdout)
	for _, inst := range instances {
		fmt.Fprintln(stdout, inst.FQDN)
	}
	rule(stdout)
	if kerr := st.KeyExchangeError(); kerr != nil {
		printWarning(stdout, "Key exchange failed: %v", kerr)
	}
	return nil
}
