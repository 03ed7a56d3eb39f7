package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/ocpool/internal/provisioning"
)

// Delete handles the delete command.
//
// Without force it asks for confirmation, and refuses when stdin is not a
// terminal. A cluster tracked by the pool is deleted through it. Any other
// cluster, including one the pool failed to reload, is deleted directly and
// its name dropped from the stored registry.
func Delete(ctx context.Context, g Global, name string, force bool) (err error) {
	if err := provisioning.ValidateStackName(name); err != nil {
		return err
	}
	if !force && !isTerminal() {
		return UsageError(fmt.Errorf("refusing to delete cluster %s without confirmation, use -f", name))
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

	manager, err := rt.pool(ctx)
	if err != nil {
		return err
	}
	if rerr := manager.Reload(ctx); rerr != nil {
		provisioning.LogWarning(rt.observer, "pool", "pool not loaded, deleting against the stored registry", rerr)
	}

	cl, tracked := manager.Get(name)
	if !tracked {
		if cl, err = rt.clusters.Get(ctx, name); err != nil {
			return fmt.Errorf("failed to load cluster %s: %w", name, err)
		}
	}

	if !force {
		ok, err := confirm(fmt.Sprintf("Are you sure you want to delete cluster %s?", name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Canceling operation.")
			return nil
		}
	}

	if tracked {
		err = manager.DeleteCluster(ctx, cl)
	} else {
		err = manager.DeleteUntracked(ctx, cl)
	}
	if err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", name, err)
	}

	fmt.Fprintln(stdout)
	printSuccess(stdout, "Cluster %s has been successfully deleted.", name)
	return nil
}
