package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/cluster"
)

// Commands run on the deployer after a successful deploy.
const (
	ocVersionCommand  = "oc version"
	ocGetNodesCommand = "oc get nodes"
)

// Deploy handles the deploy command.
//
// It validates the version, creates the cluster through the pool so the
// registry records it, and prints the platform version and node list as
// reported by the deployer.
func Deploy(ctx context.Context, g Global, name, nodeTypes, version string) (err error) {
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

	if err := rt.cfg.Deploy.CheckVersion(version); err != nil {
		return err
	}

	exists, err := rt.stacks.IsStack(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: cluster with the given name %q already exists", provisioning.ErrStackAlreadyExists, name)
	}

	manager, err := rt.pool(ctx)
	if err != nil {
		return err
	}
	if err := manager.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load cluster pool: %w", err)
	}

	fmt.Fprintf(stdout, "Deploying cluster %s (version %s).\n", name, version)
	cl, err := manager.CreateCluster(ctx, name, version, types)
	if err != nil {
		return fmt.Errorf("failed to deploy cluster %s: %w", name, err)
	}

	printSuccess(stdout, "Openshift cluster has successfully deployed.")
	rule(stdout)
	reportDeployer(ctx, cl)
	rule(stdout)
	return nil
}

// reportDeployer prints the output of oc on the deployer. Failures are only
// reported.
func reportDeployer(ctx context.Context, cl *cluster.Cluster) {
	node := cl.Deployer()
	if node == nil {
		printWarning(stdout, "No deployer node found")
		return
	}
	sess, err := node.Instance.Session()
	if err != nil {
		printWarning(stdout, "Cannot connect to %s: %v", node.Instance.FQDN, err)
		return
	}

	out, err := sess.Execute(ctx, ocVersionCommand)
	if err != nil {
		printWarning(stdout, "%s failed on %s: %v", ocVersionCommand, node.Instance.FQDN, err)
	} else {
		fmt.Fprintln(stdout, strings.TrimRight(out, "\n"))
	}

	fmt.Fprintln(stdout, titleStyle.Render("Nodes:"))
	out, err = sess.Execute(ctx, ocGetNodesCommand)
	if err != nil {
		printWarning(stdout, "%s failed on %s: %v", ocGetNodesCommand, node.Instance.FQDN, err)
		return
	}
	fmt.Fprintln(stdout, strings.TrimRight(out, "\n"))
}
