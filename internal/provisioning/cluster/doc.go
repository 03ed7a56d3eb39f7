// Package cluster turns a provisioned stack into a running platform.
//
// A Cluster is a stack plus its hosts classified by node type. Create
// provisions the stack and then runs Deploy, which drives two strictly
// sequential configuration phases:
//
//  1. pre_install registers every host with the subscription service and
//     prepares it for the chosen platform version
//  2. install runs from the first master and brings up the platform
//
// A phase exiting non-zero stops the deploy with a *provisioning.PhaseError;
// the cluster is left as-is for inspection. Progress is recorded in the
// .metadata file of the stack's management environment.
package cluster
