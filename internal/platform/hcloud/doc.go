// Package hcloud implements the stack backend on Hetzner Cloud.
//
// Hetzner Cloud has no notion of a stack, so one is modelled as the set of
// servers labeled ocpool.io/stack=<name>. The stack name doubles as its ID.
//
// # Status
//
// The status of a stack is derived from its servers on every call:
//
//   - no servers: the stack does not exist
//   - any server labeled ocpool.io/state=deleting: DELETE_IN_PROGRESS
//   - any server labeled ocpool.io/state=failed: CREATE_FAILED
//   - fewer servers than ocpool.io/expected, or any not running: CREATE_IN_PROGRESS
//   - otherwise: CREATE_COMPLETE
//
// # Outputs
//
// Each server contributes <instance>_public_ip, <instance>_name and
// <instance>_instance_type; the stack adds ocp_deployment_pqdn.
//
// Every API call passes through a token bucket limiter so that large stacks
// stay within the project's request budget. Server creation is retried with
// exponential backoff; invalid parameters fail immediately.
package hcloud
