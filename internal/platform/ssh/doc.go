// Package ssh runs commands on stack hosts over SSH.
//
// Clients dial on demand with bounded retries, authenticate with the private
// key from the config and skip host key verification by default: stack hosts
// are recreated with fresh keys on every provisioning.
package ssh
