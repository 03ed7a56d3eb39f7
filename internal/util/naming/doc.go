// Package naming provides the naming conventions shared by the backend,
// the DNS batches and the cluster orchestrator.
//
// Instance names follow {prefix}-{type}-{n}. Host FQDNs are
// {instance}.{deployment}.{zone}; the short name of a host is the first
// dot-separated label of its FQDN.
package naming
