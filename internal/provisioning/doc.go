// Package provisioning provides the shared types, collaborator interfaces,
// typed errors and observability used by the stack and cluster orchestrators.
//
// # Subpackages
//
//   - stack: StackOrchestrator, backend stack lifecycle, DNS registration, key exchange
//   - cluster: ClusterOrchestrator, node classification, pre-install and install phases
//
// # Collaborators
//
// [Backend], [DNSUpdater], [Prober], [KeyExchanger] and [ConfigRunner] are
// the narrow interfaces the orchestrators drive. Production implementations
// live under internal/platform, in-memory fakes under internal/testing.
package provisioning
