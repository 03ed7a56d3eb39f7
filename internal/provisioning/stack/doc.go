// Package stack implements the stack orchestrator.
//
// A stack is a named group of hosts held by the orchestration backend. The
// [Orchestrator] renders and submits the stack body, waits for the backend
// to report CREATE_COMPLETE, registers the hosts in DNS, waits until every
// host is reachable and runs a best-effort key exchange. Deletion mirrors
// this: DNS records are removed and confirmed gone before the backend stack
// is deleted, and the management environment is removed last.
//
// Every wait is a bounded fixed-interval poll driven by an injected
// [retry.Sleeper]; exhausting a budget is a typed error, never a hang.
package stack
