// Package async runs independent lookups concurrently.
//
// [Map] applies a function to every item with bounded concurrency and
// returns the results in input order. It backs the per-cluster status
// lookups of the list command and the pool API.
package async
