// Package retry provides the waiting primitives used by the orchestrators.
//
// [Poll] is a bounded fixed-interval loop: it evaluates a condition a fixed
// number of times with a constant delay between attempts and fails with
// [ErrExhausted] when the budget runs out. [WithExponentialBackoff] retries
// transient API failures with growing delays. Both take a [Sleeper] so tests
// can run them without real delays.
package retry
