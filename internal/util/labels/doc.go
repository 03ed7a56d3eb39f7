// Package labels provides the label keys that group backend servers into stacks.
//
// All labels use the ocpool.io domain prefix. A stack is the set of servers
// carrying the same [KeyStack] value.
package labels
