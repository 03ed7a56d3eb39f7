// Package pool tracks the clusters managed by this process.
//
// The Manager is the single entry point for creating and deleting clusters.
// Its in-memory list mirrors the persisted registry: every create and delete
// writes the full name list back to the Store before returning.
package pool
