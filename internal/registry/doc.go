// Package registry persists the pool registry, the ordered list of cluster
// names a pool manages.
//
// Three stores are available, selected by registry.backend:
//
//   - file: a YAML document {clusters: [{name: ...}]} on local disk
//   - sqlite: a single-table SQLite database
//   - s3: the same document as JSON in an S3-compatible bucket
//
// A store that has never been written to loads as an empty registry.
package registry
