// Package s3 provides a small client for S3-compatible object storage.
//
// It is used by the s3 registry store to keep the pool document in a bucket.
// Hetzner Object Storage, AWS S3 and MinIO are supported; the latter needs
// path-style addressing.
package s3
