// Package s3 provides a small object client for S3 and S3-compatible stores.
//
// It backs the remote state backend: snapshots are stored as single objects
// under a key prefix in a bucket the user provides.
package s3
