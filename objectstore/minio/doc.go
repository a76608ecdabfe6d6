// Package minio provides a MinIO implementation of the objectstore.Store
// interface for S3-compatible deployments that are better served by the
// native client (MinIO, Ceph RGW).
//
// Semantics mirror the s3 package: the content digest travels as user
// metadata and missing keys map to objectstore.ErrNotExist.
package minio
