// Package s3pi maintains a pip-installable simple package index on an S3
// bucket configured for static website hosting.
//
// A run is a one-shot synchronization pass: scan a local directory for
// distribution artifacts, render the index pages, and reconcile everything
// against the bucket. Synchronization is idempotent — unchanged content is
// detected by digest and skipped, so re-running after an interrupt is
// always safe.
//
// # Quick Start
//
//	cfg, _ := config.Load("")
//	store, _ := s3.New(ctx, cfg.Bucket, s3.WithRegion(cfg.Region))
//
//	pub, _ := s3pi.New(cfg, store)
//	summary, err := pub.Run(ctx, "./dist")
//
// The cmd/s3pi command wraps this flow in a CLI:
//
//	s3pi ./dist --config ~/.s3pi/config
//
// # Storage Backends
//
// The synchronizer only needs the two-method objectstore.Store interface;
// objectstore/s3 and objectstore/minio adapt the AWS SDK and the MinIO
// client, and objectstore.MemoryStore serves tests.
package s3pi
