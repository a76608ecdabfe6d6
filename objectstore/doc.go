// Package objectstore provides the storage abstraction the synchronizer
// publishes through.
//
// Store is the narrow capability set any backend must expose: write an
// object and inspect an existing one. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory store for tests and dry runs
//   - s3.Store: Amazon S3 via aws-sdk-go-v2
//   - minio.Store: MinIO and other S3-compatible deployments
//
// # Custom Implementations
//
// Implement the Store interface to support additional backends:
//
//	type Store interface {
//	    Put(ctx, key, obj) error           // Write an object
//	    Head(ctx, key) (*ObjectInfo, error) // Inspect an object
//	}
//
// Head must return an error satisfying errors.Is(err, ErrNotExist) for
// missing keys so the synchronizer can distinguish "create" from "update".
package objectstore
