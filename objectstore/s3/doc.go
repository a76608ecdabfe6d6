// Package s3 provides an Amazon S3 implementation of the objectstore.Store
// interface.
//
// The store records the content digest as object metadata on upload and
// reads it back via HeadObject, so the synchronizer can skip unchanged
// objects without fetching bodies. File-backed objects are streamed through
// the s3/manager uploader; in-memory objects use a plain PutObject. CRC32C
// checksums validate transport integrity on every write.
//
// Custom endpoints and path-style addressing are supported for S3-compatible
// deployments (MinIO, LocalStack):
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithEndpoint("http://localhost:9000", true),
//	    s3.WithStaticCredentials(accessKey, secretKey),
//	)
package s3
