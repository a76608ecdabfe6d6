package minio

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Kazzer/s3pi/objectstore"
)

// Store implements objectstore.Store for MinIO and other S3-compatible
// object stores.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates a MinIO store for bucket at the given endpoint URL.
// Scheme selects TLS; empty credentials fall back to the environment.
func New(endpoint, bucket, accessKey, secretKey string) (*Store, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	var creds *credentials.Credentials
	if accessKey != "" {
		creds = credentials.NewStaticV4(accessKey, secretKey, "")
	} else {
		creds = credentials.NewEnvMinio()
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  creds,
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, err
	}

	return NewFromClient(client, bucket), nil
}

// NewFromClient creates a store around an existing client.
func NewFromClient(client *minio.Client, bucket string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
	}
}

// Put writes an object at key with the digest recorded as user metadata.
func (s *Store) Put(ctx context.Context, key string, obj objectstore.Object) error {
	opts := minio.PutObjectOptions{
		ContentType:     obj.ContentType,
		ContentEncoding: obj.ContentEncoding,
		UserMetadata: map[string]string{
			objectstore.MetadataDigestKey: obj.Digest,
		},
	}

	if obj.Path != "" {
		f, err := os.Open(obj.Path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		_, err = s.client.PutObject(ctx, s.bucket, key, f, obj.Size, opts)
		return classify(err)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.Body), obj.Size, opts)
	return classify(err)
}

// Head inspects the object at key.
func (s *Store) Head(ctx context.Context, key string) (*objectstore.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, objectstore.ErrNotExist
		}
		return nil, classify(err)
	}

	return &objectstore.ObjectInfo{
		Digest: digestFromMetadata(info.UserMetadata),
		ETag:   strings.Trim(info.ETag, `"`),
		Size:   info.Size,
	}, nil
}

// digestFromMetadata tolerates the header canonicalization minio applies to
// user metadata keys.
func digestFromMetadata(meta map[string]string) string {
	for k, v := range meta {
		if strings.EqualFold(k, objectstore.MetadataDigestKey) {
			return v
		}
	}
	return ""
}

// classify flags retryable MinIO failures for the synchronizer's bounded
// retry.
func classify(err error) error {
	if err == nil {
		return nil
	}

	errResp := minio.ToErrorResponse(err)
	switch errResp.Code {
	case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
		return objectstore.MarkTransient(err)
	}
	if errResp.StatusCode >= 500 || errResp.StatusCode == 429 {
		return objectstore.MarkTransient(err)
	}
	return err
}
