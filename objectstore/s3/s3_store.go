package s3

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/Kazzer/s3pi/objectstore"
)

// Client is the S3 API surface the store uses. It extends the manager
// upload client with HeadObject so a single mock covers both paths.
type Client interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Store implements objectstore.Store for Amazon S3.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	acl      types.ObjectCannedACL
}

type config struct {
	region    string
	endpoint  string
	pathStyle bool
	accessKey string
	secretKey string
	acl       string
}

// Option configures the store constructor.
type Option func(*config)

// WithRegion sets the AWS region. Defaults to the SDK's resolution order.
func WithRegion(region string) Option {
	return func(c *config) {
		c.region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint.
// pathStyle must be true for most non-AWS deployments (MinIO, LocalStack).
func WithEndpoint(url string, pathStyle bool) Option {
	return func(c *config) {
		c.endpoint = url
		c.pathStyle = pathStyle
	}
}

// WithStaticCredentials bypasses the SDK credential chain.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(c *config) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// WithACL sets a canned ACL applied to every uploaded object
// (e.g. "public-read" for website-hosted buckets).
func WithACL(acl string) Option {
	return func(c *config) {
		c.acl = acl
	}
}

// New creates an S3 store for bucket, resolving credentials and region
// through the SDK default chain unless overridden by options.
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if c.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(c.region))
	}
	if c.accessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.accessKey, c.secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
			o.UsePathStyle = c.pathStyle
		}
	})

	return NewFromClient(client, bucket, opts...), nil
}

// NewFromClient creates a store around an existing client. Only WithACL is
// honored here; connection options belong to the client.
func NewFromClient(client Client, bucket string, opts ...Option) *Store {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		acl:      types.ObjectCannedACL(c.acl),
	}
}

// Put writes an object at key. The content digest travels as object
// metadata so later runs can compare without refetching bodies.
func (s *Store) Put(ctx context.Context, key string, obj objectstore.Object) error {
	input := &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		ACL:               s.acl,
		ChecksumAlgorithm: types.ChecksumAlgorithmCrc32c,
		Metadata: map[string]string{
			objectstore.MetadataDigestKey: obj.Digest,
		},
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.ContentEncoding != "" {
		input.ContentEncoding = aws.String(obj.ContentEncoding)
	}

	if obj.Path != "" {
		f, err := os.Open(obj.Path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		input.Body = f
		_, err = s.uploader.Upload(ctx, input)
		return classify(err)
	}

	input.Body = bytes.NewReader(obj.Body)
	input.ContentLength = aws.Int64(obj.Size)
	_, err := s.client.PutObject(ctx, input)
	return classify(err)
}

// Head inspects the object at key. Missing objects map to
// objectstore.ErrNotExist.
func (s *Store) Head(ctx context.Context, key string) (*objectstore.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, objectstore.ErrNotExist
		}
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, objectstore.ErrNotExist
		}
		return nil, classify(err)
	}

	info := &objectstore.ObjectInfo{
		Digest: out.Metadata[objectstore.MetadataDigestKey],
	}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	return info, nil
}

// transientCodes are API error codes worth retrying. Everything else
// (AccessDenied, NoSuchBucket, signature errors) is permanent.
var transientCodes = map[string]struct{}{
	"RequestTimeout":      {},
	"SlowDown":            {},
	"Throttling":          {},
	"ThrottlingException": {},
	"InternalError":       {},
	"ServiceUnavailable":  {},
}

// classify flags retryable backend failures so the synchronizer's bounded
// retry only fires for them.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
			return objectstore.MarkTransient(err)
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return objectstore.MarkTransient(err)
		}
		return err
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		if code >= 500 || code == 408 || code == 429 {
			return objectstore.MarkTransient(err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return objectstore.MarkTransient(err)
	}

	return err
}
