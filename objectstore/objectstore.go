package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// MetadataDigestKey is the object metadata key under which implementations
// persist the content digest on upload and report it back from Head.
const MetadataDigestKey = "digest"

// ErrNotExist is returned by Head when no object exists at the given key.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotExist)`.
var ErrNotExist = errors.New("object does not exist")

// Store is the capability set the synchronizer depends on.
type Store interface {
	// Put writes an object at key, replacing any existing object.
	Put(ctx context.Context, key string, obj Object) error

	// Head inspects the object at key without fetching its body.
	// Returns ErrNotExist if no object is present.
	Head(ctx context.Context, key string) (*ObjectInfo, error)
}

// Object is content ready for upload. Exactly one of Body or Path is set:
// index pages are built in memory, distribution files stay on disk and are
// streamed from Path.
type Object struct {
	// Body is the in-memory content. Nil when Path is set.
	Body []byte

	// Path is the local file backing the content. Empty when Body is set.
	Path string

	// Size is the content length in bytes.
	Size int64

	// ContentType is the MIME type stored with the object.
	ContentType string

	// ContentEncoding is the encoding stored with the object (e.g. "gzip").
	ContentEncoding string

	// Digest is the lowercase hex SHA-256 of the content as uploaded.
	Digest string
}

// ObjectInfo describes an existing remote object.
type ObjectInfo struct {
	// Digest is the content digest recorded at upload time, or empty if the
	// object was published by a tool that does not record one.
	Digest string

	// ETag is the backend's entity tag with surrounding quotes stripped.
	ETag string

	// Size is the content length in bytes.
	Size int64
}

// Open returns a reader over the object content.
func (o Object) Open() (io.ReadCloser, error) {
	if o.Path != "" {
		return os.Open(o.Path)
	}
	return io.NopCloser(bytes.NewReader(o.Body)), nil
}

// FromBytes builds an in-memory Object, computing its digest.
func FromBytes(body []byte, contentType string) Object {
	sum := sha256.Sum256(body)
	return Object{
		Body:        body,
		Size:        int64(len(body)),
		ContentType: contentType,
		Digest:      hex.EncodeToString(sum[:]),
	}
}

// FromFile builds a file-backed Object, streaming the file once to compute
// its digest and size.
func FromFile(path, contentType string) (Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return Object{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Object{}, fmt.Errorf("digest %s: %w", path, err)
	}

	return Object{
		Path:        path,
		Size:        size,
		ContentType: contentType,
		Digest:      hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// transient is implemented by errors that are safe to retry.
type transient interface {
	Transient() bool
}

type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Transient() bool { return true }

// MarkTransient wraps err so that IsTransient reports true for it.
// Store implementations use this to flag retryable backend failures
// (timeouts, throttling, 5xx responses).
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or any error it wraps) has been flagged
// as retryable.
func IsTransient(err error) bool {
	var t transient
	return errors.As(err, &t) && t.Transient()
}
