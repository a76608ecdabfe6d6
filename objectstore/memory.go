package objectstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"
)

// MemoryStore is an in-memory Store implementation for testing and dry-run
// exercises. It records every call so tests can assert on write counts and
// upload ordering. Thread-safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	putKeys  []string
	headKeys []string
}

type memoryObject struct {
	body   []byte
	digest string
	etag   string
}

// NewMemoryStore creates a new in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
	}
}

// Put writes an object, recording the key in call order.
func (m *MemoryStore) Put(_ context.Context, key string, obj Object) error {
	r, err := obj.Open()
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	// S3 single-part semantics: ETag is the hex MD5 of the body.
	sum := md5.Sum(body)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		body:   body,
		digest: obj.Digest,
		etag:   hex.EncodeToString(sum[:]),
	}
	m.putKeys = append(m.putKeys, key)
	return nil
}

// Head inspects an object, recording the key in call order.
func (m *MemoryStore) Head(_ context.Context, key string) (*ObjectInfo, error) {
	m.mu.Lock()
	m.headKeys = append(m.headKeys, key)
	obj, ok := m.objects[key]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotExist
	}
	return &ObjectInfo{
		Digest: obj.digest,
		ETag:   obj.etag,
		Size:   int64(len(obj.body)),
	}, nil
}

// Seed places an object directly into the store without recording a Put,
// optionally clearing its digest to simulate objects published by other
// tools.
func (m *MemoryStore) Seed(key string, body []byte, digest string) {
	sum := md5.Sum(body)

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(body))
	copy(copied, body)
	m.objects[key] = memoryObject{
		body:   copied,
		digest: digest,
		etag:   hex.EncodeToString(sum[:]),
	}
}

// Get returns the stored body for key, or nil if absent.
func (m *MemoryStore) Get(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil
	}
	copied := make([]byte, len(obj.body))
	copy(copied, obj.body)
	return copied
}

// PutKeys returns the keys written so far, in call order.
func (m *MemoryStore) PutKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.putKeys...)
}

// HeadKeys returns the keys inspected so far, in call order.
func (m *MemoryStore) HeadKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.headKeys...)
}
