package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazzer/s3pi/internal/retry"
	"github.com/Kazzer/s3pi/objectstore"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func testBatch() *Batch {
	return &Batch{
		Artifacts: []Item{
			{Key: "simple/foo/foo-1.0.tar.gz", Object: objectstore.FromBytes([]byte("foo sdist"), "application/gzip")},
			{Key: "simple/foo/Foo_1.1.whl", Object: objectstore.FromBytes([]byte("foo wheel"), "application/zip")},
			{Key: "simple/bar/bar-2.0.whl", Object: objectstore.FromBytes([]byte("bar wheel"), "application/zip")},
		},
		PackageIndexes: []Item{
			{Key: "simple/bar/index.html", Object: objectstore.FromBytes([]byte("<html>bar</html>"), "text/html; charset=utf-8")},
			{Key: "simple/foo/index.html", Object: objectstore.FromBytes([]byte("<html>foo</html>"), "text/html; charset=utf-8")},
		},
		RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html>root</html>"), "text/html; charset=utf-8")},
	}
}

func TestSync_FreshBucket(t *testing.T) {
	store := objectstore.NewMemoryStore()
	s := New(store, WithRetryPolicy(fastPolicy()))

	summary, err := s.Sync(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Created)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, summary.Skipped)
	assert.Len(t, store.PutKeys(), 6)
}

func TestSync_Idempotent(t *testing.T) {
	store := objectstore.NewMemoryStore()
	s := New(store, WithRetryPolicy(fastPolicy()))

	_, err := s.Sync(context.Background(), testBatch())
	require.NoError(t, err)
	firstPuts := len(store.PutKeys())

	// Second run over unchanged inputs issues zero writes.
	summary, err := s.Sync(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Skipped)
	assert.Zero(t, summary.Created)
	assert.Len(t, store.PutKeys(), firstPuts)
}

func TestSync_SkipOnDigestMatch(t *testing.T) {
	store := objectstore.NewMemoryStore()
	obj := objectstore.FromBytes([]byte("foo sdist"), "application/gzip")
	store.Seed("simple/foo/foo-1.0.tar.gz", []byte("foo sdist"), obj.Digest)

	s := New(store, WithRetryPolicy(fastPolicy()))
	batch := &Batch{
		Artifacts: []Item{{Key: "simple/foo/foo-1.0.tar.gz", Object: obj}},
		RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
	}

	summary, err := s.Sync(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	// Only the root index was written.
	assert.Equal(t, []string{"simple/index.html"}, store.PutKeys())
}

func TestSync_ETagFallback(t *testing.T) {
	t.Run("MatchingBodySkips", func(t *testing.T) {
		store := objectstore.NewMemoryStore()
		// Object published by another tool: no digest metadata.
		store.Seed("simple/foo/foo-1.0.tar.gz", []byte("foo sdist"), "")

		s := New(store, WithRetryPolicy(fastPolicy()))
		batch := &Batch{
			Artifacts: []Item{{Key: "simple/foo/foo-1.0.tar.gz", Object: objectstore.FromBytes([]byte("foo sdist"), "application/gzip")}},
			RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
		}

		summary, err := s.Sync(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.NotContains(t, store.PutKeys(), "simple/foo/foo-1.0.tar.gz")
	})

	t.Run("DifferingBodyUpdates", func(t *testing.T) {
		store := objectstore.NewMemoryStore()
		store.Seed("simple/foo/foo-1.0.tar.gz", []byte("stale"), "")

		s := New(store, WithRetryPolicy(fastPolicy()))
		batch := &Batch{
			Artifacts: []Item{{Key: "simple/foo/foo-1.0.tar.gz", Object: objectstore.FromBytes([]byte("foo sdist"), "application/gzip")}},
			RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
		}

		summary, err := s.Sync(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Updated)
		assert.Contains(t, store.PutKeys(), "simple/foo/foo-1.0.tar.gz")
	})
}

func TestSync_DryRun(t *testing.T) {
	store := objectstore.NewMemoryStore()
	s := New(store, WithRetryPolicy(fastPolicy()), WithDryRun(true))

	summary, err := s.Sync(context.Background(), testBatch())
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 6, summary.Created, "dry run still classifies objects")
	assert.Empty(t, store.PutKeys(), "dry run issues zero writes")
	assert.NotEmpty(t, store.HeadKeys(), "dry run still reads")
}

func TestSync_Ordering(t *testing.T) {
	store := objectstore.NewMemoryStore()
	s := New(store, WithRetryPolicy(fastPolicy()), WithConcurrency(2))

	_, err := s.Sync(context.Background(), testBatch())
	require.NoError(t, err)

	puts := store.PutKeys()
	require.Len(t, puts, 6)

	indexOf := func(key string) int {
		for i, k := range puts {
			if k == key {
				return i
			}
		}
		t.Fatalf("key %s never written", key)
		return -1
	}

	// Every artifact lands before the first index page, and the root index
	// is the final write.
	firstIndex := indexOf("simple/bar/index.html")
	for _, key := range []string{"simple/foo/foo-1.0.tar.gz", "simple/foo/Foo_1.1.whl", "simple/bar/bar-2.0.whl"} {
		assert.Less(t, indexOf(key), firstIndex)
	}
	assert.Equal(t, len(puts)-1, indexOf("simple/index.html"))
}

// flakyStore fails the first N Puts with a transient error.
type flakyStore struct {
	*objectstore.MemoryStore

	mu       sync.Mutex
	failures int
	putCalls int
}

func (f *flakyStore) Put(ctx context.Context, key string, obj objectstore.Object) error {
	f.mu.Lock()
	f.putCalls++
	calls := f.putCalls
	f.mu.Unlock()

	if calls <= f.failures {
		return objectstore.MarkTransient(errors.New("503 service unavailable"))
	}
	return f.MemoryStore.Put(ctx, key, obj)
}

func TestSync_TransientRetry(t *testing.T) {
	store := &flakyStore{MemoryStore: objectstore.NewMemoryStore(), failures: 2}
	s := New(store, WithRetryPolicy(fastPolicy()))

	batch := &Batch{
		RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
	}

	summary, err := s.Sync(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, 3, summary.Outcomes[0].Attempts)
	assert.Equal(t, []string{"simple/index.html"}, store.PutKeys())
}

func TestSync_TransientExhaustion(t *testing.T) {
	store := &flakyStore{MemoryStore: objectstore.NewMemoryStore(), failures: 10}
	s := New(store, WithRetryPolicy(fastPolicy()))

	batch := &Batch{
		RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
	}

	_, err := s.Sync(context.Background(), batch)
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "simple/index.html", storageErr.Key)
	assert.Equal(t, 3, storageErr.Attempts)
}

// deniedStore fails every Put with a permanent error.
type deniedStore struct {
	*objectstore.MemoryStore

	mu       sync.Mutex
	putCalls int
}

func (d *deniedStore) Put(ctx context.Context, key string, obj objectstore.Object) error {
	d.mu.Lock()
	d.putCalls++
	d.mu.Unlock()
	return errors.New("403 access denied")
}

func TestSync_PermanentFailsImmediately(t *testing.T) {
	store := &deniedStore{MemoryStore: objectstore.NewMemoryStore()}
	s := New(store, WithRetryPolicy(fastPolicy()))

	batch := &Batch{
		RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
	}

	_, err := s.Sync(context.Background(), batch)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 1, storageErr.Attempts)
	assert.Equal(t, 1, store.putCalls)
}

func TestSync_AbortsBeforeIndexes(t *testing.T) {
	store := &deniedStore{MemoryStore: objectstore.NewMemoryStore()}
	s := New(store, WithRetryPolicy(fastPolicy()))

	_, err := s.Sync(context.Background(), testBatch())
	require.Error(t, err)

	// No index page may be written when an artifact upload failed.
	for _, key := range store.PutKeys() {
		assert.NotContains(t, key, "index.html")
	}
}

func TestSync_Canceled(t *testing.T) {
	store := objectstore.NewMemoryStore()
	s := New(store, WithRetryPolicy(fastPolicy()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sync(ctx, testBatch())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSync_Throttled(t *testing.T) {
	store := objectstore.NewMemoryStore()
	s := New(store, WithRetryPolicy(fastPolicy()), WithThrottle(1000))

	summary, err := s.Sync(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Created)
}

type countingMetrics struct {
	mu      sync.Mutex
	heads   int
	uploads int
	skips   int
	retries int
}

func (c *countingMetrics) RecordHead(time.Duration, error) {
	c.mu.Lock()
	c.heads++
	c.mu.Unlock()
}

func (c *countingMetrics) RecordUpload(string, int64, time.Duration, error) {
	c.mu.Lock()
	c.uploads++
	c.mu.Unlock()
}

func (c *countingMetrics) RecordSkip(string) {
	c.mu.Lock()
	c.skips++
	c.mu.Unlock()
}

func (c *countingMetrics) RecordRetry(string) {
	c.mu.Lock()
	c.retries++
	c.mu.Unlock()
}

func TestSync_Metrics(t *testing.T) {
	store := &flakyStore{MemoryStore: objectstore.NewMemoryStore(), failures: 1}
	metrics := &countingMetrics{}
	s := New(store, WithRetryPolicy(fastPolicy()), WithMetrics(metrics))

	batch := &Batch{
		RootIndex: Item{Key: "simple/index.html", Object: objectstore.FromBytes([]byte("<html></html>"), "text/html; charset=utf-8")},
	}

	_, err := s.Sync(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.heads)
	assert.Equal(t, 1, metrics.uploads)
	assert.Equal(t, 1, metrics.retries)
	assert.Zero(t, metrics.skips)
}
