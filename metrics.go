package s3pi

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus. It satisfies syncer.Metrics, so one collector observes the
// whole run.
type MetricsCollector interface {
	// RecordHead is called after each remote object inspection.
	RecordHead(duration time.Duration, err error)

	// RecordUpload is called after each upload completes (or fails for
	// good). bytes is the object size.
	RecordUpload(key string, bytes int64, duration time.Duration, err error)

	// RecordSkip is called for each object whose remote content already
	// matched.
	RecordSkip(key string)

	// RecordRetry is called for each transient failure that will be
	// retried.
	RecordRetry(key string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordHead(time.Duration, error)                  {}
func (NoopMetricsCollector) RecordUpload(string, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordSkip(string)                                {}
func (NoopMetricsCollector) RecordRetry(string)                               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and end-of-run logging without external
// dependencies.
type BasicMetricsCollector struct {
	HeadCount        atomic.Int64
	HeadErrors       atomic.Int64
	HeadTotalNanos   atomic.Int64
	UploadCount      atomic.Int64
	UploadErrors     atomic.Int64
	UploadBytes      atomic.Int64
	UploadTotalNanos atomic.Int64
	SkipCount        atomic.Int64
	RetryCount       atomic.Int64
}

// RecordHead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHead(duration time.Duration, err error) {
	b.HeadCount.Add(1)
	b.HeadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.HeadErrors.Add(1)
	}
}

// RecordUpload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpload(key string, bytes int64, duration time.Duration, err error) {
	b.UploadCount.Add(1)
	b.UploadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UploadErrors.Add(1)
		return
	}
	b.UploadBytes.Add(bytes)
}

// RecordSkip implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkip(string) {
	b.SkipCount.Add(1)
}

// RecordRetry implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetry(string) {
	b.RetryCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		HeadCount:    b.HeadCount.Load(),
		HeadErrors:   b.HeadErrors.Load(),
		HeadAvgNanos: avg(b.HeadTotalNanos.Load(), b.HeadCount.Load()),
		UploadCount:  b.UploadCount.Load(),
		UploadErrors: b.UploadErrors.Load(),
		UploadBytes:  b.UploadBytes.Load(),
		SkipCount:    b.SkipCount.Load(),
		RetryCount:   b.RetryCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	HeadCount    int64
	HeadErrors   int64
	HeadAvgNanos int64
	UploadCount  int64
	UploadErrors int64
	UploadBytes  int64
	SkipCount    int64
	RetryCount   int64
}
