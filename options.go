package s3pi

import "github.com/Kazzer/s3pi/internal/retry"

type options struct {
	logger      *Logger
	metrics     MetricsCollector
	retryPolicy retry.Policy
	concurrency int
	throttle    float64
}

// Option configures Publisher construction.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to keep the noop
// default.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics configures a metrics collector for monitoring the run.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &s3pi.BasicMetricsCollector{}
//	pub, _ := s3pi.New(cfg, store, s3pi.WithMetrics(metrics))
//	pub.Run(ctx, dir)
//	fmt.Printf("%+v\n", metrics.GetStats())
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRetryPolicy overrides the bounded retry policy applied to store
// calls. The default is 3 attempts with exponential jitter backoff.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		o.retryPolicy = p
	}
}

// WithConcurrency overrides the configuration file's bound on parallel
// artifact uploads.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}

// WithThrottle overrides the configuration file's cap on store requests
// per second. 0 disables throttling.
func WithThrottle(rps float64) Option {
	return func(o *options) {
		o.throttle = rps
	}
}
