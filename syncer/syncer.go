package syncer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Kazzer/s3pi/internal/retry"
	"github.com/Kazzer/s3pi/objectstore"
)

// StorageError indicates the object store failed after the retry budget
// was exhausted (or immediately, for permanent failures).
//
// The original underlying error can be accessed via errors.Unwrap.
type StorageError struct {
	Key      string
	Attempts int
	cause    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure on %q after %d attempt(s): %v", e.Key, e.Attempts, e.cause)
}

func (e *StorageError) Unwrap() error { return e.cause }

// Action is the per-object sync decision.
type Action string

const (
	// ActionCreate means no object exists at the key yet.
	ActionCreate Action = "create"
	// ActionUpdate means the remote content differs.
	ActionUpdate Action = "update"
	// ActionSkip means the remote content already matches.
	ActionSkip Action = "skip"
)

// Item is one object to publish at a key.
type Item struct {
	Key    string
	Object objectstore.Object
}

// Batch is the full set of objects for one run, split by upload phase.
// Artifacts go first (in parallel), then package index pages, then the
// root index as the final write.
type Batch struct {
	Artifacts      []Item
	PackageIndexes []Item
	RootIndex      Item
}

// Outcome records what happened to a single key.
type Outcome struct {
	Key      string
	Action   Action
	Attempts int
}

// Summary aggregates a run's outcomes.
type Summary struct {
	DryRun   bool
	Created  int
	Updated  int
	Skipped  int
	Bytes    int64
	Duration time.Duration
	Outcomes []Outcome
}

func (s *Summary) record(o Outcome, bytes int64) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Action {
	case ActionCreate:
		s.Created++
		s.Bytes += bytes
	case ActionUpdate:
		s.Updated++
		s.Bytes += bytes
	case ActionSkip:
		s.Skipped++
	}
}

// Metrics receives per-call observations. The root package's collectors
// satisfy this interface.
type Metrics interface {
	RecordHead(duration time.Duration, err error)
	RecordUpload(key string, bytes int64, duration time.Duration, err error)
	RecordSkip(key string)
	RecordRetry(key string)
}

type noopMetrics struct{}

func (noopMetrics) RecordHead(time.Duration, error)                  {}
func (noopMetrics) RecordUpload(string, int64, time.Duration, error) {}
func (noopMetrics) RecordSkip(string)                                {}
func (noopMetrics) RecordRetry(string)                               {}

// Syncer publishes batches to an object store.
type Syncer struct {
	store       objectstore.Store
	logger      *slog.Logger
	metrics     Metrics
	policy      retry.Policy
	limiter     *rate.Limiter
	dryRun      bool
	concurrency int
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the structured logger. Default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Syncer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRetryPolicy overrides the default bounded retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Syncer) {
		s.policy = p
	}
}

// WithDryRun classifies every object but issues no writes.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// WithConcurrency bounds parallel artifact uploads. Values below 1 fall
// back to the default of 4.
func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n >= 1 {
			s.concurrency = n
		}
	}
}

// WithThrottle caps store requests per second; 0 disables the limiter.
func WithThrottle(rps float64) Option {
	return func(s *Syncer) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a Syncer publishing through store.
func New(store objectstore.Store, opts ...Option) *Syncer {
	s := &Syncer{
		store:       store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:     noopMetrics{},
		policy:      retry.DefaultPolicy(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync publishes the batch. Artifacts upload in parallel; index pages are
// only written once every artifact is confirmed, with the root index last.
// The first post-retry failure aborts the run.
func (s *Syncer) Sync(ctx context.Context, batch *Batch) (*Summary, error) {
	start := time.Now()
	summary := &Summary{DryRun: s.dryRun}

	outcomes := make([]Outcome, len(batch.Artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mu sync.Mutex
	for i, item := range batch.Artifacts {
		i, item := i, item
		g.Go(func() error {
			outcome, err := s.syncObject(gctx, item)
			if err != nil {
				return err
			}
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		summary.Duration = time.Since(start)
		return summary, err
	}

	for i, item := range batch.Artifacts {
		summary.record(outcomes[i], item.Object.Size)
	}

	for _, item := range batch.PackageIndexes {
		outcome, err := s.syncObject(ctx, item)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		summary.record(outcome, item.Object.Size)
	}

	outcome, err := s.syncObject(ctx, batch.RootIndex)
	if err != nil {
		summary.Duration = time.Since(start)
		return summary, err
	}
	summary.record(outcome, batch.RootIndex.Object.Size)

	summary.Duration = time.Since(start)
	s.logger.InfoContext(ctx, "sync finished",
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"bytes", summary.Bytes,
		"dry_run", summary.DryRun,
	)
	return summary, nil
}

func (s *Syncer) syncObject(ctx context.Context, item Item) (Outcome, error) {
	action, err := s.decide(ctx, item)
	if err != nil {
		return Outcome{}, err
	}

	if action == ActionSkip {
		s.metrics.RecordSkip(item.Key)
		s.logger.DebugContext(ctx, "object unchanged", "key", item.Key)
		return Outcome{Key: item.Key, Action: ActionSkip}, nil
	}

	if s.dryRun {
		s.logger.InfoContext(ctx, "dry run: would upload",
			"key", item.Key,
			"action", string(action),
			"bytes", item.Object.Size,
		)
		return Outcome{Key: item.Key, Action: action}, nil
	}

	start := time.Now()
	attempts, err := s.policy.Do(ctx, objectstore.IsTransient, func(ctx context.Context) error {
		if err := s.wait(ctx); err != nil {
			return err
		}
		putErr := s.store.Put(ctx, item.Key, item.Object)
		if putErr != nil && objectstore.IsTransient(putErr) {
			s.metrics.RecordRetry(item.Key)
		}
		return putErr
	})
	s.metrics.RecordUpload(item.Key, item.Object.Size, time.Since(start), err)
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		return Outcome{}, &StorageError{Key: item.Key, Attempts: attempts, cause: err}
	}

	s.logger.InfoContext(ctx, "uploaded",
		"key", item.Key,
		"action", string(action),
		"bytes", item.Object.Size,
		"attempts", attempts,
	)
	return Outcome{Key: item.Key, Action: action, Attempts: attempts}, nil
}

// decide classifies an object as create, update or skip by inspecting the
// remote key.
func (s *Syncer) decide(ctx context.Context, item Item) (Action, error) {
	var info *objectstore.ObjectInfo

	start := time.Now()
	attempts, err := s.policy.Do(ctx, objectstore.IsTransient, func(ctx context.Context) error {
		if err := s.wait(ctx); err != nil {
			return err
		}
		var headErr error
		info, headErr = s.store.Head(ctx, item.Key)
		return headErr
	})
	s.metrics.RecordHead(time.Since(start), err)

	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			return ActionCreate, nil
		}
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", &StorageError{Key: item.Key, Attempts: attempts, cause: err}
	}

	if info.Digest != "" {
		if info.Digest == item.Object.Digest {
			return ActionSkip, nil
		}
		return ActionUpdate, nil
	}

	// No digest recorded remotely: the object was published by another
	// tool. Fall back to comparing the single-part ETag against the local
	// MD5.
	localMD5, err := md5Of(item.Object)
	if err != nil {
		return "", &StorageError{Key: item.Key, Attempts: attempts, cause: err}
	}
	if localMD5 == info.ETag {
		return ActionSkip, nil
	}
	return ActionUpdate, nil
}

func (s *Syncer) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func md5Of(obj objectstore.Object) (string, error) {
	r, err := obj.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
