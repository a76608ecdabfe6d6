package s3pi

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/Kazzer/s3pi/config"
	"github.com/Kazzer/s3pi/dist"
	"github.com/Kazzer/s3pi/index"
	"github.com/Kazzer/s3pi/objectstore"
	"github.com/Kazzer/s3pi/syncer"
)

const htmlContentType = "text/html; charset=utf-8"

// Publisher runs the scan → index → sync pipeline against one bucket.
type Publisher struct {
	cfg    *config.Config
	logger *Logger
	syncer *syncer.Syncer
}

// New creates a Publisher for the given configuration and store.
func New(cfg *config.Config, store objectstore.Store, optFns ...Option) (*Publisher, error) {
	if cfg == nil {
		return nil, errors.New("nil configuration")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("configuration has no bucket")
	}
	if store == nil {
		return nil, errors.New("nil object store")
	}

	opts := options{
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		concurrency: cfg.Concurrency,
		throttle:    cfg.Throttle,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	syncOpts := []syncer.Option{
		syncer.WithLogger(opts.logger.Logger),
		syncer.WithMetrics(opts.metrics),
		syncer.WithDryRun(!cfg.Upload),
		syncer.WithConcurrency(opts.concurrency),
		syncer.WithThrottle(opts.throttle),
	}
	if opts.retryPolicy.MaxAttempts > 0 {
		syncOpts = append(syncOpts, syncer.WithRetryPolicy(opts.retryPolicy))
	}

	return &Publisher{
		cfg:    cfg,
		logger: opts.logger.WithBucket(cfg.Bucket, cfg.Prefix),
		syncer: syncer.New(store, syncOpts...),
	}, nil
}

// Run synchronizes the distribution directory dir with the bucket and
// returns a summary of what changed. Failures are tagged with the pipeline
// stage they came from.
func (p *Publisher) Run(ctx context.Context, dir string) (*syncer.Summary, error) {
	artifacts, err := dist.Scan(dir)
	if err != nil {
		p.logger.LogScan(ctx, dir, 0, 0, err)
		return nil, stageErr(StageScan, err)
	}

	idx := index.Build(p.cfg.Prefix, artifacts)
	p.logger.LogScan(ctx, dir, len(artifacts), len(idx.Packages), nil)

	batch, err := p.materialize(artifacts, idx)
	if err != nil {
		return nil, stageErr(StageIndex, err)
	}

	summary, err := p.syncer.Sync(ctx, batch)
	p.logger.LogSync(ctx, summaryCount(summary, syncer.ActionCreate), summaryCount(summary, syncer.ActionUpdate), summaryCount(summary, syncer.ActionSkip), summary != nil && summary.DryRun, err)
	if err != nil {
		return summary, stageErr(StageSync, err)
	}
	return summary, nil
}

// materialize turns scanned artifacts and rendered pages into the upload
// batch, computing each object's digest.
func (p *Publisher) materialize(artifacts []dist.Artifact, idx *index.Index) (*syncer.Batch, error) {
	batch := &syncer.Batch{}

	for _, a := range artifacts {
		obj, err := objectstore.FromFile(a.Path, a.ContentType())
		if err != nil {
			return nil, fmt.Errorf("materialize %s: %w", a.Filename, err)
		}
		batch.Artifacts = append(batch.Artifacts, syncer.Item{
			Key:    index.ArtifactKey(p.cfg.Prefix, a),
			Object: obj,
		})
	}

	for _, page := range idx.Packages {
		obj, err := p.pageObject(page)
		if err != nil {
			return nil, err
		}
		batch.PackageIndexes = append(batch.PackageIndexes, syncer.Item{Key: page.Key, Object: obj})
	}

	rootObj, err := p.pageObject(idx.Root)
	if err != nil {
		return nil, err
	}
	batch.RootIndex = syncer.Item{Key: idx.Root.Key, Object: rootObj}

	return batch, nil
}

func (p *Publisher) pageObject(page index.Page) (objectstore.Object, error) {
	if !p.cfg.Compress {
		return objectstore.FromBytes(page.HTML, htmlContentType), nil
	}

	compressed, err := gzipBytes(page.HTML)
	if err != nil {
		return objectstore.Object{}, fmt.Errorf("compress %s: %w", page.Key, err)
	}

	obj := objectstore.FromBytes(compressed, htmlContentType)
	obj.ContentEncoding = "gzip"
	return obj, nil
}

// gzipBytes compresses deterministically: no name, no mod time, fixed
// level, so identical pages keep identical digests across runs.
func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summaryCount(s *syncer.Summary, action syncer.Action) int {
	if s == nil {
		return 0
	}
	switch action {
	case syncer.ActionCreate:
		return s.Created
	case syncer.ActionUpdate:
		return s.Updated
	case syncer.ActionSkip:
		return s.Skipped
	default:
		return 0
	}
}
