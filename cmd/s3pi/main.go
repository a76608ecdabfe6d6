// Command s3pi publishes a directory of Python distribution artifacts to
// an S3-hosted simple package index.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Kazzer/s3pi"
	"github.com/Kazzer/s3pi/config"
	"github.com/Kazzer/s3pi/objectstore"
	miniostore "github.com/Kazzer/s3pi/objectstore/minio"
	s3store "github.com/Kazzer/s3pi/objectstore/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "s3pi: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath  string
	region      string
	reportPath  string
	dryRun      bool
	verbose     bool
	jsonLogs    bool
	concurrency int
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "s3pi <dist-dir>",
		Short: "Publish Python distribution artifacts to an S3-hosted package index",
		Long: `s3pi scans a directory for Python distribution artifacts (wheels,
sdists), regenerates the simple package index pages, and synchronizes
everything to the configured bucket. Unchanged objects are skipped, so
re-running is always safe.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "configuration file (default ~/.s3pi/config, then /etc/s3pi/config)")
	cmd.Flags().StringVar(&flags.region, "region", "", "override the configured bucket region")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "classify objects but write nothing")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "override parallel artifact uploads")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "write a YAML run report to this path")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging")
	cmd.Flags().BoolVar(&flags.jsonLogs, "json", false, "log in JSON format")

	return cmd
}

func run(ctx context.Context, dir string, flags cliFlags) error {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	var logger *s3pi.Logger
	if flags.jsonLogs {
		logger = s3pi.NewJSONLogger(level)
	} else {
		logger = s3pi.NewTextLogger(level)
	}

	runID := uuid.NewString()
	logger = logger.WithRunID(runID)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return &s3pi.StageError{Stage: s3pi.StageConfiguration, Err: err}
	}
	if flags.region != "" {
		cfg.Region = flags.region
	}
	if flags.dryRun {
		cfg.Upload = false
	}
	if flags.concurrency > 0 {
		cfg.Concurrency = flags.concurrency
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return &s3pi.StageError{Stage: s3pi.StageConfiguration, Err: err}
	}

	metrics := &s3pi.BasicMetricsCollector{}
	pub, err := s3pi.New(cfg, store, s3pi.WithLogger(logger), s3pi.WithMetrics(metrics))
	if err != nil {
		return &s3pi.StageError{Stage: s3pi.StageConfiguration, Err: err}
	}

	summary, err := pub.Run(ctx, dir)
	if err != nil {
		return err
	}

	if flags.reportPath != "" {
		report := s3pi.NewReport(runID, cfg.Bucket, cfg.Prefix, summary)
		if err := s3pi.WriteReport(flags.reportPath, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	stats := metrics.GetStats()
	logger.Info("run finished",
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"bytes", stats.UploadBytes,
		"retries", stats.RetryCount,
		"dry_run", summary.DryRun,
	)
	return nil
}

// newStore picks the adapter the configuration asks for.
func newStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.Driver {
	case "minio":
		if cfg.Endpoint == "" {
			return nil, errors.New("s3.driver=minio requires s3.endpoint")
		}
		return miniostore.New(cfg.Endpoint, cfg.Bucket, cfg.AccessKey, cfg.SecretKey)
	default:
		opts := []s3store.Option{s3store.WithRegion(cfg.Region)}
		if cfg.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(cfg.Endpoint, cfg.PathStyle))
		}
		if cfg.AccessKey != "" {
			opts = append(opts, s3store.WithStaticCredentials(cfg.AccessKey, cfg.SecretKey))
		}
		if cfg.ACL != "" {
			opts = append(opts, s3store.WithACL(cfg.ACL))
		}
		return s3store.New(ctx, cfg.Bucket, opts...)
	}
}
