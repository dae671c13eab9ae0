package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/camellia/internal/repositories/business"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/metrics"
	"github.com/Ramsey-B/camellia/pkg/processor"
	"github.com/Ramsey-B/camellia/pkg/report"
	"github.com/Ramsey-B/camellia/pkg/sources"
)

const pushTimeout = 10 * time.Second

type batchFlags struct {
	live         bool
	failOnErrors bool
	limit        int
	chunkSize    int
	taxonomyFile string
}

func (f *batchFlags) register(cmd *cobra.Command, records bool) {
	cmd.Flags().BoolVar(&f.live, "live", false, "write to the record store (default is a dry run)")
	cmd.Flags().BoolVar(&f.failOnErrors, "fail-on-errors", false, "exit 1 when any record failed")
	if !records {
		return
	}
	cmd.Flags().IntVar(&f.limit, "limit", 0, "stop after this many records (default RECORD_LIMIT)")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "records per transaction (default CHUNK_SIZE)")
	cmd.Flags().StringVar(&f.taxonomyFile, "taxonomy-file", "", "read the taxonomy from a YAML file instead of the store")
}

func (f *batchFlags) mode() report.Mode {
	if f.live {
		return report.ModeLive
	}
	return report.ModeDryRun
}

// batch runs one batch command end to end: dependencies, the live-run lock, the run itself,
// then the report and the metrics push.
func (c *cli) batch(cmd *cobra.Command, command string, flags *batchFlags, run func(ctx context.Context, runID string) (*report.Stats, error)) error {
	a := c.app
	ctx := cmd.Context()
	runID := uuid.NewString()
	log := a.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":  runID,
		"command": command,
		"mode":    flags.mode(),
	})

	stats, err := c.runLocked(ctx, runID, flags.live, run)
	if err != nil {
		log.WithError(err).Error("Run failed")
	}
	if stats == nil {
		fatal, ok := perrors.AsFatal(err)
		if !ok {
			fatal = perrors.NewFatalError(perrors.FatalConfig, err, "run failed")
		}
		stats = fatalStats(runID, command, flags.mode(), fatal)
	}

	c.finish(ctx, cmd, stats)
	return runResult(stats, err, flags.failOnErrors)
}

func (c *cli) runLocked(ctx context.Context, runID string, live bool, run func(ctx context.Context, runID string) (*report.Stats, error)) (*report.Stats, error) {
	a := c.app
	if err := a.connect(ctx, live); err != nil {
		return nil, err
	}
	if !live {
		return run(ctx, runID)
	}

	runCtx, release, err := a.lock(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer release()

	stats, err := run(runCtx, runID)
	if err == nil && runCtx.Err() != nil && ctx.Err() == nil {
		fatal := perrors.NewFatalError(perrors.FatalLock, context.Cause(runCtx), "run lock lost")
		if stats != nil {
			stats.Fatal = fatal.Error()
			stats.Stopped = report.StopFatal
		}
		return stats, fatal
	}
	return stats, err
}

// finish saves the report, prints its summary and pushes the run metrics.
func (c *cli) finish(ctx context.Context, cmd *cobra.Command, stats *report.Stats) {
	a := c.app
	log := a.logger.WithContext(ctx).WithField("run_id", stats.RunID)

	paths, err := report.Save(a.cfg.ReportDir, stats)
	if err != nil {
		log.WithError(err).Warn("Failed to save run report")
	} else {
		log.WithField("paths", paths).Info("Run report saved")
	}

	if err := report.WriteMarkdown(cmd.OutOrStdout(), stats); err != nil {
		log.WithError(err).Warn("Failed to print run report")
	}

	pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := metrics.Push(pushCtx, a.cfg.PushgatewayURL, "camellia_"+stats.Command, stats.RunID); err != nil {
		log.WithError(err).Warn("Failed to push run metrics")
	}
}

// process runs a feed through the ingestion pipeline.
func (c *cli) process(ctx context.Context, command, runID string, flags *batchFlags, feed sources.Feed) (*report.Stats, error) {
	a := c.app

	resolver, err := a.resolver(ctx, flags.taxonomyFile)
	if err != nil {
		return nil, err
	}

	options := processor.Options{PoolLimit: a.cfg.CandidatePoolLimit}
	if producer := a.publisher(); producer != nil && flags.live {
		options.Publisher = producer
	}

	limit := flags.limit
	if limit <= 0 {
		limit = a.cfg.RecordLimit
	}
	chunkSize := flags.chunkSize
	if chunkSize <= 0 {
		chunkSize = a.cfg.ChunkSize
	}

	p := processor.NewProcessor(
		a.logger,
		business.NewRepository(a.db(), a.logger),
		a.db(),
		resolver,
		a.engine(),
		a.normalizer(),
		options,
	)
	return p.Run(ctx, feed, processor.RunOptions{
		Command:   command,
		Live:      flags.live,
		Limit:     limit,
		ChunkSize: chunkSize,
		RunID:     runID,
	})
}
