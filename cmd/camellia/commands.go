package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/camellia/internal/repositories/business"
	"github.com/Ramsey-B/camellia/internal/repositories/stagedlisting"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/kafka"
	"github.com/Ramsey-B/camellia/pkg/processor"
	"github.com/Ramsey-B/camellia/pkg/report"
	"github.com/Ramsey-B/camellia/pkg/sources"
)

const feedIdleTimeout = 10 * time.Second

func (c *cli) ingestCommand() *cobra.Command {
	flags := &batchFlags{}
	var fromKafka bool

	cmd := &cobra.Command{
		Use:   "ingest [file.ndjson]",
		Short: "Match and merge crawled listings from an NDJSON file or the candidate topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromKafka == (len(args) == 1) {
				return &exitError{code: exitFatal, err: errors.New("give either an NDJSON file or --kafka")}
			}
			return c.batch(cmd, "ingest", flags, func(ctx context.Context, runID string) (*report.Stats, error) {
				feed, closeFeed, err := c.ingestFeed(args, fromKafka)
				if err != nil {
					return nil, perrors.NewFatalError(perrors.FatalConfig, err, "failed to open feed")
				}
				defer closeFeed()
				return c.process(ctx, "ingest", runID, flags, feed)
			})
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&fromKafka, "kafka", false, "read from KAFKA_FEED_TOPIC until it goes idle")
	return cmd
}

func (c *cli) ingestFeed(args []string, fromKafka bool) (sources.Feed, func(), error) {
	a := c.app
	if fromKafka {
		feed := kafka.NewFeed(kafka.FeedConfig{
			Brokers:       a.cfg.KafkaBrokers,
			Topic:         a.cfg.KafkaFeedTopic,
			ConsumerGroup: a.cfg.KafkaConsumerGroup,
			IdleTimeout:   feedIdleTimeout,
		}, a.logger)
		return feed, func() {
			if err := feed.Close(); err != nil {
				a.logger.WithError(err).Warn("Failed to close candidate feed")
			}
		}, nil
	}

	feed, err := sources.OpenFileFeed(args[0])
	if err != nil {
		return nil, nil, err
	}
	return feed, func() { _ = feed.Close() }, nil
}

func (c *cli) promoteCommand() *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote pending staged listings into business records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.batch(cmd, "promote", flags, func(ctx context.Context, runID string) (*report.Stats, error) {
				a := c.app
				feed := stagedlisting.NewFeed(stagedlisting.NewRepository(a.db(), a.logger))
				return c.process(ctx, "promote", runID, flags, feed)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (c *cli) reconcileCommand() *cobra.Command {
	flags := &batchFlags{}
	var city string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-match committed records city by city and link duplicates into one cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.batch(cmd, "reconcile", flags, func(ctx context.Context, runID string) (*report.Stats, error) {
				a := c.app

				var publisher processor.Publisher
				if producer := a.publisher(); producer != nil && flags.live {
					publisher = producer
				}

				reconciler := processor.NewReconciler(
					a.logger,
					business.NewRepository(a.db(), a.logger),
					a.db(),
					a.engine(),
					publisher,
				)
				return reconciler.Run(ctx, processor.ReconcileOptions{
					Live:  flags.live,
					City:  a.normalizer().City(city),
					RunID: runID,
				})
			})
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringVar(&city, "city", "", "reconcile one city only")
	return cmd
}
