package main

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/camellia/config"
	"github.com/Ramsey-B/camellia/internal/repositories/category"
	"github.com/Ramsey-B/camellia/pkg/categories"
	"github.com/Ramsey-B/camellia/pkg/database"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/kafka"
	"github.com/Ramsey-B/camellia/pkg/logging"
	"github.com/Ramsey-B/camellia/pkg/matching"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
	"github.com/Ramsey-B/camellia/pkg/redis"
	"github.com/Ramsey-B/camellia/pkg/startup"
	"github.com/Ramsey-B/camellia/pkg/tracing"
	"github.com/Ramsey-B/camellia/pkg/tracing/exporters"
)

const (
	runLockKey      = "live-run"
	shutdownTimeout = 10 * time.Second
)

// app is the process-wide state shared by every command: configuration, the root logger and
// the external dependencies a command asked for.
type app struct {
	cfg    *config.Config
	logger ectologger.Logger

	flush           func() error
	shutdownTracing func(context.Context) error

	startup  *startup.Startup
	postgres *postgresDependency
	redis    *redisDependency
	producer *kafka.Producer
}

func newApp(ctx context.Context, envFiles ...string) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, perrors.NewFatalError(perrors.FatalConfig, err, "failed to load configuration")
	}

	logger, flush, err := logging.New(logging.Options{
		AppName: cfg.AppName,
		Level:   cfg.LogLevel,
		Pretty:  cfg.PrettyLogs,
	})
	if err != nil {
		return nil, perrors.NewFatalError(perrors.FatalConfig, err, "failed to build logger")
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.AppName, exporters.DefaultOTLPConfig(cfg.OTLPEndpoint, cfg.OTLPProtocol))
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}

	return &app{
		cfg:             cfg,
		logger:          logger,
		flush:           flush,
		shutdownTracing: shutdownTracing,
		startup:         startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}, nil
}

// connect starts Postgres, and Redis when it is configured and wanted.
func (a *app) connect(ctx context.Context, withRedis bool) error {
	a.postgres = &postgresDependency{cfg: a.cfg, logger: a.logger}
	a.startup.AddDependency(a.postgres)

	if withRedis && a.cfg.RedisEnabled() {
		a.redis = &redisDependency{cfg: a.cfg, logger: a.logger}
		a.startup.AddDependency(a.redis)
	}

	if err := a.startup.Start(ctx); err != nil {
		return perrors.NewFatalError(perrors.FatalStore, err, "failed to start dependencies")
	}
	return nil
}

func (a *app) db() database.DB {
	if a.postgres == nil {
		return nil
	}
	return a.postgres.db
}

func (a *app) redisClient() *redis.Client {
	if a.redis == nil {
		return nil
	}
	return a.redis.client
}

// resolver builds the category resolver from the stored taxonomy, or from a taxonomy file when
// one is given.
func (a *app) resolver(ctx context.Context, taxonomyFile string) (*categories.Resolver, error) {
	var nodes []models.Category
	var err error
	if taxonomyFile != "" {
		nodes, err = categories.LoadTaxonomyFile(taxonomyFile)
	} else {
		nodes, err = category.NewRepository(a.db(), a.logger).GetTaxonomy(ctx)
	}
	if err != nil {
		return nil, perrors.NewFatalError(perrors.FatalTaxonomy, err, "failed to load taxonomy")
	}

	taxonomy, err := categories.NewTaxonomy(nodes, a.cfg.CategoryFallbackSlug)
	if err != nil {
		return nil, perrors.NewFatalError(perrors.FatalTaxonomy, err, "invalid taxonomy")
	}

	table, err := categories.LoadMappingTable(a.cfg.CategoryMappingPath)
	if err != nil {
		return nil, perrors.NewFatalError(perrors.FatalConfig, err, "failed to load category mapping table")
	}

	resolver := categories.NewResolver(taxonomy, table, categories.Options{
		SubSlugTrueParent: a.cfg.CategorySubSlugTrueParent,
	})
	for _, warning := range resolver.Warnings() {
		a.logger.WithContext(ctx).Warn(warning)
	}
	a.logger.WithContext(ctx).WithFields(map[string]any{
		"categories": taxonomy.Len(),
		"mappings":   len(table.Mappings),
	}).Info("Category resolver ready")
	return resolver, nil
}

func (a *app) engine() *matching.Engine {
	return matching.NewEngine(matching.Thresholds{
		Name:    a.cfg.MatchNameThreshold,
		Address: a.cfg.MatchAddressThreshold,
		NameZip: a.cfg.MatchNameZipThreshold,
	})
}

func (a *app) normalizer() *normalizers.Set {
	return normalizers.NewSet(a.cfg.DefaultCountryCode, a.cfg.DefaultRegion)
}

// publisher returns the business events producer, or nil when events are disabled.
func (a *app) publisher() *kafka.Producer {
	if !a.cfg.KafkaEventsEnabled {
		return nil
	}
	if a.producer == nil {
		a.producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      a.cfg.KafkaBrokers,
			Topic:        a.cfg.KafkaEventsTopic,
			BatchSize:    a.cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeoutMS) * time.Millisecond,
			RequiredAcks: a.cfg.KafkaRequiredAcks,
			Compression:  a.cfg.KafkaCompression,
		}, a.logger)
	}
	return a.producer
}

// lock takes the live-run lock when Redis is configured. The returned context is cancelled if
// the lock is lost; release must be called when the run ends.
func (a *app) lock(ctx context.Context, runID string) (context.Context, func(), error) {
	client := a.redisClient()
	if client == nil {
		return ctx, func() {}, nil
	}

	held, err := redis.NewLocker(client, "").Acquire(ctx, runLockKey, runID, a.cfg.RunLockTTL)
	if err != nil {
		return ctx, func() {}, perrors.NewFatalError(perrors.FatalLock, err, "another live run holds the lock")
	}

	runCtx, cancel := context.WithCancel(ctx)
	runCtx = held.KeepAlive(runCtx)
	release := func() {
		cancel()
		releaseCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := held.Release(releaseCtx); err != nil {
			a.logger.WithError(err).WithField("key", held.Key()).Warn("Failed to release run lock")
		}
	}
	return runCtx, release, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close event producer")
		}
	}
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to stop dependencies")
	}
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to flush traces")
	}
	_ = a.flush()
}
