// Package processor runs candidate records through validation, category resolution, matching
// and merging, one chunk at a time. Ingest, promote and reconcile are built on it.
package processor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/camellia/pkg/database"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/kafka"
	"github.com/Ramsey-B/camellia/pkg/matching"
	"github.com/Ramsey-B/camellia/pkg/metrics"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
	"github.com/Ramsey-B/camellia/pkg/report"
	"github.com/Ramsey-B/camellia/pkg/sources"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

const (
	DefaultChunkSize = 250
	DefaultPoolLimit = 500
)

// Store is the record store contract the pipeline needs.
type Store interface {
	FindCandidates(ctx context.Context, phone, city string, limit int) ([]models.Business, error)
	Get(ctx context.Context, id string) (*models.Business, error)
	Create(ctx context.Context, record models.Business) error
	Update(ctx context.Context, id string, patch models.BusinessPatch) error
}

// TxBeginner opens the per-chunk transaction. database.DB satisfies it.
type TxBeginner interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Publisher receives business events after a chunk commits.
type Publisher interface {
	PublishBusinessEvents(ctx context.Context, events []kafka.BusinessEvent) error
}

// CategoryResolver assigns taxonomy categories to raw labels.
type CategoryResolver interface {
	Resolve(raw string) models.Resolution
	RepairParent(res models.Resolution) models.Resolution
}

type Options struct {
	PoolLimit int
	// Publisher is optional; nil disables business events.
	Publisher Publisher
}

type RunOptions struct {
	Command   string
	Live      bool
	Limit     int
	ChunkSize int
	RunID     string
}

func (o RunOptions) mode() report.Mode {
	if o.Live {
		return report.ModeLive
	}
	return report.ModeDryRun
}

// Processor is the ingestion and promotion orchestrator.
type Processor struct {
	logger     ectologger.Logger
	store      Store
	tx         TxBeginner
	resolver   CategoryResolver
	engine     *matching.Engine
	normalizer *normalizers.Set
	poolLimit  int
	publisher  Publisher
}

func NewProcessor(
	logger ectologger.Logger,
	store Store,
	tx TxBeginner,
	resolver CategoryResolver,
	engine *matching.Engine,
	normalizer *normalizers.Set,
	options Options,
) *Processor {
	if options.PoolLimit <= 0 {
		options.PoolLimit = DefaultPoolLimit
	}
	if normalizer == nil {
		normalizer = normalizers.DefaultSet()
	}
	return &Processor{
		logger:     logger,
		store:      store,
		tx:         tx,
		resolver:   resolver,
		engine:     engine,
		normalizer: normalizer,
		poolLimit:  options.PoolLimit,
		publisher:  options.Publisher,
	}
}

// Run drains feed chunk by chunk. The returned error is non-nil only for fatal conditions, and
// the stats are returned either way. Per-record failures are counted in the stats.
func (p *Processor) Run(ctx context.Context, feed sources.Feed, opts RunOptions) (*report.Stats, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	stats := report.NewStats(opts.RunID, opts.Command, opts.mode())
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":  opts.RunID,
		"command": opts.Command,
		"mode":    opts.mode(),
	})

	if p.resolver == nil {
		return fail(stats, perrors.NewFatalError(perrors.FatalTaxonomy, nil, "category resolver is not initialized"))
	}
	if opts.Live && p.tx == nil {
		return fail(stats, perrors.NewFatalError(perrors.FatalConfig, nil, "live run without a transaction source"))
	}

	log.Info("Run started")

	var sh *shadow
	if !opts.Live {
		sh = newShadow()
	}

	read := 0
	for {
		if ctx.Err() != nil {
			stats.Finish(report.StopCancelled)
			break
		}

		want := opts.ChunkSize
		if opts.Limit > 0 {
			if read >= opts.Limit {
				stats.Finish(report.StopLimit)
				break
			}
			if remaining := opts.Limit - read; remaining < want {
				want = remaining
			}
		}

		items, err := feed.Next(ctx, want)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				stats.Finish(report.StopCancelled)
				break
			}
			log.WithError(err).Error("Failed to read from feed")
			return fail(stats, perrors.NewFatalError(perrors.FatalStore, err, "failed to read from feed"))
		}
		if len(items) == 0 {
			stats.Finish(report.StopDrained)
			break
		}
		read += len(items)

		p.processChunk(ctx, feed, items, opts, stats, sh)
	}

	log.WithFields(map[string]any{
		"processed": stats.Processed,
		"created":   stats.Created,
		"merged":    stats.Merged,
		"skipped":   stats.Skipped,
		"errored":   stats.Errored,
		"stopped":   stats.Stopped,
	}).Info("Run finished")

	return stats, nil
}

func fail(stats *report.Stats, fatal *perrors.FatalError) (*report.Stats, error) {
	stats.Fatal = fatal.Error()
	stats.Finish(report.StopFatal)
	return stats, fatal
}

func (p *Processor) processChunk(ctx context.Context, feed sources.Feed, items []sources.Item, opts RunOptions, stats *report.Stats, sh *shadow) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.processChunk", tracing.RunAttributes(opts.RunID, opts.Command, string(opts.mode()))...)
	defer span.End()
	span.SetAttributes(attribute.Int("camellia.chunk.items", len(items)))

	started := time.Now()
	stats.Chunks++

	decisions := p.decideChunk(ctx, items, sh)
	if sh != nil {
		sh.commit(decisions)
	}
	committed := false
	if opts.Live {
		committed = p.writeChunk(ctx, feed, decisions)
	}

	for i := range decisions {
		p.record(stats, opts, &decisions[i])
	}

	if committed {
		p.afterCommit(ctx, feed, decisions, opts)
	}

	metrics.ChunkDuration.WithLabelValues(opts.Command, string(opts.mode())).Observe(time.Since(started).Seconds())
}

func (p *Processor) record(stats *report.Stats, opts RunOptions, d *decision) {
	if d.key.Source != "" {
		stats.Sources.Add(d.key.Source)
	}
	if d.categorized {
		stats.RecordCategory(d.candidate.RawCategoryLabel, d.category)
		metrics.CategoryResolutionsTotal.WithLabelValues(string(d.category.Method)).Inc()
	}

	switch d.action {
	case actionSkip:
		stats.RecordSkip(d.skip)
		metrics.SkipsTotal.WithLabelValues(string(d.skip)).Inc()
	case actionError:
		stats.RecordError(string(d.err.Stage))
	case actionCreate:
		stats.RecordCreated()
	case actionMerge:
		stats.RecordMerged(*d.match, d.plan.Filled, d.plan.FieldsCommitted)
		metrics.MatchesTotal.WithLabelValues(string(d.match.Reason), string(d.match.Confidence)).Inc()
	}
	metrics.RecordsTotal.WithLabelValues(opts.Command, string(opts.mode()), d.action.String()).Inc()
}

// afterCommit hands committed outcomes back to feeds that wait for the commit and publishes
// business events. Neither can undo the chunk, so failures are only logged.
func (p *Processor) afterCommit(ctx context.Context, feed sources.Feed, decisions []decision, opts RunOptions) {
	if committer, ok := feed.(sources.Committer); ok {
		if err := committer.Committed(ctx, outcomes(decisions)); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to acknowledge committed chunk")
		}
	}

	if p.publisher == nil {
		return
	}
	events := businessEvents(decisions, opts.RunID)
	if len(events) == 0 {
		return
	}
	if err := p.publisher.PublishBusinessEvents(ctx, events); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("events", len(events)).Warn("Failed to publish business events")
	}
}
