package processor

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/kafka"
	"github.com/Ramsey-B/camellia/pkg/matching"
	"github.com/Ramsey-B/camellia/pkg/merging"
	"github.com/Ramsey-B/camellia/pkg/metrics"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
	"github.com/Ramsey-B/camellia/pkg/report"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

const (
	reconcileCommand = "reconcile"
	// nearMissSimilarity is the name edit similarity above which a non-matching pair is reported.
	nearMissSimilarity = 0.8
)

// ReconcileStore is what the re-dedupe pass reads and writes.
type ReconcileStore interface {
	ListCities(ctx context.Context) ([]string, error)
	ListCanonicalByCity(ctx context.Context, city string) ([]models.Business, error)
	Update(ctx context.Context, id string, patch models.BusinessPatch) error
}

type ReconcileOptions struct {
	Live  bool
	City  string
	RunID string
}

// Reconciler re-runs matching across committed records of a city, joining near-duplicates that
// were created in the same chunk and so never saw each other.
type Reconciler struct {
	logger    ectologger.Logger
	store     ReconcileStore
	tx        TxBeginner
	engine    *matching.Engine
	publisher Publisher
}

func NewReconciler(logger ectologger.Logger, store ReconcileStore, tx TxBeginner, engine *matching.Engine, publisher Publisher) *Reconciler {
	return &Reconciler{
		logger:    logger,
		store:     store,
		tx:        tx,
		engine:    engine,
		publisher: publisher,
	}
}

// link is one record joined into an earlier cluster. root is the root as stored.
type link struct {
	child  models.Business
	root   models.Business
	match  models.Match
	absorb merging.MergePlan
	err    error
}

func (r *Reconciler) Run(ctx context.Context, opts ReconcileOptions) (*report.Stats, error) {
	mode := report.ModeDryRun
	if opts.Live {
		mode = report.ModeLive
	}
	stats := report.NewStats(opts.RunID, reconcileCommand, mode)
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": opts.RunID,
		"mode":   mode,
	})

	if opts.Live && r.tx == nil {
		return fail(stats, perrors.NewFatalError(perrors.FatalConfig, nil, "live run without a transaction source"))
	}

	cities := []string{opts.City}
	if opts.City == "" {
		var err error
		cities, err = r.store.ListCities(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to list cities")
			return fail(stats, perrors.NewFatalError(perrors.FatalStore, err, "failed to list cities"))
		}
	}

	for _, city := range cities {
		if ctx.Err() != nil {
			stats.Finish(report.StopCancelled)
			return stats, nil
		}
		r.reconcileCity(ctx, city, opts, stats)
	}
	stats.Finish(report.StopDrained)

	log.WithFields(map[string]any{
		"cities":    len(cities),
		"processed": stats.Processed,
		"linked":    stats.Linked,
		"errored":   stats.Errored,
	}).Info("Reconcile finished")
	return stats, nil
}

func (r *Reconciler) reconcileCity(ctx context.Context, city string, opts ReconcileOptions, stats *report.Stats) {
	ctx, span := tracing.StartSpan(ctx, "processor.Reconciler.reconcileCity",
		append(tracing.RunAttributes(opts.RunID, reconcileCommand, string(stats.Mode)), attribute.String("camellia.city", city))...)
	defer span.End()

	started := time.Now()
	stats.Chunks++
	log := r.logger.WithContext(ctx).WithField("city", city)

	records, err := r.store.ListCanonicalByCity(ctx, city)
	if err != nil {
		log.WithError(err).Warn("Failed to list city records")
		tracing.Fail(span, err)
		stats.RecordError(string(perrors.StageLookup))
		return
	}

	links, misses := r.plan(records)
	for _, miss := range misses {
		stats.RecordNearMiss(miss)
	}
	if opts.Live && len(links) > 0 {
		r.write(ctx, links)
	}

	for _, l := range links {
		if l.err != nil {
			stats.RecordError(string(perrors.StageWrite))
			continue
		}
		stats.RecordLinked(l.match, l.absorb.Filled)
		metrics.MatchesTotal.WithLabelValues(string(l.match.Reason), string(l.match.Confidence)).Inc()
	}
	for i := 0; i < len(records)-len(links); i++ {
		stats.RecordKept()
	}

	if opts.Live && r.publisher != nil {
		r.publish(ctx, links, opts.RunID)
	}

	log.WithFields(map[string]any{
		"records": len(records),
		"links":   len(links),
	}).Debug("City reconciled")
	metrics.ChunkDuration.WithLabelValues(reconcileCommand, string(stats.Mode)).Observe(time.Since(started).Seconds())
}

// plan walks records in store order. Each record is compared with the earlier roots that share
// one of its blocking keys, oldest first; the first match links it, otherwise it becomes a root
// and its closest look-alike, if any, is a near miss.
func (r *Reconciler) plan(records []models.Business) ([]*link, []report.NearMiss) {
	var roots, stored []models.Business
	blocks := map[string][]int{}
	var links []*link
	var misses []report.NearMiss

	for _, record := range records {
		candidate := matching.AsCandidate(record)
		keys := blockingKeys(record)

		seen := map[int]bool{}
		var indexes []int
		for _, key := range keys {
			for _, idx := range blocks[key] {
				if !seen[idx] {
					seen[idx] = true
					indexes = append(indexes, idx)
				}
			}
		}
		sort.Ints(indexes)

		linked := false
		var miss *report.NearMiss
		for _, idx := range indexes {
			match, ok := r.engine.Evaluate(candidate, roots[idx])
			if !ok {
				if m, near := nearMiss(record, roots[idx]); near && (miss == nil || m.EditScore > miss.EditScore) {
					miss = &m
				}
				continue
			}
			absorb := merging.Absorb(roots[idx], record)
			links = append(links, &link{child: record, root: stored[idx], match: match, absorb: absorb})
			roots[idx] = absorb.Result
			linked = true
			break
		}
		if linked {
			continue
		}
		if miss != nil {
			misses = append(misses, *miss)
		}

		roots = append(roots, record)
		stored = append(stored, record)
		for _, key := range keys {
			blocks[key] = append(blocks[key], len(roots)-1)
		}
	}
	return links, misses
}

func nearMiss(record, root models.Business) (report.NearMiss, bool) {
	name, rootName := displayName(record), displayName(root)
	if name == "" || rootName == "" {
		return report.NearMiss{}, false
	}
	edit := matching.Levenshtein(name, rootName)
	if edit < nearMissSimilarity {
		return report.NearMiss{}, false
	}
	return report.NearMiss{
		BusinessID: record.ID,
		RootID:     root.ID,
		Name:       name,
		RootName:   rootName,
		EditScore:  edit,
		NameScore:  matching.NameSimilarity(name, rootName),
	}, true
}

func displayName(b models.Business) string {
	if en := models.StringValue(b.NameEn); en != "" {
		return en
	}
	return b.NameKo
}

// blockingKeys covers every match rule: phone, street number for the address rules and the
// English phonetic key for the postal code rule.
func blockingKeys(b models.Business) []string {
	var keys []string
	if phone := models.StringValue(b.PhoneNormalized); phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	if address := models.StringValue(b.AddressNormalized); address != "" {
		if number, ok := normalizers.StreetNumber(address); ok {
			keys = append(keys, "street:"+number)
		} else {
			keys = append(keys, "address:"+address)
		}
	}
	if key := matching.PhoneticKey(models.StringValue(b.NameEn)); key != "" {
		keys = append(keys, "name:"+key)
	}
	return keys
}

// write applies a city's links in one transaction. A link whose writes fail is rolled back
// alone; a later link into the same root is planned again from what was written.
func (r *Reconciler) write(ctx context.Context, links []*link) {
	log := r.logger.WithContext(ctx)

	chunk, err := beginChunk(ctx, r.tx)
	if err != nil {
		log.WithError(err).Error("Failed to begin reconcile transaction")
		failLinks(links, err)
		return
	}

	written := map[string]models.Business{}
	for _, l := range links {
		root := l.root
		if current, ok := written[root.ID]; ok {
			root = current
		}
		absorb := merging.Absorb(root, l.child)

		stepErr, broken := chunk.step(func(txCtx context.Context) error {
			if patch := merging.Link(root, l.child); !patch.IsEmpty() {
				if err := r.store.Update(txCtx, l.child.ID, patch); err != nil {
					return err
				}
			}
			if absorb.Changed() {
				return r.store.Update(txCtx, root.ID, absorb.Patch)
			}
			return nil
		})
		if broken != nil {
			log.WithError(broken).Error("Reconcile transaction is unusable, rolling back")
			chunk.rollback()
			failLinks(links, broken)
			return
		}
		if stepErr != nil {
			l.err = perrors.NewRecordError(l.child.ID, perrors.StageWrite, stepErr)
			log.WithError(stepErr).WithField("business_id", l.child.ID).Warn("Failed to link record")
			continue
		}
		l.absorb = absorb
		written[root.ID] = absorb.Result
	}

	if err := chunk.commit(); err != nil {
		log.WithError(err).Error("Failed to commit reconcile transaction")
		failLinks(links, err)
	}
}

func failLinks(links []*link, cause error) {
	for _, l := range links {
		if l.err == nil {
			l.err = perrors.NewRecordError(l.child.ID, perrors.StageWrite, cause)
		}
	}
}

func (r *Reconciler) publish(ctx context.Context, links []*link, runID string) {
	now := time.Now().UTC()
	var events []kafka.BusinessEvent
	for _, l := range links {
		if l.err != nil {
			continue
		}
		event := kafka.BusinessEvent{
			EventType:    kafka.EventBusinessLinked,
			BusinessID:   l.child.ID,
			ClusterID:    l.absorb.Result.ID,
			MatchReason:  string(l.match.Reason),
			Confidence:   string(l.match.Confidence),
			FieldsFilled: l.absorb.Filled,
			QualityScore: l.absorb.Result.QualityScore,
			RunID:        runID,
			Timestamp:    now,
		}
		if len(l.child.SourceKeys) > 0 {
			event.Source = l.child.SourceKeys[0].Source
			event.SourceUID = l.child.SourceKeys[0].UID
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return
	}
	if err := r.publisher.PublishBusinessEvents(ctx, events); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("events", len(events)).Warn("Failed to publish link events")
	}
}
