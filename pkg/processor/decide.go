package processor

import (
	"context"
	"fmt"

	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/merging"
	"github.com/Ramsey-B/camellia/pkg/metrics"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/sources"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

type action int

const (
	actionSkip action = iota
	actionError
	actionCreate
	actionMerge
)

func (a action) String() string {
	switch a {
	case actionSkip:
		return "skipped"
	case actionError:
		return "errored"
	case actionCreate:
		return "created"
	case actionMerge:
		return "merged"
	}
	return "unknown"
}

// decision is what the pipeline concluded for one feed item.
type decision struct {
	item        sources.Item
	key         models.SourceKey
	candidate   models.Candidate
	category    models.Resolution
	categorized bool

	action action
	skip   models.SkipReason
	err    *perrors.RecordError
	match  *models.Match
	// target is the new record for a create and the merged cluster root for a merge.
	target models.Business
	plan   merging.MergePlan
}

func (d *decision) sourceID() string {
	if d.key.UID != "" {
		return d.key.String()
	}
	if d.key.Source != "" {
		return d.key.Source + "@" + d.item.Ref
	}
	return d.item.Ref
}

func (d *decision) fail(stage perrors.Stage, cause error) {
	d.action = actionError
	d.err = perrors.NewRecordError(d.sourceID(), stage, cause)
}

func (d *decision) outcome() sources.Outcome {
	o := sources.Outcome{Item: d.item}
	switch d.action {
	case actionSkip:
		o.Status = models.StagedSkipped
		o.Detail = string(d.skip)
	case actionError:
		o.Status = models.StagedError
		o.Detail = d.err.Error()
	case actionCreate:
		o.Status = models.StagedPromoted
		o.BusinessID = d.target.ID
		o.Detail = "created"
	case actionMerge:
		o.Status = models.StagedPromoted
		o.BusinessID = d.target.ID
		o.Detail = "merged:" + string(d.match.Reason)
	}
	return o
}

func outcomes(decisions []decision) []sources.Outcome {
	out := make([]sources.Outcome, len(decisions))
	for i := range decisions {
		out[i] = decisions[i].outcome()
	}
	return out
}

// decideChunk runs the decision pipeline over a chunk in feed order. Merges into the same record
// accumulate in the overlay so later items see them. Records created earlier in the chunk are
// not in the store yet and cannot be matched. In a dry run sh stands in for earlier chunks'
// writes; it is nil in a live run.
func (p *Processor) decideChunk(ctx context.Context, items []sources.Item, sh *shadow) []decision {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.decideChunk")
	defer span.End()

	overlay := map[string]models.Business{}
	decisions := make([]decision, len(items))
	for i := range items {
		decisions[i] = p.decide(ctx, items[i], overlay, sh)
		p.logDecision(ctx, &decisions[i])
	}
	return decisions
}

func (p *Processor) decide(ctx context.Context, item sources.Item, overlay map[string]models.Business, sh *shadow) (d decision) {
	d = decision{item: item}
	if item.Envelope != nil {
		d.key.Source = item.Envelope.Source
	}
	if item.Err != nil || item.Record == nil {
		cause := item.Err
		if cause == nil {
			cause = fmt.Errorf("empty feed item")
		}
		d.fail(perrors.StageDecode, cause)
		return d
	}
	d.key = item.Record.SourceID()

	stage := perrors.StageNormalize
	defer func() {
		if r := recover(); r != nil {
			d.fail(stage, fmt.Errorf("panic: %v", r))
		}
	}()

	d.candidate = item.Record.Candidate(p.normalizer)
	if reason := d.candidate.Validate(); reason != "" {
		d.action = actionSkip
		d.skip = reason
		return d
	}

	stage = perrors.StageCategory
	d.category = p.resolver.RepairParent(p.resolver.Resolve(d.candidate.RawCategoryLabel))
	d.categorized = true

	stage = perrors.StageLookup
	pool, err := p.store.FindCandidates(ctx, d.candidate.PhoneNormalized, d.candidate.City, p.poolLimit)
	if err != nil {
		d.fail(stage, err)
		return d
	}
	pool = sh.pool(pool, d.candidate.PhoneNormalized, d.candidate.City, p.poolLimit)
	metrics.CandidatePoolSize.Observe(float64(len(pool)))
	for i := range pool {
		if merged, ok := overlay[pool[i].ID]; ok {
			pool[i] = merged
		}
	}

	stage = perrors.StageMatch
	match := p.engine.FindMatch(d.candidate, pool)
	if match == nil {
		d.action = actionCreate
		d.target = merging.NewBusiness(d.candidate, d.category)
		return d
	}

	var matched models.Business
	for i := range pool {
		if pool[i].ID == match.BusinessID {
			matched = pool[i]
			break
		}
	}

	stage = perrors.StageLookup
	root, err := merging.ResolveCluster(ctx, matched, p.lookup(overlay, sh))
	if err != nil {
		d.fail(stage, err)
		return d
	}

	d.action = actionMerge
	d.match = match
	d.plan = merging.PlanMerge(root, d.candidate, d.category)
	d.target = d.plan.Result
	overlay[root.ID] = d.plan.Result
	return d
}

// lookup reads cluster roots, preferring the state merged earlier in the chunk, then the dry-run
// shadow.
func (p *Processor) lookup(overlay map[string]models.Business, sh *shadow) merging.LookupFunc {
	return func(ctx context.Context, id string) (models.Business, error) {
		if b, ok := overlay[id]; ok {
			return b, nil
		}
		if b, ok := sh.get(id); ok {
			return b, nil
		}
		b, err := p.store.Get(ctx, id)
		if err != nil {
			return models.Business{}, err
		}
		return *b, nil
	}
}

func (p *Processor) logDecision(ctx context.Context, d *decision) {
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"source":     d.key.Source,
		"source_uid": d.key.UID,
		"ref":        d.item.Ref,
	})

	switch d.action {
	case actionError:
		log.WithError(d.err.Cause).WithField("stage", d.err.Stage).Warn("Record failed")
	case actionSkip:
		log.WithField("reason", d.skip).Debug("Record skipped")
	case actionCreate:
		log.WithFields(map[string]any{
			"business_id": d.target.ID,
			"category":    d.category.PrimarySlug,
		}).Debug("Record is a new business")
	case actionMerge:
		log.WithFields(map[string]any{
			"business_id": d.target.ID,
			"reason":      d.match.Reason,
			"confidence":  d.match.Confidence,
			"filled":      d.plan.Filled,
		}).Debug("Record matched an existing business")
	}
}
