package processor

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/camellia/pkg/database"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/merging"
	"github.com/Ramsey-B/camellia/pkg/sources"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

// chunkTx is one transaction per chunk with a savepoint per record, so a failed record rolls
// back alone and the chunk still commits as a whole or not at all.
type chunkTx struct {
	ctx   context.Context
	tx    database.Tx
	steps int
}

func beginChunk(ctx context.Context, beginner TxBeginner) (*chunkTx, error) {
	txCtx, tx, err := beginner.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &chunkTx{ctx: txCtx, tx: tx}, nil
}

// step runs fn under its own savepoint. stepErr is the record's failure, already rolled back;
// a non-nil broken means the transaction can no longer be used.
func (c *chunkTx) step(fn func(ctx context.Context) error) (stepErr error, broken error) {
	c.steps++
	name := fmt.Sprintf("record_%d", c.steps)

	if err := c.tx.Savepoint(c.ctx, name); err != nil {
		return nil, err
	}
	if err := fn(c.ctx); err != nil {
		if rbErr := c.tx.RollbackTo(c.ctx, name); rbErr != nil {
			return err, rbErr
		}
		return err, nil
	}
	if err := c.tx.Release(c.ctx, name); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *chunkTx) commit() error {
	return c.tx.Commit(c.ctx)
}

func (c *chunkTx) rollback() {
	_ = c.tx.Rollback(c.ctx)
}

// writeChunk persists the chunk's creates and merges and acknowledges its items in one
// transaction. It reports whether the transaction committed.
func (p *Processor) writeChunk(ctx context.Context, feed sources.Feed, decisions []decision) bool {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.writeChunk")
	defer span.End()

	log := p.logger.WithContext(ctx)

	chunk, err := beginChunk(ctx, p.tx)
	if err != nil {
		log.WithError(err).Error("Failed to begin chunk transaction")
		tracing.Fail(span, err)
		failChunk(decisions, perrors.StageWrite, err)
		return false
	}

	for i := range decisions {
		d := &decisions[i]
		if d.action != actionCreate && d.action != actionMerge {
			continue
		}

		stepErr, broken := chunk.step(func(txCtx context.Context) error {
			return p.apply(txCtx, d)
		})
		if broken != nil {
			log.WithError(broken).Error("Chunk transaction is unusable, rolling back")
			tracing.Fail(span, broken)
			chunk.rollback()
			failChunk(decisions, perrors.StageWrite, broken)
			return false
		}
		if stepErr != nil {
			d.fail(perrors.StageWrite, stepErr)
			log.WithError(stepErr).WithFields(map[string]any{
				"source":     d.key.Source,
				"source_uid": d.key.UID,
			}).Warn("Failed to write record")
		}
	}

	if err := feed.Ack(chunk.ctx, outcomes(decisions)); err != nil {
		log.WithError(err).Error("Failed to acknowledge chunk, rolling back")
		tracing.Fail(span, err)
		chunk.rollback()
		failChunk(decisions, perrors.StageAck, err)
		return false
	}

	if err := chunk.commit(); err != nil {
		log.WithError(err).Error("Failed to commit chunk")
		tracing.Fail(span, err)
		failChunk(decisions, perrors.StageWrite, err)
		return false
	}
	return true
}

// apply writes one decision. A merge is planned again from the stored state of the root so
// records that failed earlier in the chunk do not leak into it.
func (p *Processor) apply(ctx context.Context, d *decision) error {
	switch d.action {
	case actionCreate:
		return p.store.Create(ctx, d.target)
	case actionMerge:
		current, err := p.store.Get(ctx, d.target.ID)
		if err != nil {
			return err
		}
		plan := merging.PlanMerge(*current, d.candidate, d.category)
		if plan.Changed() {
			if err := p.store.Update(ctx, current.ID, plan.Patch); err != nil {
				return err
			}
		}
		d.plan = plan
		d.target = plan.Result
	}
	return nil
}

// failChunk turns every record the chunk would have written into an error.
func failChunk(decisions []decision, stage perrors.Stage, cause error) {
	for i := range decisions {
		d := &decisions[i]
		if d.action == actionCreate || d.action == actionMerge {
			d.fail(stage, cause)
		}
	}
}
