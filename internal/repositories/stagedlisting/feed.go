package stagedlisting

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/sources"
)

// Store is the part of the repository the feed needs.
type Store interface {
	ListPending(ctx context.Context, afterID int64, limit int) ([]models.StagedListing, error)
	MarkOutcomes(ctx context.Context, marks []Mark) error
}

// Feed serves pending staged rows to the promotion run. It pages by id so a dry run, which
// marks nothing, still moves forward.
type Feed struct {
	store  Store
	cursor int64
}

func NewFeed(store Store) *Feed {
	return &Feed{store: store}
}

func (f *Feed) Next(ctx context.Context, max int) ([]sources.Item, error) {
	rows, err := f.store.ListPending(ctx, f.cursor, max)
	if err != nil {
		return nil, err
	}

	items := make([]sources.Item, 0, len(rows))
	for _, row := range rows {
		f.cursor = row.ID
		env := sources.Envelope{Kind: sources.Kind(row.Kind), Source: row.Source, Data: row.Payload}
		rec, err := sources.DecodeEnvelope(env)
		if err == nil && rec.SourceID().UID != row.SourceUID {
			err = fmt.Errorf("payload uid '%s' does not match staged uid '%s'", rec.SourceID().UID, row.SourceUID)
			rec = nil
		}
		items = append(items, sources.Item{
			Ref:      strconv.FormatInt(row.ID, 10),
			Envelope: &env,
			Record:   rec,
			Err:      err,
		})
	}
	return items, nil
}

func (f *Feed) Ack(ctx context.Context, outcomes []sources.Outcome) error {
	marks := make([]Mark, 0, len(outcomes))
	for _, o := range outcomes {
		id, err := strconv.ParseInt(o.Item.Ref, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid staged listing ref '%s': %w", o.Item.Ref, err)
		}
		marks = append(marks, Mark{ID: id, Status: o.Status, Outcome: o.Detail, BusinessID: o.BusinessID})
	}
	if len(marks) == 0 {
		return nil
	}
	return f.store.MarkOutcomes(ctx, marks)
}
