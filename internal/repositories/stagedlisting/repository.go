package stagedlisting

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/camellia/pkg/database"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

const table = "staged_listings"

// Repository handles the staging table crawlers load before promotion.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertRequest is one crawled record to stage.
type UpsertRequest struct {
	Kind      string
	Source    string
	SourceUID string
	Payload   []byte
}

// Upsert stages a record. A re-crawled record replaces its payload and goes back to pending.
func (r *Repository) Upsert(ctx context.Context, req UpsertRequest) error {
	ctx, span := tracing.StartSpan(ctx, "stagedlisting.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("kind", "source", "source_uid", "payload", "status", "created_at", "updated_at")
	ib.Values(req.Kind, req.Source, req.SourceUID, string(req.Payload), models.StagedPending, now, now)
	ub := ib.OnConflict("source", "source_uid")
	ub.Set(
		ub.Assign("kind", database.Excluded("kind")),
		ub.Assign("payload", database.Excluded("payload")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
		ub.Assign("outcome", nil),
		ub.Assign("processed_at", nil),
	)

	query, args := ib.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source":     req.Source,
			"source_uid": req.SourceUID,
		}).Error("Failed to stage listing")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to stage listing: %v", err)
	}
	return nil
}

// ListPending returns pending rows after the given id in id order.
func (r *Repository) ListPending(ctx context.Context, afterID int64, limit int) ([]models.StagedListing, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedlisting.Repository.ListPending")
	defer span.End()

	sb := database.NewStruct(models.StagedListing{}).SelectFrom(table)
	sb.Where(
		sb.Equal("status", models.StagedPending),
		sb.GreaterThan("id", afterID),
	)
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []models.StagedListing
	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("after_id", afterID).Error("Failed to list pending listings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending listings")
	}
	return rows, nil
}

// Mark is the outcome written back to one staged row.
type Mark struct {
	ID         int64
	Status     models.StagedStatus
	Outcome    string
	BusinessID string
}

// MarkOutcomes records promotion outcomes. Run it inside the chunk transaction.
func (r *Repository) MarkOutcomes(ctx context.Context, marks []Mark) error {
	ctx, span := tracing.StartSpan(ctx, "stagedlisting.Repository.MarkOutcomes")
	defer span.End()

	now := time.Now().UTC()
	q := r.db.Querier(ctx)

	for _, m := range marks {
		query, args := database.NewUpdate(table).
			Set("status", m.Status).
			Set("outcome", models.OptionalString(m.Outcome)).
			Set("business_id", models.OptionalString(m.BusinessID)).
			Set("processed_at", now).
			Set("updated_at", now).
			WhereID(m.ID)
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("id", m.ID).Error("Failed to mark staged listing")
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark staged listing %d: %v", m.ID, err)
		}
	}
	return nil
}

// StatusCount is the number of staged rows in one status.
type StatusCount struct {
	Status models.StagedStatus `db:"status"`
	Count  int                 `db:"count"`
}

func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedlisting.Repository.CountByStatus")
	defer span.End()

	sb := database.NewSelect("status", "COUNT(*) AS count").From(table).GroupBy("status").OrderBy("status")

	query, args := sb.Build()
	var counts []StatusCount
	if err := r.db.Querier(ctx).SelectContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count staged listings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count staged listings")
	}
	return counts, nil
}
