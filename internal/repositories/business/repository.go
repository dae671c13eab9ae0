package business

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

const table = "businesses"

// Repository handles business record persistence. Every method runs inside the transaction
// carried by ctx when there is one.
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

var businessStruct = database.NewStruct(models.Business{})

// FindCandidates returns the records sharing the phone OR the city. Phone matches sort first so
// the bound never cuts them off; the rest is in creation order.
func (r *Repository) FindCandidates(ctx context.Context, phone, city string, limit int) ([]models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.FindCandidates")
	defer span.End()

	if phone == "" && city == "" {
		return nil, nil
	}

	sb := businessStruct.SelectFrom(table)
	var or []string
	if phone != "" {
		or = append(or, sb.Equal("phone_normalized", phone))
	}
	if city != "" {
		or = append(or, sb.Equal("city", city))
	}
	sb.Where(sb.Or(or...))
	if phone != "" {
		sb.OrderBy("(phone_normalized = "+sb.Var(phone)+") DESC NULLS LAST", "created_at", "id")
	} else {
		sb.OrderBy("created_at", "id")
	}
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var records []models.Business
	if err := r.db.Querier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"phone": phone,
			"city":  city,
		}).Error("Failed to find candidate businesses")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to find candidate businesses: %v", err)
	}
	return records, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Get")
	defer span.End()

	sb := businessStruct.SelectFrom(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var record models.Business
	if err := r.db.Querier(ctx).GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "business %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get business")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get business")
	}
	return &record, nil
}

func (r *Repository) Create(ctx context.Context, record models.Business) error {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Create")
	defer span.End()

	if record.SourceKeys == nil {
		record.SourceKeys = models.SourceKeys{}
	}

	query, args := businessStruct.InsertInto(table, record).Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":          record.ID,
			"source_keys": record.SourceKeys,
		}).Error("Failed to create business")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create business: %v", err)
	}
	return nil
}

// Update writes only the patch's non-nil fields.
func (r *Repository) Update(ctx context.Context, id string, patch models.BusinessPatch) error {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Update")
	defer span.End()

	if patch.IsEmpty() {
		return nil
	}

	u := database.NewUpdate(table).Set("updated_at", time.Now().UTC())
	if patch.ClusterID != nil {
		u.Set("cluster_id", *patch.ClusterID)
	}
	if patch.SourceKeys != nil {
		u.Set("source_keys", *patch.SourceKeys)
	}
	if patch.NameKo != nil {
		u.Set("name_ko", *patch.NameKo)
	}
	if patch.NameEn != nil {
		u.Set("name_en", *patch.NameEn)
	}
	if patch.PhoneNormalized != nil {
		u.Set("phone_normalized", *patch.PhoneNormalized)
	}
	if patch.AddressNormalized != nil {
		u.Set("address_normalized", *patch.AddressNormalized)
	}
	if patch.PostalCode != nil {
		u.Set("postal_code", *patch.PostalCode)
	}
	if patch.Latitude != nil {
		u.Set("latitude", *patch.Latitude)
	}
	if patch.Longitude != nil {
		u.Set("longitude", *patch.Longitude)
	}
	if patch.SubcategoryID != nil {
		u.Set("subcategory_id", *patch.SubcategoryID)
	}
	if patch.QualityScore != nil {
		u.Set("quality_score", *patch.QualityScore)
	}
	query, args := u.WhereID(id)
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update business")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update business: %v", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "business %s not found", id)
	}
	return nil
}

// ListCanonicalByCity returns the cluster roots of a city in creation order.
func (r *Repository) ListCanonicalByCity(ctx context.Context, city string) ([]models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.ListCanonicalByCity")
	defer span.End()

	sb := businessStruct.SelectFrom(table)
	sb.Where(sb.Equal("city", city), "cluster_id = id")
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var records []models.Business
	if err := r.db.Querier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("city", city).Error("Failed to list businesses by city")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list businesses by city")
	}
	return records, nil
}

func (r *Repository) ListCities(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.ListCities")
	defer span.End()

	sb := database.NewSelect("DISTINCT city").From(table).OrderBy("city")

	query, args := sb.Build()
	var cities []string
	if err := r.db.Querier(ctx).SelectContext(ctx, &cities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list cities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cities")
	}
	return cities, nil
}

// ListByCluster returns every record of a cluster, root first.
func (r *Repository) ListByCluster(ctx context.Context, clusterID string) ([]models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.ListByCluster")
	defer span.End()

	sb := businessStruct.SelectFrom(table)
	sb.Where(sb.Equal("cluster_id", clusterID))
	sb.OrderBy("(id = cluster_id) DESC", "created_at", "id")

	query, args := sb.Build()
	var records []models.Business
	if err := r.db.Querier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("cluster_id", clusterID).Error("Failed to list cluster")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cluster")
	}
	return records, nil
}

// FindBySourceKey returns the record whose provenance includes key, or nil.
func (r *Repository) FindBySourceKey(ctx context.Context, key models.SourceKey) (*models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.FindBySourceKey")
	defer span.End()

	probe, err := models.SourceKeys{key}.Value()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid source key")
	}

	sb := businessStruct.SelectFrom(table)
	sb.Where(database.JSONBContains(sb, "source_keys", probe))
	sb.OrderBy("created_at", "id")
	sb.Limit(1)

	query, args := sb.Build()
	var records []models.Business
	if err := r.db.Querier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("source_key", key.String()).Error("Failed to find business by source key")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find business by source key")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}
