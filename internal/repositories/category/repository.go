package category

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/camellia/pkg/database"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

// Repository reads the category taxonomy.
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

// GetTaxonomy returns the full taxonomy snapshot, primaries before their subcategories.
func (r *Repository) GetTaxonomy(ctx context.Context) ([]models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "category.Repository.GetTaxonomy")
	defer span.End()

	sb := database.NewStruct(models.Category{}).SelectFrom("categories")
	sb.OrderBy("(level = 'primary') DESC", "sort_order", "slug")

	query, args := sb.Build()
	var categories []models.Category
	if err := r.db.Querier(ctx).SelectContext(ctx, &categories, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load taxonomy")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load taxonomy")
	}
	return categories, nil
}
