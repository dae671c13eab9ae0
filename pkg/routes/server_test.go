package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/camellia/pkg/categories"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/routes/health"
)

type emptyStore struct{}

func (emptyStore) Get(_ context.Context, id string) (*models.Business, error) {
	return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "business '%s' not found", id)
}

func (emptyStore) ListByCluster(context.Context, string) ([]models.Business, error) {
	return nil, nil
}

func (emptyStore) FindBySourceKey(context.Context, models.SourceKey) (*models.Business, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	taxonomy, err := categories.NewTaxonomy([]models.Category{
		{ID: "c-other", Slug: "other", Level: models.CategoryLevelPrimary},
	}, "other")
	require.NoError(t, err)

	checker := health.NewChecker("test")
	checker.AddCheck("database", func(context.Context) error { return nil })
	checker.SetReady(true)

	return NewServer(ServerConfig{
		ServiceName: "camellia-test",
		Logger:      ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
		Health:      checker,
		Resolver:    categories.NewResolver(taxonomy, nil, categories.Options{}),
		Businesses:  emptyStore{},
	})
}

func TestServer_Routes(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/health/live", http.StatusOK},
		{"/api/v1/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/categories/resolve?label=anything", http.StatusOK},
		{"/api/v1/businesses/nope", http.StatusNotFound},
		{"/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestServer_EchoesRequestID(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/businesses/nope", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-42"`)
}
