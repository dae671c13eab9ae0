package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RecordsTotal.WithLabelValues("ingest", "dry-run", "created"))
	RecordsTotal.WithLabelValues("ingest", "dry-run", "created").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RecordsTotal.WithLabelValues("ingest", "dry-run", "created")))
}

func TestPush(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, Push(context.Background(), server.URL, "camellia_ingest", "run-1"))
	assert.Equal(t, "/metrics/job/camellia_ingest/run_id/run-1", gotPath)

	assert.NoError(t, Push(context.Background(), "", "job", "run"))
}
