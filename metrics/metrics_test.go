package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersExposed(t *testing.T) {
	before := testutil.ToFloat64(Edits.WithLabelValues("delivery"))
	Edits.WithLabelValues("delivery").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Edits.WithLabelValues("delivery")))

	CatalogueSize.Set(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `sandbox_app_edits_total{outcome="delivery"}`)
	assert.Contains(t, string(body), "sandbox_catalogue_apps 3")
}
