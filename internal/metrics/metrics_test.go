package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	a := New()
	b := New()
	a.IncrementCacheHit()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.LookupCacheHits))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.LookupCacheHits))
}

func TestObserveAnalysis(t *testing.T) {
	m := New()

	m.ObserveAnalysis(time.Now(), nil, 3, 1500)
	m.ObserveAnalysis(time.Now(), errors.New("boom"), 99, 99)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("error")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.FlaggedPairs))
	assert.Equal(t, float64(1500), testutil.ToFloat64(m.FlaggedValue))
}

func TestObserveLookup(t *testing.T) {
	m := New()
	m.ObserveLookup("ceis", "ok", 10*time.Millisecond)
	m.ObserveLookup("ceis", "timeout", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.LookupOutcomes.WithLabelValues("ceis", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LookupDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis(time.Now(), nil, 1, 1)
		m.IncrementPattern("high-value")
		m.ObserveLookup("cnep", "ok", time.Millisecond)
		m.IncrementCacheHit()
		m.IncrementScreening("low")
		m.IncrementAlertReviewed()
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.IncrementPattern("multiple-flags")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `crosscheck_patterns_detected_total{kind="multiple-flags"} 1`)
}
