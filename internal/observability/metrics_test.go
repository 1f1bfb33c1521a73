package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IndexedEvents(1, 1, 0)
		m.IndexError("scan")
		m.Checkpoint("1", 10)
		m.IndexRun(0.5)
		m.FinalizeOutcome("SUCCESS", false)
		m.FinalizeError("precondition")
		m.StaleFinalizeRequests(2)
		m.SetupAttempt("vesting", true)
		m.RoundSettled()
		m.OutboxResult(true)
	})
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IndexedEvents(3, 2, 1)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.EventsFound))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsInserted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsDuplicate))

	m.FinalizeOutcome("SUCCESS", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FinalizeOutcomes.WithLabelValues("SUCCESS", "true")))

	m.SetupAttempt("liquidity_lock", true)
	m.SetupAttempt("liquidity_lock", false)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SetupAttempts.WithLabelValues("liquidity_lock")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SetupFailures.WithLabelValues("liquidity_lock")))

	m.Checkpoint("7", 998)
	assert.Equal(t, float64(998), testutil.ToFloat64(m.IndexedHeight.WithLabelValues("7")))

	m.OutboxResult(false)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxFailed))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RoundSettled()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "roundsettle_post_finalize_rounds_settled_total 1"))
}
