package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Generation("ok")
		m.Match("hit")
		m.Attachment("media", "ready")
		m.Degraded("generation")
		m.PromptTokens(10)
		m.ReplyLatency(0.5)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.Generation("ok")
	m.Generation("ok")
	m.Degraded("generation")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degraded.WithLabelValues("generation")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Match("miss")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `muse_memory_matches_total{result="miss"} 1`)
}
