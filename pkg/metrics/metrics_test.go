package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	p := New()
	p.Outcome("answered")
	p.Outcome("answered")
	p.Outcome("no_data")
	p.Source("fallback")
	p.Rejected("write_clause")
	p.ModelCall("cypher", true)
	p.ModelCall("cypher", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.queries.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.queries.WithLabelValues("no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.querySource.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rejected.WithLabelValues("write_clause")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.modelCalls.WithLabelValues("cypher", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.modelCalls.WithLabelValues("cypher", "error")))
}

func TestGauges(t *testing.T) {
	p := New()
	p.BreakerState(1)
	p.Vocabulary("disease", 41)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.breakerState))
	assert.Equal(t, 41.0, testutil.ToFloat64(p.vocabulary.WithLabelValues("disease")))
}

func TestHistograms(t *testing.T) {
	p := New()
	p.ObserveStage("execute", time.Now().Add(-50*time.Millisecond))
	p.Rows(3)

	assert.Equal(t, 1, testutil.CollectAndCount(p.stageDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(p.rowsReturned))
}

func TestHandler(t *testing.T) {
	p := New()
	p.Outcome("answered")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `medgraph_queries_total{outcome="answered"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilPipeline(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.Outcome("x")
		p.Source("x")
		p.Rejected("x")
		p.ObserveStage("x", time.Now())
		p.ModelCall("x", true)
		p.Rows(1)
		p.BreakerState(0)
		p.Vocabulary("x", 1)
	})
	assert.Nil(t, p.Registry())

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
