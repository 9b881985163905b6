package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounts(t *testing.T) {
	p := NewPrometheus()

	p.ObserveAttempt("openai", "gpt-4o", "timeout", 2*time.Second)
	p.ObserveAttempt("openai", "gpt-4o", "success", time.Second)
	p.ObserveExhausted("ollama", "llama3")
	p.ObserveParse("pd", "exact")
	p.ObservePayoff("pd", false, false)
	p.ObservePayoff("pd", true, true)
	p.ObserveRound("pd", 3*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.attemptsTotal.WithLabelValues("openai", "gpt-4o", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.exhaustedTotal.WithLabelValues("ollama", "llama3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.payoffTotal.WithLabelValues("pd", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.payoffTotal.WithLabelValues("pd", "truncated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.roundsTotal.WithLabelValues("pd")))
}

func TestPrometheusRecordersAreIndependent(t *testing.T) {
	a, b := NewPrometheus(), NewPrometheus()
	a.ObserveRound("pd", time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.roundsTotal.WithLabelValues("pd")))
}

func TestHandler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveParse("pd", "fuzzy")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `arena_action_parse_total{game="pd",match="fuzzy"} 1`))
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveAttempt("p", "m", "error", 0)
	r.ObserveRound("g", 0)
}
