package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjzar/regionwatch/internal/model"
)

func TestPrometheusCollector(t *testing.T) {
	p := NewPrometheus("")

	p.WatcherPoll(true)
	p.WatcherPoll(true)
	p.WatcherPoll(false)
	p.StateTransition(model.StateUnknown, model.StateRunning)
	p.RegionTableLoaded(42)
	p.Heartbeat(model.Listening("EU"))
	p.UpdateCheck(model.UpdaterFailed("timeout"))

	assert.Equal(t, float64(2), testutil.ToFloat64(p.polls.WithLabelValues("found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.polls.WithLabelValues("absent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.transitions.WithLabelValues("unknown", "running")))
	assert.Equal(t, float64(42), testutil.ToFloat64(p.regionTable))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.heartbeats.WithLabelValues("listening")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.updateChecks.WithLabelValues("error")))
}

func TestPrometheusHandler(t *testing.T) {
	p := NewPrometheus("test")
	p.Heartbeat(model.StateNotRunning)

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_process_check_heartbeats_total{state="not_running"} 1`)
}
