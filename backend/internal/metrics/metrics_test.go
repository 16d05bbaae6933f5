package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	RunTotal.WithLabelValues("ok").Inc()
	MoodTotal.WithLabelValues("cheerful").Inc()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fortune_run_total")
	assert.Contains(t, w.Body.String(), `fortune_mood_total{mood="cheerful"}`)
}

func TestToolInvocations_Counts(t *testing.T) {
	before := testutil.ToFloat64(ToolInvocations.WithLabelValues("search", "ok"))
	ToolInvocations.WithLabelValues("search", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ToolInvocations.WithLabelValues("search", "ok")))
}
