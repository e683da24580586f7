package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsolatedRegistries(t *testing.T) {
	// Two collectors on separate registries must not panic on duplicate registration.
	a := NewCollector("carepoint", prometheus.NewRegistry())
	b := NewCollector("carepoint", prometheus.NewRegistry())

	a.AppointmentConflicts.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.AppointmentConflicts))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AppointmentConflicts))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("carepoint", reg)
	c.AppointmentsTotal.WithLabelValues("scheduled").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `carepoint_clinical_appointments_total{status="scheduled"} 1`)
}
