package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsOn(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsOn(reg)
	assert.Same(t, reg, m.Registry())

	m.RecordSubmission("ok")
	m.RecordSubmission("fallback")
	m.RecordTransportFailure("network_error")
	m.RecordMessage("user")
	m.IncSessionsCreated()
	m.IncSessionsDeleted()
	m.SetSessionsActive(3)
	m.IncWSConnections()
	m.DecWSConnections()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("fallback")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransportFailures.WithLabelValues("network_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesAppended.WithLabelValues("user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsDeleted))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.WSConnections))

	// The shared registry sees everything recorded above.
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestPrivateRegistriesDoNotCollide(t *testing.T) {
	// Two collectors in one process must not panic on registration.
	a := NewMetrics()
	b := NewMetrics()
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMetrics()
	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions", "200")))
}
