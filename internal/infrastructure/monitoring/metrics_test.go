package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestRecordRedirect(t *testing.T) {
	m := NewMetrics()

	m.RecordRedirect(true, "")
	m.RecordRedirect(false, "not_allowed")
	m.RecordRedirect(false, "not_allowed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redirects.WithLabelValues("allowed", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Redirects.WithLabelValues("rejected", "not_allowed")))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.RedirectsAllowed)
	assert.Equal(t, int64(2), snap.RedirectsRejected)
}

func TestRecordClassificationAndInterception(t *testing.T) {
	m := NewMetrics()

	m.RecordClassification("Instagram")
	m.RecordClassification("")
	m.RecordInterception("embedded", "redirect")
	m.RecordInterception("normal", "passthrough")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("Instagram")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("none")))
	assert.Equal(t, int64(1), m.Snapshot().Embedded)
}

func TestSnapshot_Average(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/a", "200", 10*time.Millisecond, 10)
	m.RecordHTTPRequest("GET", "/a", "404", 30*time.Millisecond, 10)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 20.0, snap.AvgDurationMillis, 0.001)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inappgate_http_requests_total")
	assert.Contains(t, w.Body.String(), "inappgate_uptime_seconds")
}
