package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/service"
)

func TestMetricsHandlerSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveBulkAction("demo.type", "delete", http.StatusAccepted)
	metrics.ObserveCopy("demo.demomodel", 3, 1)
	h := NewMetricsHandler(metrics)

	c, rec := authContext(http.MethodGet, "/admin/system-metrics", "", nil)
	h.Summary(c)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"bulk_actions":1`)
	assert.Contains(t, body, `"records_copied":3`)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveJob("email", "send_email", nil)
	h := NewMetricsHandler(metrics)

	c, rec := authContext(http.MethodGet, "/metrics", "", nil)
	h.Prometheus(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `queue_jobs_processed_total{outcome="succeeded",queue="email",type="send_email"} 1`)
}
