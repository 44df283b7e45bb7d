package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg, reg)

	r := gin.New()
	r.Use(metrics.Middleware())
	r.GET("/api/content/:uuid", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", metrics.Handler())

	for _, path := range []string{"/api/content/a", "/api/content/b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status want 200 got %d", w.Code)
	}
	body := w.Body.String()
	want := `gatemail_http_requests_total{method="GET",route="/api/content/:uuid",status="200"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics output missing %q:\n%s", want, body)
	}

	again := NewHTTPMetrics(reg, reg)
	if again.requestsTotal != metrics.requestsTotal {
		t.Fatalf("re-registration should reuse existing collector")
	}
}
