package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/wlboot/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRequestMetricsLabelsRouteGroup(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.Use(RequestMetricsMiddleware())
	r.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/guarded", func(c *gin.Context) {
		c.Set(AccessKey, AccessGuarded)
		c.Status(http.StatusOK)
	})
	r.GET("/denied", func(c *gin.Context) {
		c.Set(AccessKey, AccessDenied)
		c.AbortWithStatus(http.StatusUnauthorized)
	})

	cases := []struct {
		path   string
		access string
		status string
	}{
		{"/open", AccessOpen, "200"},
		{"/guarded", AccessGuarded, "200"},
		{"/denied", AccessDenied, "401"},
	}
	for _, tc := range cases {
		before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", tc.path, tc.access, tc.status))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", tc.path, tc.access, tc.status))
		if got != before+1 {
			t.Fatalf("%s: counter got=%v want=%v", tc.path, got, before+1)
		}
	}

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", AccessOpen, "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", AccessOpen, "404")); got != before+1 {
		t.Fatalf("unmatched counter got=%v want=%v", got, before+1)
	}
}
