package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	httpH "github.com/yungbote/personachat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/personachat-backend/internal/http/middleware"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

func TestRouterProtectsAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	reg := prometheus.NewRegistry()
	r := NewRouter(RouterConfig{
		Log:                log,
		MetricsRegistry:    reg,
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, "router-test-secret"),
		PersonaChatHandler: httpH.NewPersonaChatHandler(nil),
		AdminHandler:       httpH.NewAdminHandler(nil),
		HealthHandler:      httpH.NewHealthHandler(nil),
	})

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{nethttp.MethodGet, "/healthcheck", nethttp.StatusOK},
		{nethttp.MethodPost, "/api/personas/abc/chat", nethttp.StatusUnauthorized},
		{nethttp.MethodGet, "/api/admin/circuit-breakers", nethttp.StatusUnauthorized},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s %s: want=%d got=%d", tc.method, tc.path, tc.want, rec.Code)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected http metrics to be recorded")
	}
}
