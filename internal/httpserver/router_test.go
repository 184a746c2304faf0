package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contractorvet/internal/handler"
	"contractorvet/internal/service/dashboard"
	"contractorvet/pkg/auth"
	"contractorvet/pkg/rbac"
	"contractorvet/pkg/trace"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDashboard struct{ calls int }

func (s *stubDashboard) Get(context.Context, string) (*dashboard.View, error) {
	s.calls++
	return &dashboard.View{}, nil
}

func newTestRouter(t *testing.T, dash *stubDashboard, checks ...ReadinessCheck) *gin.Engine {
	t.Helper()
	l := zap.NewNop()
	return NewRouter(Handlers{
		Dashboard:    handler.NewDashboardHandler(dash, l),
		Activity:     handler.NewActivityHandler(nil, l),
		Referral:     handler.NewReferralHandler(nil, l),
		Project:      handler.NewProjectHandler(nil, l),
		Review:       handler.NewReviewHandler(nil, l),
		Notification: handler.NewNotificationHandler(nil, l),
	}, Options{JWTSecret: secret, AllowOrigin: "https://app.example.com", Readiness: checks}, l)
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT("u1", role, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	body := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &stubDashboard{})

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = serve(r, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyz(t *testing.T) {
	ok := ReadinessCheck{Name: "db", Check: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }}

	w, body := serve(newTestRouter(t, &stubDashboard{}, ok), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])

	w, body = serve(newTestRouter(t, &stubDashboard{}, ok, down), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "redis_not_ready", body["status"])
}

func TestPreflight(t *testing.T) {
	r := newTestRouter(t, &stubDashboard{})
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/dashboard-data", nil)

	w, _ := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowHeaders, w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, corsAllowMethods, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestDashboardAuth(t *testing.T) {
	dash := &stubDashboard{}
	r := newTestRouter(t, dash)

	// 无 token
	w, body := serve(r, httptest.NewRequest(http.MethodPost, "/functions/v1/dashboard-data", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing token", body["error"])
	assert.Equal(t, "Unauthorized", body["kind"])
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// 签名不对
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/dashboard-data", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w, body = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", body["error"])

	// service_role 没有 dashboard 权限
	req = httptest.NewRequest(http.MethodPost, "/functions/v1/dashboard-data", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, rbac.RoleService))
	w, body = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", body["kind"])

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/dashboard-data", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, rbac.RoleUser))
	req.Header.Set(trace.HeaderName, "trace-1")
	w, _ = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-1", w.Header().Get(trace.HeaderName))
	assert.Equal(t, 1, dash.calls)
}

func TestTraceIDGenerated(t *testing.T) {
	w, _ := serve(newTestRouter(t, &stubDashboard{}), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}
