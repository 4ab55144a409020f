package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"course-signup/config"
	"course-signup/internal/api/handler"
	"course-signup/internal/service"
	"course-signup/pkg/jwt"
)

func newTestEngine(t *testing.T) (http.Handler, *jwt.Manager) {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "router-test-secret-key",
			TokenTTL:         time.Hour,
			AdminLineUserIDs: []string{"U-admin"},
		},
	}
	mgr := jwt.NewManager(&cfg.Auth)
	h := handler.NewHandler(&service.Service{})
	return Setup(cfg, h, mgr, nil, nil, zap.NewNop()), mgr
}

func TestSetup_Health(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
	}
}

func TestSetup_ProtectedRoutes(t *testing.T) {
	engine, mgr := newTestEngine(t)
	userToken, _ := mgr.Issue(jwt.Identity{ID: "u1", LineUserID: "U-user"})

	cases := []struct {
		method string
		path   string
		token  string
		status int
	}{
		{"POST", "/api/registration/submit", "", http.StatusUnauthorized},
		{"GET", "/api/registrations/me", "", http.StatusUnauthorized},
		{"GET", "/api/registrations", userToken, http.StatusForbidden},
		{"GET", "/api/registrations/export", userToken, http.StatusForbidden},
		{"POST", "/api/courses", userToken, http.StatusForbidden},
		{"DELETE", "/api/courses?id=c1", userToken, http.StatusForbidden},
		{"POST", "/api/line/tag", userToken, http.StatusForbidden},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		engine.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, w.Code)
		}
	}
}
