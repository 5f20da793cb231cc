package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:3000"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) IsDevelopment() bool        { return true }
func (testConfig) GetJWTAccessSecret() string { return "secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type recordingModule struct{ registered bool }

func (m *recordingModule) Name() string { return "recording" }
func (m *recordingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.registered = true
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func TestReadyReflectsDatabaseHealth(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "database down", err: errors.New("dial tcp: refused"), status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Health: pinger{err: tc.err}})
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
		})
	}
}

func TestModulesAreMountedBehindAuth(t *testing.T) {
	module := &recordingModule{}
	engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Modules: []apphttp.Module{module}})
	if !module.registered {
		t.Fatalf("expected module routes to be registered")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
