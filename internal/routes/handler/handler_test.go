package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hvac_dispatch_backend/internal/routes/service"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/httpkit"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(service.New(nil, nil, nil, nil, logger.Discard()), validator.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, roles)
		c.Next()
	})
	h.RegisterRoutes(r.Group("/routes"))
	h.RegisterOperationsRoutes(r.Group("/ops/routes"))
	return r
}

func TestListRequiresDate(t *testing.T) {
	r := newTestRouter(access.RoleOperations)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/routes", nil))

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), msgValidationFailed) {
		t.Fatalf("expected validation failure, got %d %s", w.Code, w.Body.String())
	}
}

func TestCreateRejectsMalformedDate(t *testing.T) {
	r := newTestRouter(access.RoleOperations)
	body := `{"technicianId":"` + uuid.NewString() + `","date":"12/03/2026"}`
	req := httptest.NewRequest(http.MethodPost, "/ops/routes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestReorderRequiresJobIDs(t *testing.T) {
	r := newTestRouter(access.RoleOperations)
	req := httptest.NewRequest(http.MethodPut, "/ops/routes/"+uuid.NewString()+"/order", strings.NewReader(`{"jobIds":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAddStopValidatesNestedJob(t *testing.T) {
	r := newTestRouter(access.RoleOperations)
	body := `{"job":{"clientName":"Ana","address":"Calle 1","serviceType":"cleaning","supervisorId":"` + uuid.NewString() + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/ops/routes/"+uuid.NewString()+"/stops", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), msgValidationFailed) {
		t.Fatalf("expected validation failure for unknown service type, got %d %s", w.Code, w.Body.String())
	}
}

func TestMineRejectsMalformedRouteQuery(t *testing.T) {
	r := newTestRouter(access.RoleTechnician)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/routes/mine?date=tomorrow", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
