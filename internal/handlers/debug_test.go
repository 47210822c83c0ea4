package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"dm-service/internal/middleware"
	"dm-service/internal/mocks"
	"dm-service/internal/telemetry"
)

func TestAuditTestRouteCarriesCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "audit.dm", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.ActorID == "alice" && env.Payload.Action == "audit_test"
	})).Return(nil).Once()
	emitter := telemetry.NewAuditEmitter(pub, "audit.dm", "dm-service", "test", zap.NewNop())

	r := gin.New()
	authed := r.Group("/", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "alice")
		c.Next()
	})
	RegisterDebugRoutes(authed, emitter, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	pub.AssertExpectations(t)
}

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, nil, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
