package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func outletRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), logger.GinMiddleware(zap.NewNop()), OutletScope())
	router.GET("/test", func(c *gin.Context) {
		id, ok := GetOutletID(c)
		if !ok {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, id.String()+"|"+logger.GetOutletID(c.Request.Context()))
	})
	return router
}

func TestOutletScope(t *testing.T) {
	router := outletRouter()

	t.Run("no header passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "none", w.Body.String())
	})

	t.Run("valid header is attached to gin and request context", func(t *testing.T) {
		outlet := uuid.New()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(OutletIDHeader, outlet.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, outlet.String()+"|"+outlet.String(), w.Body.String())
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(OutletIDHeader, "kitchen-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"INVALID_INPUT"`)
		assert.Contains(t, w.Body.String(), `"request_id"`)
	})
}

func TestGetOutletID_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id, ok := GetOutletID(c)
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)
}
