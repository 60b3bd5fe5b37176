package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/logger"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/dto"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError answers a failed request binding
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts ledger errors to HTTP responses. Anything that is not
// a shared.DomainError is logged and reported as a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError for failures that still changed state:
// data goes into the error envelope so the caller can see what was committed.
func (h *BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	status, code, message := http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status, code, message = dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message
	} else {
		logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	}

	resp := dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c))
	resp.Data = data
	c.JSON(status, resp)
}

// pathUUID parses a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// queryOutlet resolves the outlet of a read from ?outlet_id= or, failing
// that, the X-Outlet-ID header. ok is false when a response was written.
func (h *BaseHandler) queryOutlet(c *gin.Context, required bool) (*uuid.UUID, bool) {
	if raw := c.Query("outlet_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid outlet_id format")
			return nil, false
		}
		return &id, true
	}
	if id, ok := middleware.GetOutletID(c); ok {
		return &id, true
	}
	if required {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "outlet_id is required")
		return nil, false
	}
	return nil, true
}

// checkOutletScope rejects a body whose outlet differs from X-Outlet-ID
func (h *BaseHandler) checkOutletScope(c *gin.Context, bodyOutlet uuid.UUID) bool {
	if scoped, ok := middleware.GetOutletID(c); ok && scoped != bodyOutlet {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "outlet_id does not match "+middleware.OutletIDHeader)
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter
func (h *BaseHandler) queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+" value")
		return 0, false
	}
	return v, true
}
