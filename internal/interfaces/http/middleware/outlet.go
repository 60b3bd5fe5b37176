package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/logger"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/dto"
)

const (
	// OutletIDHeader carries the outlet resolved by the upstream gateway
	OutletIDHeader = "X-Outlet-ID"
	// OutletIDKey is the gin context key of the parsed outlet
	OutletIDKey = "outlet_id"
)

// OutletScope reads the optional X-Outlet-ID header, rejects malformed values
// and attaches the outlet to the gin context and the request logger.
// Requests without the header pass through; handlers then need outlet_id in
// the query or body.
func OutletScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OutletIDHeader)
		if raw == "" {
			c.Next()
			return
		}
		outletID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidInput,
				"Invalid "+OutletIDHeader+" header",
				GetRequestID(c),
			))
			return
		}

		c.Set(OutletIDKey, outletID)
		ctx := c.Request.Context()
		ctx, _ = logger.WithOutletID(ctx, logger.FromContext(ctx), outletID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetOutletID returns the outlet set by OutletScope
func GetOutletID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(OutletIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
