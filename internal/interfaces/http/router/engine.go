package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/config"
	"github.com/rai1001/ChefOsv2-sub002/internal/infrastructure/logger"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/handler"
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineConfig configures the HTTP engine.
// A nil TracerProvider disables request tracing; a nil Meter disables HTTP metrics.
type EngineConfig struct {
	Logger         *zap.Logger
	HTTP           config.HTTPConfig
	ServiceName    string
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
}

// NewEngine creates a gin engine with the ledger middleware chain.
// RequestID runs first so the tracer, logger and recovery all see it.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.TracerProvider != nil,
			TracerProvider: cfg.TracerProvider,
		}),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.OutletScope(),
		middleware.SpanAttributes(),
	)
	return engine, nil
}

// RegisterHealth mounts the liveness and readiness checks outside the API prefix
func RegisterHealth(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health", h.Live)
	engine.GET("/ready", h.Ready)
}
