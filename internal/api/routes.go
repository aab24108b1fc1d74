package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/quant-regime/internal/api/handlers"
	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/metrics"
	"github.com/irfndi/quant-regime/internal/middleware"
	"github.com/irfndi/quant-regime/internal/positioning"
	"github.com/irfndi/quant-regime/internal/regime"
	"github.com/irfndi/quant-regime/internal/session"
)

// Dependencies are the services the routes expose.
type Dependencies struct {
	Logger      logging.Logger
	Metrics     *metrics.Registry
	Sessions    *session.Registry
	Regime      *regime.Service
	Snapshots   handlers.SnapshotStore
	Positioning *positioning.Service
	Health      *handlers.HealthHandler
	// RefreshLimiter throttles the refresh endpoints. Nil disables limiting.
	RefreshLimiter *middleware.RateLimiter

	ServiceName    string
	AllowedOrigins []string
	// TrustedProxies may set the client IP via forwarding headers. Empty
	// means the socket peer address is always used.
	TrustedProxies []string
	RegimeLogLimit int
	Lookback       int
}

// NewRouter builds the engine with the shared middleware chain and every
// route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		if deps.Logger != nil {
			deps.Logger.WithError(err).Warn("Ignoring invalid trusted proxies")
		}
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	if deps.ServiceName != "" {
		router.Use(otelgin.Middleware(deps.ServiceName))
	}
	router.Use(middleware.RequestID(), middleware.SpanAttributes())
	if deps.Logger != nil {
		router.Use(middleware.RequestLogger(deps.Logger))
	}
	router.Use(cors(deps.AllowedOrigins))

	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	health := deps.Health
	if health == nil {
		health = handlers.NewHealthHandler("", "", nil)
	}
	router.GET("/health", health.HealthCheck)
	router.GET("/live", health.LivenessCheck)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	limit := func(c *gin.Context) { c.Next() }
	if deps.RefreshLimiter != nil {
		limit = deps.RefreshLimiter.Middleware()
	}

	corr := handlers.NewCorrelationHandler(deps.Sessions)
	reg := handlers.NewRegimeHandler(deps.Regime, deps.RegimeLogLimit)
	market := handlers.NewMarketHandler(deps.Snapshots, deps.Regime)
	pos := handlers.NewPositioningHandler(deps.Positioning, deps.Lookback)

	v1 := router.Group("/api/v1")
	{
		correlations := v1.Group("/correlations")
		{
			correlations.GET("", corr.GetCorrelations)
			correlations.POST("/refresh", limit, corr.Refresh)
			correlations.GET("/alerts", corr.GetAlerts)
			correlations.GET("/comparison", corr.GetComparison)
		}

		regimeGroup := v1.Group("/regime")
		{
			regimeGroup.GET("", reg.GetRegime)
			regimeGroup.GET("/log", reg.GetLog)
		}

		marketGroup := v1.Group("/market")
		{
			marketGroup.GET("/snapshot", market.GetSnapshot)
			marketGroup.PUT("/snapshot", market.PutSnapshot)
		}

		positioningGroup := v1.Group("/positioning")
		{
			positioningGroup.GET("", pos.GetPositioning)
			positioningGroup.POST("/refresh", limit, pos.Refresh)
		}
	}
}

// cors allows the configured origins; "*" allows any.
func cors(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, "+middleware.SessionHeader+", "+middleware.RequestIDHeader)
			c.Header("Access-Control-Expose-Headers", middleware.SessionHeader+", "+middleware.RequestIDHeader)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
