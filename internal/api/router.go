package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/app"
	iauth "github.com/charlesng35/catalogadmin/internal/auth"
	"github.com/charlesng35/catalogadmin/internal/handlers"
	"github.com/charlesng35/catalogadmin/internal/middleware"
	"github.com/charlesng35/catalogadmin/internal/monitoring"
	"github.com/charlesng35/catalogadmin/internal/storage"
)

const defaultRateLimitWindow = time.Minute

// NewRouter builds the Gin engine, wires middleware and registers the catalog routes.
// A nil rateStore falls back to an in-memory store. healthChecks are probed by
// /health next to the database and file store.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, store storage.Store, rateStore middleware.RateStore, healthChecks ...monitoring.Check) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("file store must be provided")
	}
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	// Global middleware
	r.Use(middleware.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(tracingServiceName(cfg)))
	}
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.HSTS))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if limit := cfg.Server.RateLimit; limit.Enabled && limit.Requests > 0 {
		window := limit.Window
		if window <= 0 {
			window = defaultRateLimitWindow
		}
		r.Use(middleware.RateLimit(rateStore, limit.Requests, window))
	}

	registerHealthRoutes(r, db, store, healthChecks)
	registerUploadRoutes(r, store)
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerAuthRoutes(r, api, authHandler)
	if err := registerCatalogRoutes(api, db, store, cfg.Pagination.Settings()); err != nil {
		return nil, err
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func tracingServiceName(cfg *app.Config) string {
	if name := strings.TrimSpace(cfg.Tracing.ServiceName); name != "" {
		return name
	}
	return "catalog-admin"
}
