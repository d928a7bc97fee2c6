// Package v1 provides HTTP API version 1.
package v1

import (
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/validation"
	"bizzplus/internal/infrastructure/http/v1/handlers"
	"bizzplus/internal/infrastructure/http/v1/middleware"
	"bizzplus/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	Orders     handlers.OrderService
	Catalog    handlers.CatalogService
	Vouchers   handlers.VoucherService
	Dashboards handlers.DashboardService
	Inventory  handlers.InventoryService
	Contacts   handlers.ContactService

	// Idempotency is optional; without it Idempotency-Key is ignored.
	Idempotency middleware.IdempotencyStore

	HealthChecks     map[string]handlers.HealthCheck
	CORSAllowOrigins []string
	Development      bool
}

var configureBinding sync.Once

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	configureBinding.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Configure(v)
		}
	})
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: the logger sees the status written by ErrorHandler.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerOrderRoutes(v1, handlers.NewOrderHandler(base, cfg.Orders))
	registerCatalogRoutes(v1, handlers.NewCatalogHandler(base, cfg.Catalog))
	registerVoucherRoutes(v1, handlers.NewVoucherHandler(base, cfg.Vouchers))
	registerPartyRoutes(v1, handlers.NewPartyHandler(base, cfg.Dashboards, cfg.Inventory))
	registerIngestRoutes(v1, handlers.NewCatalogHandler(base, cfg.Catalog))
	registerContactRoutes(v1, handlers.NewContactHandler(base, cfg.Contacts))

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

var (
	distributorOnly  = middleware.RequireRole(appctx.RoleDistributor)
	manufacturerOnly = middleware.RequireRole(appctx.RoleManufacturer)
	adminOnly        = middleware.RequireRole(appctx.RoleAdmin)
)

func registerOrderRoutes(rg *gin.RouterGroup, h *handlers.OrderHandler) {
	orders := rg.Group("/orders")
	{
		orders.POST("", distributorOnly, h.Create)
		orders.GET("/:id", h.Get)
		orders.GET("/:id/history", h.History)
		orders.POST("/:id/place", distributorOnly, h.Place)
		orders.POST("/:id/vouchers", manufacturerOnly, h.ExportVouchers)
	}

	m := rg.Group("/m/orders", manufacturerOnly)
	{
		m.GET("", h.List)
		m.POST("/:id/accept", h.Accept)
		m.POST("/:id/reject", h.Reject)
		m.POST("/:id/fulfill", h.Fulfill)
	}
}

func registerCatalogRoutes(rg *gin.RouterGroup, h *handlers.CatalogHandler) {
	rg.GET("/manufacturers", h.ListManufacturers)
	rg.GET("/manufacturers/:id/skus", h.ListSKUs)

	skus := rg.Group("/skus")
	{
		skus.GET("/:id/price", h.ActivePrice)
		skus.PUT("/:id/price", manufacturerOnly, h.SetPrice)
		skus.GET("/:id/prices", h.PriceHistory)
	}
}

// registerIngestRoutes serves pushes from manufacturers' accounting systems.
func registerIngestRoutes(rg *gin.RouterGroup, h *handlers.CatalogHandler) {
	ingest := rg.Group("/ingest", manufacturerOnly)
	{
		ingest.POST("/sku", h.IngestSKU)
		ingest.POST("/delta", h.IngestDelta)
	}
}

func registerContactRoutes(rg *gin.RouterGroup, h *handlers.ContactHandler) {
	crm := rg.Group("/crm", adminOnly)
	{
		crm.POST("/contacts/updated", h.Updated)
		crm.GET("/contacts", h.List)
	}
}

func registerVoucherRoutes(rg *gin.RouterGroup, h *handlers.VoucherHandler) {
	vouchers := rg.Group("/vouchers")
	{
		vouchers.GET("", h.List)
		vouchers.GET("/:id", h.Get)
	}
}

func registerPartyRoutes(rg *gin.RouterGroup, h *handlers.PartyHandler) {
	rg.GET("/m/dashboard", manufacturerOnly, h.ManufacturerDashboard)

	d := rg.Group("/d", distributorOnly)
	{
		d.GET("/dashboard", h.DistributorDashboard)
		d.GET("/inventory", h.Inventory)
	}
}
