package v1

import (
	"github.com/gin-gonic/gin"

	"distripos/internal/core/security"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/auth"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/domain/reports"
	"distripos/internal/infrastructure/http/v1/handlers"
	"distripos/internal/infrastructure/http/v1/middleware"
	"distripos/pkg/logger"
)

// Services groups the domain services served over HTTP.
type Services struct {
	Auth        *auth.Service
	Products    *product.Service
	References  *reference.Service
	Customers   *customer.Service
	Receivables *receivable.Service
	Sales       *sale.Service
	Cash        *cash.Service
	Accounting  *accounting.Service
	Reports     *reports.Service
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services Services

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Tenants resolves the tenant named by the token
	Tenants middleware.TenantLookup

	// Idempotency stores replayable responses; nil disables the middleware
	Idempotency middleware.IdempotencyStore

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	// Logger for request logging
	Logger *logger.Logger

	// Debug keeps gin in debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))    // 1. Validate JWT
		protected.Use(middleware.ActiveTenant(cfg.Tenants)) // 2. Reject suspended tenants
		protected.Use(middleware.AccessScope())             // 3. Resolve capabilities for the domain layer
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}

		base := handlers.NewBaseHandler()
		registerAuthRoutes(v1, protected, base, cfg.Services)
		registerCatalogRoutes(protected, base, cfg.Services)
		registerSaleRoutes(protected, base, cfg.Services)
		registerCashRoutes(protected, base, cfg.Services)
		registerAccountingRoutes(protected, base, cfg.Services)
		registerReportRoutes(protected, base, cfg.Services)
		registerAdminRoutes(protected, base, cfg.Services)
	}

	return router
}

func registerAuthRoutes(public, protected *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	if svc.Auth == nil {
		return
	}
	h := handlers.NewAuthHandler(base, svc.Auth)
	h.RegisterRoutes(public.Group("/auth"), protected.Group("/auth"))
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	// --- PRODUCTS ---
	{
		h := handlers.NewProductHandler(base, svc.Products)
		products := rg.Group("/products")
		// Static segments before the :id routes.
		products.POST("/import", middleware.RequirePermission(security.ProductCreate), h.Import)
		RegisterCRUDRoutes(products, h, CRUDPermissions{
			Read:   security.StockView,
			Create: security.ProductCreate,
			Update: security.ProductEdit,
			Delete: security.ProductDelete,
		})
		products.POST("/:id/adjust", middleware.RequirePermission(security.StockAdjust), h.Adjust)
		products.GET("/:id/movements", middleware.RequirePermission(security.StockView), h.Movements)
	}

	// --- CATEGORIES ---
	{
		h := handlers.NewCategoryHandler(base, svc.References)
		categories := rg.Group("/categories")
		categories.GET("", middleware.RequirePermission(security.StockView), h.List)
		categories.POST("", middleware.RequirePermission(security.ProductCreate), h.Create)
		categories.DELETE("/:id", middleware.RequirePermission(security.ProductDelete), h.Delete)
	}

	// --- CUSTOMERS ---
	{
		h := handlers.NewCustomerHandler(base, svc.Customers, svc.Receivables)
		customers := rg.Group("/customers")
		RegisterCRUDRoutes(customers, h, CRUDPermissions{
			Read:   security.CustomerView,
			Create: security.CustomerEdit,
			Update: security.CustomerEdit,
			Delete: security.CustomerDelete,
		})
		customers.POST("/:id/payments", middleware.RequirePermission(security.CustomerAccount), h.RegisterPayment)
		customers.GET("/:id/statement", middleware.RequirePermission(security.CustomerView), h.Statement)
	}
}

func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewSaleHandler(base, svc.Sales)
	sales := rg.Group("/sales")
	sales.POST("", middleware.RequireAnyPermission(security.SalesAccess, security.SalesCharge), h.Create)
	sales.GET("", middleware.RequirePermission(security.SalesAccess), h.List)
	sales.GET("/:id", middleware.RequirePermission(security.SalesAccess), h.Get)
	sales.POST("/:id/void", middleware.RequirePermission(security.SalesVoid), h.Void)
}

func registerCashRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewCashHandler(base, svc.Cash)
	drawer := rg.Group("/cash")
	drawer.GET("/current", middleware.RequirePermission(security.CashView), h.Current)
	drawer.GET("/history", middleware.RequirePermission(security.CashView), h.History)
	drawer.GET("/last-close", middleware.RequirePermission(security.CashView), h.LastClose)
	drawer.POST("/open", middleware.RequirePermission(security.CashOpen), h.Open)
	drawer.DELETE("/movements/:id", middleware.RequirePermission(security.CashMovement), h.DeleteMovement)
	drawer.POST("/:id/close", middleware.RequirePermission(security.CashOpen), h.Close)
	drawer.POST("/:id/movements", middleware.RequirePermission(security.CashMovement), h.RecordMovement)
}

func registerAccountingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewAccountingHandler(base, svc.Accounting)
	acc := rg.Group("/accounting")
	acc.GET("/summary", middleware.RequirePermission(security.AccountingView), h.Summary)
	acc.POST("/expenses", middleware.RequirePermission(security.AccountingRecord), h.RecordExpense)
	acc.POST("/taxes", middleware.RequirePermission(security.AccountingRecord), h.RecordTax)
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewReportsHandler(base, svc.Reports)
	rg.GET("/reports/dashboard", middleware.RequirePermission(security.ReportsView), h.Dashboard)
}

func registerAdminRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewAdminHandler(base, svc.Auth)
	guard := middleware.RequirePermission(security.ConfigUsers)

	rg.GET("/permissions", guard, h.Permissions)

	roles := rg.Group("/roles", guard)
	roles.GET("", h.ListRoles)
	roles.POST("", h.CreateRole)
	roles.PUT("/:id", h.UpdateRole)
	roles.DELETE("/:id", h.DeleteRole)

	users := rg.Group("/users", guard)
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
}
