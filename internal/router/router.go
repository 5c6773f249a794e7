package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/config"
	"github.com/mariyam933/fyp/internal/handlers"
	"github.com/mariyam933/fyp/internal/middleware"
	"github.com/mariyam933/fyp/internal/models"
	"go.uber.org/zap"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Accounts *handlers.AccountHandler
	Bills    *handlers.BillHandler
	Settings *handlers.SettingsHandler
	Uploads  *handlers.UploadHandler
	Reports  *handlers.ReportHandler
}

// Setup builds the gin engine with every route.
func Setup(cfg *config.Config, h Handlers, tokens middleware.TokenValidator, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.MaxMultipartMemory = cfg.Uploads.MaxBytes

	// CORS for the dashboard
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// --- PUBLIC ROUTES ---
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.POST("/login", h.Auth.Login)
	r.Static("/uploads", cfg.Uploads.Dir)

	// --- FEATURE FLAG: Admin Registration ---
	if cfg.Server.AllowRegistration {
		r.POST("/register", h.Auth.Register)
		logger.Warn("registration route is OPEN, disable this in production")
	} else {
		logger.Info("registration route is disabled")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))
	api.Use(middleware.AuthMiddleware(tokens))

	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleMeterReader)

	// Settings
	api.GET("/settings", h.Settings.Get)
	api.PUT("/settings", admin, h.Settings.Update)

	// Bills
	api.POST("/bill", staff, h.Bills.Create)
	api.GET("/bill", admin, h.Bills.List)
	api.GET("/bill/export", admin, h.Bills.Export)
	api.GET("/bill/prev/:customerId", h.Bills.Previous)
	api.GET("/bill/receipt/:billId", h.Bills.Receipt)
	api.GET("/bill/:customerId", h.Bills.ListForCustomer)
	api.PUT("/bill/:billId", staff, h.Bills.Update)
	api.DELETE("/bill/:billId", admin, h.Bills.Delete)

	// Meter photos
	api.POST("/meter-readings/scan", staff, h.Uploads.Scan)
	api.POST("/upload", staff, h.Uploads.Upload)

	// Accounts (admin only)
	accounts := api.Group("/", admin)
	{
		accounts.GET("/customer", h.Accounts.List(models.RoleCustomer))
		accounts.POST("/customer", h.Accounts.Create(models.RoleCustomer))
		accounts.GET("/customer/:id", h.Accounts.GetCustomer)
		accounts.PUT("/customer/:id", h.Accounts.UpdateCustomer)
		accounts.DELETE("/customer/:id", h.Accounts.DeleteCustomer)

		accounts.GET("/admin", h.Accounts.List(models.RoleAdmin))
		accounts.POST("/admin", h.Accounts.Create(models.RoleAdmin))

		accounts.GET("/meter-reader", h.Accounts.List(models.RoleMeterReader))
		accounts.POST("/meter-reader", h.Accounts.Create(models.RoleMeterReader))

		accounts.GET("/overview", h.Reports.Overview)
	}

	return r
}
