package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"billing-system/internal/auth"
	"billing-system/internal/middleware"
)

type RouterDeps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Signer *auth.Signer
	Ledger *auth.Ledger

	TOTPIssuer string
}

// RegisterRoutes wires every handler onto the engine: a public auth
// group and a JWT-protected group under /api/v1, plus /health.
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	authHandler := NewAuthHandler(deps.DB, deps.Signer, deps.Ledger, deps.TOTPIssuer)
	invoiceHandler := NewInvoiceHandler(deps.DB, deps.Redis)
	customerHandler := NewCustomerHandler(deps.DB)
	productHandler := NewProductHandler(deps.DB, deps.Redis)

	public := r.Group("/api/v1")
	{
		authGroup := public.Group("/auth")
		{
			authGroup.POST("/sign-in", authHandler.SignIn)
			authGroup.POST("/register", authHandler.Register)
		}
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(deps.Signer, deps.Ledger))
	{
		protected.POST("/auth/sign-out", authHandler.SignOut)

		users := protected.Group("/users")
		{
			users.GET("/me", authHandler.Me)
			users.POST("/enable-2fa", authHandler.EnableTOTP)
			users.POST("/confirm-2fa", authHandler.ConfirmTOTP)
		}

		invoices := protected.Group("/invoices")
		{
			invoices.POST("", invoiceHandler.Create)
			invoices.GET("", invoiceHandler.List)
			invoices.GET("/:id", invoiceHandler.Get)
			invoices.PUT("/:id", invoiceHandler.Update)
			invoices.POST("/:id/pay", invoiceHandler.RecordPayment)
			invoices.POST("/bulk-delete", invoiceHandler.BulkDelete)
		}

		customers := protected.Group("/customers")
		{
			customers.POST("", customerHandler.Create)
			customers.GET("", customerHandler.List)
			customers.GET("/:id", customerHandler.Get)
			customers.PUT("/:id", customerHandler.Update)
			customers.DELETE("/:id", customerHandler.Delete)
		}

		products := protected.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)

			admin := products.Group("")
			admin.Use(middleware.RequireRole("admin"))
			{
				admin.POST("", productHandler.Create)
				admin.PUT("/:id", productHandler.Update)
				admin.DELETE("/:id", productHandler.Delete)
			}
		}
	}

	r.GET("/health", healthHandler(deps))
}

func healthHandler(deps RouterDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		dbStatus := "up"
		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "down"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "up"
			if err := deps.Redis.Ping(c.Request.Context()).Err(); err != nil {
				redisStatus = "down"
				status = "degraded"
			}
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"database":  dbStatus,
			"redis":     redisStatus,
			"timestamp": time.Now(),
		})
	}
}
