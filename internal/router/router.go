package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/cache"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	apihandlers "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/api"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter builds the engine with middleware and every route
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	h := apihandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "dist"
	}
	writeLimit := RateLimitMiddleware(cache.Client(), RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:write", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}, KeyByActor)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(MetricsMiddleware())

	r.GET("/healthz", healthHandler(c))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(ActorAuthMiddleware(cfg.ActorToken, c.UserRepo))
	{
		products := apiV1.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.GET("/low-stock", h.ListLowStock)
			products.POST("", writeLimit, h.CreateProduct)
			products.PUT("/:id/price", writeLimit, h.UpdateProductPrice)
		}

		apiV1.POST("/purchases", writeLimit, h.RegisterPurchase)

		customers := apiV1.Group("/customers")
		{
			customers.GET("", h.ListCustomers)
			customers.POST("", writeLimit, h.CreateCustomer)
			customers.GET("/:id", h.GetCustomer)
			customers.GET("/:id/balance", h.GetCustomerBalance)
			customers.POST("/:id/balance/recompute", writeLimit, h.RecomputeCustomerBalance)
		}

		orders := apiV1.Group("/orders")
		{
			orders.POST("", writeLimit, h.CreateOrder)
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.PUT("/:id/items", writeLimit, h.EditOrderItems)
			orders.PUT("/:id/status", writeLimit, h.ChangeOrderStatus)
			orders.PUT("/:id/courier", writeLimit, h.AssignOrderCourier)
			orders.PUT("/:id/payment", writeLimit, h.UpdateOrderPayment)
			orders.DELETE("/:id", writeLimit, h.DeleteOrder)
			orders.GET("/:id/history", h.ListOrderHistory)
			orders.GET("/:id/exceptions", h.ListOrderExceptions)
			orders.POST("/:id/exceptions", writeLimit, h.RegisterException)
		}
		apiV1.GET("/deleted-orders", h.ListDeletedOrders)

		payments := apiV1.Group("/payments")
		{
			payments.POST("", writeLimit, h.CreatePayment)
			payments.DELETE("/:id", writeLimit, h.DeletePayment)
		}

		exceptions := apiV1.Group("/exceptions")
		{
			exceptions.POST("/:id/resolve", writeLimit, h.ResolveException)
			exceptions.POST("/:id/void", writeLimit, h.VoidException)
			exceptions.GET("/:id/history", h.ListExceptionHistory)
		}

		routes := apiV1.Group("/routes")
		{
			routes.POST("", writeLimit, h.CreateRoute)
			routes.GET("/:id", h.GetRoute)
			routes.POST("/:id/stops/:order_id/deliver", writeLimit, h.MarkStopDelivered)
			routes.POST("/:id/stops/:order_id/fail", writeLimit, h.MarkStopFailed)
		}

		reconciliations := apiV1.Group("/reconciliations")
		{
			reconciliations.POST("", writeLimit, h.CreateReconciliation)
			reconciliations.GET("/statistics", h.ReconciliationStatistics)
			reconciliations.GET("/:id", h.GetReconciliation)
			reconciliations.POST("/:id/submit", writeLimit, h.SubmitReconciliation)
			reconciliations.POST("/:id/adjustments", writeLimit, h.AddReconciliationAdjustment)
			reconciliations.POST("/:id/review", writeLimit, h.ReviewReconciliation)
		}

		roles := apiV1.Group("/authz/roles")
		{
			roles.GET("", h.ListRoles)
			roles.DELETE("/:role", writeLimit, h.DeleteRole)
			roles.GET("/:role/policies", h.ListRolePolicies)
			roles.POST("/:role/policies", writeLimit, h.GrantRolePolicy)
			roles.DELETE("/:role/policies", writeLimit, h.RevokeRolePolicy)
		}
	}

	return r
}

func healthHandler(c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthCheckTimeout)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "disabled"}
		healthy := true
		if sqlDB, err := c.DB.DB(); err != nil || sqlDB.PingContext(reqCtx) != nil {
			checks["database"] = "down"
			healthy = false
		}
		if cache.Enabled() {
			checks["redis"] = "ok"
			if err := cache.Ping(reqCtx); err != nil {
				checks["redis"] = "down"
				healthy = false
			}
		}
		if !healthy {
			logger.Warnw("healthz_degraded", "checks", checks)
			response.ErrorWithData(ctx, response.CodeInternal, "unhealthy", checks)
			return
		}
		response.Success(ctx, checks)
	}
}
