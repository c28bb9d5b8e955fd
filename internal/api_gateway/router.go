package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emotion-market/point-ledger/internal/api_gateway/handler"
	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type routes struct {
	accounts    *handler.AccountHandler
	submissions *handler.SubmissionHandler
	purchases   *handler.PurchaseHandler
	verifier    middleware.TokenVerifier
	readiness   Pinger
	metrics     bool
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, clock clockwork.Clock, r *gin.Engine, rt routes) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, clock))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1", middleware.Authenticate(rt.verifier))
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", rt.accounts.Open)
			accounts.GET("/me", rt.accounts.Me)
			accounts.GET("/me/summary", rt.accounts.Summary)
			accounts.GET("/me/ledger", rt.accounts.History)
			accounts.GET("/me/statistics", rt.accounts.Statistics)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.POST("", rt.submissions.Submit)
			submissions.GET("", rt.submissions.List)
			submissions.GET("/remaining", rt.submissions.Remaining)
			submissions.GET("/:id", rt.submissions.Get)
		}

		purchases := v1.Group("/purchases")
		{
			purchases.POST("", rt.purchases.Create)
			purchases.GET("", rt.purchases.List)
			purchases.GET("/expiring", rt.purchases.Expiring)
			purchases.GET("/stats", rt.purchases.Stats)
			purchases.GET("/:id", rt.purchases.Get)
			purchases.POST("/:id/access", rt.purchases.Access)
			purchases.POST("/:id/review", rt.purchases.Review)
		}

		admin := v1.Group("/admin", middleware.RequireAdmin())
		{
			admin.GET("/accounts/:id/reconcile", rt.accounts.Reconcile)
			admin.POST("/accounts/:id/adjustments", rt.accounts.Adjust)
			admin.GET("/submissions/pending", rt.submissions.Pending)
			admin.POST("/submissions/:id/reject", rt.submissions.Reject)
			admin.POST("/submissions/:id/approve", rt.submissions.Approve)
			admin.POST("/purchases/sweep", rt.purchases.Sweep)
			admin.POST("/purchases/:id/refund", rt.purchases.Refund)
			admin.POST("/purchases/:id/expire", rt.purchases.Expire)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": clock.Now().UTC()})
	})

	r.GET("/ready", func(c *gin.Context) {
		if rt.readiness != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := rt.readiness.Ping(ctx); err != nil {
				logger.Warn("Readiness check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if rt.metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}
