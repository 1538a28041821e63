// Package front registers the user-facing API routes.
package front

import (
	"github.com/crediflow/crediflow/internal/account"
	"github.com/crediflow/crediflow/internal/config"
	"github.com/crediflow/crediflow/internal/credits"
	"github.com/crediflow/crediflow/internal/http/api/front/handlers"
	"github.com/crediflow/crediflow/internal/http/middleware"
	"github.com/crediflow/crediflow/internal/referral"
	"github.com/crediflow/crediflow/internal/subscription"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterFrontRoutes wires the engine services to the front API.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	planHandler := handlers.NewPlanHandler(db)
	r.GET("/api/v1/plans", planHandler.List)

	authed := r.Group("/api/v1")
	authed.Use(middleware.Identity(jwtCfg))

	accountHandler := handlers.NewAccountHandler(account.NewService(db))
	authed.POST("/signup", accountHandler.Signup)
	authed.DELETE("/account", accountHandler.Delete)

	subscriptionService := subscription.NewService(db)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	authed.GET("/subscription", subscriptionHandler.Get)
	authed.POST("/subscription/cancel", subscriptionHandler.Cancel)

	paymentHandler := handlers.NewPaymentHandler(subscriptionService)
	authed.POST("/payments/confirm", paymentHandler.Confirm)

	creditsHandler := handlers.NewCreditsHandler(credits.NewService(db))
	authed.POST("/credits/consume", creditsHandler.Consume)

	referralHandler := handlers.NewReferralHandler(referral.NewService(db))
	authed.GET("/referral", referralHandler.Stats)
}
