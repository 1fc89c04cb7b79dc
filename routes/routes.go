package routes

import (
	"PinguinGuard/controllers"
	"PinguinGuard/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует HTTP-маршруты. Если gatherer равен nil,
// /metrics не публикуется.
func RegisterRoutes(r *gin.Engine, authenticator middlewares.Authenticator, gatherer prometheus.Gatherer) {
	auth := middlewares.AuthMiddleware(authenticator)

	// Public routes
	r.POST("/login/parent", controllers.LoginParent)
	r.POST("/login/child", controllers.LoginChild)
	r.GET("/translations", controllers.GetTranslations)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/ws", auth, controllers.ServeWs)
	r.PUT("/device-token", auth, controllers.UpdateDeviceToken)

	proposals := r.Group("/proposals")
	proposals.Use(auth)
	{
		proposals.POST("", controllers.CreateProposal)
		proposals.GET("/:id", controllers.GetProposal)
		proposals.GET("/child/:child_id", controllers.ListProposals)
		proposals.POST("/:id/respond", controllers.RespondToProposal)
		proposals.POST("/:id/cancel-cooling", controllers.CancelCoolingPeriod)
		proposals.POST("/:id/sign", controllers.SignProposal)
		proposals.POST("/:id/dispute", controllers.DisputeProposal)
		proposals.POST("/:id/resolve-dispute", controllers.ResolveDispute)
	}

	permissions := r.Group("/permissions")
	permissions.Use(auth)
	{
		permissions.POST("/check", controllers.CheckPermissionChange)
		permissions.PUT("", controllers.UpdateGuardianPermission)
	}

	children := r.Group("/children")
	children.Use(auth)
	{
		children.GET("/:child_id/settings", controllers.GetChildSettings)
	}
}
