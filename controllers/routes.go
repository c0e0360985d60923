package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/middleware"
	"github.com/kendall-kelly/stitchwise-api/models"
)

// RegisterRoutes mounts the authenticated API on v1. auth must set the token
// subject and claims the way middleware.EnsureValidToken does.
func RegisterRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc) {
	// Profile creation runs before a local user exists
	users := v1.Group("/users", auth)
	{
		users.POST("", CreateUser)
		users.GET("/me", middleware.ResolveActor(), GetMyProfile)
		users.PUT("/me", middleware.ResolveActor(), UpdateMyProfile)
	}

	authed := v1.Group("", auth, middleware.ResolveActor())

	orders := authed.Group("/orders")
	{
		orders.POST("", CreateOrder)
		orders.GET("", ListOrders)
		orders.GET("/:id", GetOrder)
		orders.PUT("/:id/consultation", ScheduleConsultation)
		orders.PUT("/:id/consultation/status", UpdateConsultationStatus)
		orders.PUT("/:id/fabric", UpdateFabric)
		orders.PUT("/:id/pricing", UpdatePricing)
		orders.PUT("/:id/status", UpdateOrderStatus)
		orders.GET("/:id/timeline", GetOrderTimeline)

		orders.POST("/:id/revisions", AddRevision)
		orders.PUT("/:id/revisions/:number/approve", ApproveRevision)
		orders.PUT("/:id/revisions/:number/reject", RejectRevision)
		orders.PUT("/:id/revisions/:number/start", StartRevision)
		orders.PUT("/:id/revisions/:number/complete", CompleteRevision)
		orders.PUT("/:id/revisions/:number/customer-approve", CustomerApproveRevision)
		orders.PUT("/:id/revisions/:number/customer-reject", CustomerRejectRevision)

		orders.POST("/:id/messages", SendMessage)
		orders.GET("/:id/messages", ListMessages)
		orders.PUT("/:id/messages/:messageId/read", MarkMessageRead)
	}

	authed.POST("/uploads", UploadImage)
	authed.GET("/tailors/:id/reputation", GetTailorReputation)

	admin := authed.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/tailors/:id/reputation/rebuild", RebuildTailorReputation)
	}
}
