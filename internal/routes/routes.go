package routes

import (
	"vendora_back_end/internal/handlers/orders"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *orders.Handler) {
	api := r.Group("/api")

	// Orders
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/orders/:id/payment/initiate", h.InitiatePayment)
	api.POST("/orders/:id/payment/complete", h.CompletePayment)
	api.PUT("/orders/:id/shipping", h.UpdateShipping)
	api.POST("/orders/:id/delivered", h.MarkDelivered)
	api.POST("/orders/:id/dispute", h.FileDispute)
	api.POST("/orders/:id/return", h.RequestReturn)
	api.POST("/orders/:id/return/:requestId/process", h.ProcessReturn)
	api.POST("/orders/:id/cancel", h.CancelOrder)
	api.POST("/orders/:id/refund", h.RefundOrder)
}
